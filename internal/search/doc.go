// Package search implements lexicon lookup: a query is classified by script,
// mapped to the lexicon fields it should be matched against, matched in two
// phases (structured exact/substring, then an indexed prefix fallback that
// only runs when the first phase finds nothing), ranked by tier and matched
// length, and assembled into full entry records.
package search
