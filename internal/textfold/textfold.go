// Package textfold normalizes lexicon text so that the indexed side and the
// query side of a fallback lookup agree on term boundaries and spelling.
package textfold

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
	"golang.org/x/text/unicode/norm"
)

// Wildcard is the prefix marker appended to every fallback term.
const Wildcard = "*"

// minStemLength is the shortest Latin term handed to the stemmer.
const minStemLength = 3

// Span is one term and its byte range in the folded text.
type Span struct {
	Term  string
	Start int
	End   int
}

// Fold applies NFKC and lower-cases. Half-width katakana become full-width,
// full-width Latin becomes ASCII.
func Fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Spans splits already folded text into terms: maximal runs of letters,
// digits and combining marks. Everything else separates.
func Spans(folded string) []Span {
	var spans []Span
	start := -1
	for i, r := range folded {
		if isTermRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, Span{Term: folded[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Term: folded[start:], Start: start, End: len(folded)})
	}
	return spans
}

// Terms folds s and returns its terms.
func Terms(s string) []string {
	spans := Spans(Fold(s))
	terms := make([]string, len(spans))
	for i, sp := range spans {
		terms[i] = sp.Term
	}
	return terms
}

// IndexTerms returns the terms of s as stored in a fallback index. With stem
// set, each term's Porter2 stem is appended when it differs from every term
// already present, so a stemmed prefix query finds words whose stem is not a
// prefix of the word itself (study, studi*).
func IndexTerms(s string, stem bool) []string {
	terms := Terms(s)
	if !stem {
		return terms
	}
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[t] = true
	}
	for _, t := range terms {
		st := Stem(t)
		if !seen[st] {
			seen[st] = true
			terms = append(terms, st)
		}
	}
	return terms
}

// Stem reduces an English term to its Porter2 stem. Non-Latin and short
// terms come back unchanged.
func Stem(term string) string {
	if len([]rune(term)) < minStemLength {
		return term
	}
	for _, r := range term {
		if r < 'a' || r > 'z' {
			return term
		}
	}
	return porter2.Stem(term)
}

// WildcardQuery builds the fallback query for q: folded terms, optionally
// stemmed, each followed by Wildcard and joined by a single space.
// Returns "" when q has no terms.
func WildcardQuery(q string, stem bool) string {
	terms := Terms(q)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		if stem {
			t = Stem(t)
		}
		parts[i] = t + Wildcard
	}
	return strings.Join(parts, " ")
}

// ParseWildcardQuery splits a query built by WildcardQuery back into
// prefixes. Terms without the marker are returned as-is, flagged exact.
func ParseWildcardQuery(q string) (terms []string, prefix []bool) {
	for _, part := range strings.Fields(q) {
		isPrefix := strings.HasSuffix(part, Wildcard)
		part = strings.TrimRight(part, Wildcard)
		if part == "" {
			continue
		}
		terms = append(terms, part)
		prefix = append(prefix, isPrefix)
	}
	return terms, prefix
}

func isTermRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
