// Package configs provides files embedded into the lexsearch binary.
//
// Templates are embedded at build time with //go:embed so that they are
// available in every distribution, including 'go install' builds.
//
//   - config.example.yaml: written by 'lexsearch config init' to
//     ~/.config/lexsearch/config.yaml (or $XDG_CONFIG_HOME/lexsearch/config.yaml)
//   - sample-lexicon.yaml: a small Japanese-English lexicon, written by
//     'lexsearch import --sample' and used by tests
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/lexsearch/config.yaml)
//  3. Project config (.lexsearch.yaml)
//  4. Environment variables (LEXSEARCH_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for the user configuration file.
//
//go:embed config.example.yaml
var UserConfigTemplate string

// SampleLexicon is a small lexicon in the YAML source format.
//
//go:embed sample-lexicon.yaml
var SampleLexicon string
