// Package lexicon provides the lexicon store: entries with spellings,
// readings and glosses, structured lookups over them, and the indexed
// fallback lookup (SQLite FTS5 or Bleve).
package lexicon

import (
	"context"
	"fmt"
	"time"
)

// Field names one of the three searchable value lists of an entry.
type Field int

const (
	// FieldSpelling is the logographic (kanji) written form.
	FieldSpelling Field = iota
	// FieldReading is the phonetic (kana) form.
	FieldReading
	// FieldGloss is the English meaning.
	FieldGloss
)

// AllFields lists every field in lookup order.
var AllFields = []Field{FieldSpelling, FieldReading, FieldGloss}

// String returns the field name used in logs, documents and JSON.
func (f Field) String() string {
	switch f {
	case FieldSpelling:
		return "spelling"
	case FieldReading:
		return "reading"
	case FieldGloss:
		return "gloss"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// ParseField is the inverse of Field.String.
func ParseField(s string) (Field, error) {
	switch s {
	case "spelling":
		return FieldSpelling, nil
	case "reading":
		return FieldReading, nil
	case "gloss":
		return FieldGloss, nil
	default:
		return 0, fmt.Errorf("unknown field: %q", s)
	}
}

// EntryID identifies one lexicon entry.
type EntryID int64

// Match is one field value that satisfied a lookup.
type Match struct {
	EntryID EntryID
	Value   string
}

// Entry is one lexical concept as imported from a lexicon file.
type Entry struct {
	ID        EntryID  `yaml:"id,omitempty" json:"id,omitempty"`
	Spellings []string `yaml:"spellings,omitempty" json:"spellings,omitempty"`
	Readings  []string `yaml:"readings" json:"readings"`
	Glosses   []string `yaml:"glosses" json:"glosses"`
}

// Values returns the entry's values for field.
func (e *Entry) Values(field Field) []string {
	switch field {
	case FieldSpelling:
		return e.Spellings
	case FieldReading:
		return e.Readings
	case FieldGloss:
		return e.Glosses
	default:
		return nil
	}
}

func (e *Entry) appendValue(field Field, v string) {
	switch field {
	case FieldSpelling:
		e.Spellings = append(e.Spellings, v)
	case FieldReading:
		e.Readings = append(e.Readings, v)
	case FieldGloss:
		e.Glosses = append(e.Glosses, v)
	}
}

// Store is the read side consumed by the search engine. Every method returns
// results in insertion order. Implementations must be safe for concurrent use.
type Store interface {
	// FindExact returns values of field equal to value.
	FindExact(ctx context.Context, field Field, value string) ([]Match, error)

	// FindSubstring returns values of field containing value, exact hits included.
	FindSubstring(ctx context.Context, field Field, value string) ([]Match, error)

	// FindIndexed runs the fallback lookup. query is a space-separated list of
	// folded terms, each optionally followed by "*" for prefix matching.
	FindIndexed(ctx context.Context, field Field, query string) ([]Match, error)

	// Spellings returns all spellings of the entry.
	Spellings(ctx context.Context, id EntryID) ([]string, error)

	// Readings returns all readings of the entry.
	Readings(ctx context.Context, id EntryID) ([]string, error)

	// Glosses returns all glosses of the entry.
	Glosses(ctx context.Context, id EntryID) ([]string, error)
}

// Indexer is a fallback lookup backend rebuilt from entries on every import.
type Indexer interface {
	FindIndexed(ctx context.Context, field Field, query string) ([]Match, error)
	Rebuild(ctx context.Context, entries []Entry) error
	Count() (int, error)
	Close() error
}

// MaxIndexedMatches bounds a single FindIndexed call.
const MaxIndexedMatches = 1000

// Stats describes the imported lexicon.
type Stats struct {
	Entries    int       `json:"entries"`
	Spellings  int       `json:"spellings"`
	Readings   int       `json:"readings"`
	Glosses    int       `json:"glosses"`
	Source     string    `json:"source,omitempty"`
	ImportedAt time.Time `json:"imported_at,omitempty"`
	Backend    string    `json:"backend"`
	IndexDocs  int       `json:"index_docs"`
}

// ImportStats summarizes one import run.
type ImportStats struct {
	Entries  int           `json:"entries"`
	Values   int           `json:"values"`
	Duration time.Duration `json:"duration_ns"`
}
