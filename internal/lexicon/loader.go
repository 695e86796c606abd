package lexicon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
)

// File is the on-disk lexicon source format (YAML or JSON).
type File struct {
	Version int     `yaml:"version" json:"version"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

// LoadFile reads and validates a lexicon source file. The format follows
// the extension: .json is JSON, anything else is YAML.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lexerrors.New(lexerrors.ErrCodeFileNotFound, "lexicon file not found", err).
				WithDetail("path", path)
		}
		if os.IsPermission(err) {
			return nil, lexerrors.New(lexerrors.ErrCodeFilePermission, "lexicon file not readable", err).
				WithDetail("path", path)
		}
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Parse decodes and validates lexicon source data.
func Parse(data []byte, format string) ([]Entry, error) {
	var file File
	var err error
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&file)
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&file)
	default:
		return nil, fmt.Errorf("unsupported lexicon format: %s", format)
	}
	if err != nil {
		return nil, lexerrors.New(lexerrors.ErrCodeLexiconMalformed, "failed to parse lexicon file", err).
			WithDetail("format", format)
	}

	return Validate(file.Entries)
}

// Validate normalizes entries and checks the lexicon invariants: every entry
// has at least one reading and one gloss, and ids are unique. Values are
// trimmed, empty values dropped and repeats within a field removed. Entries
// without an id get one after the highest explicit id.
func Validate(entries []Entry) ([]Entry, error) {
	out := make([]Entry, len(entries))
	seen := make(map[EntryID]int, len(entries))
	var maxID EntryID

	for i, e := range entries {
		e.Spellings = cleanValues(e.Spellings)
		e.Readings = cleanValues(e.Readings)
		e.Glosses = cleanValues(e.Glosses)

		if len(e.Readings) == 0 {
			return nil, invalidEntry(i, e.ID, "entry has no reading")
		}
		if len(e.Glosses) == 0 {
			return nil, invalidEntry(i, e.ID, "entry has no gloss")
		}
		if e.ID < 0 {
			return nil, invalidEntry(i, e.ID, "entry id must be positive")
		}
		if e.ID != 0 {
			if prev, dup := seen[e.ID]; dup {
				return nil, invalidEntry(i, e.ID, "duplicate entry id").
					WithDetail("first_index", strconv.Itoa(prev))
			}
			seen[e.ID] = i
			if e.ID > maxID {
				maxID = e.ID
			}
		}
		out[i] = e
	}

	next := maxID + 1
	for i := range out {
		if out[i].ID == 0 {
			out[i].ID = next
			next++
		}
	}
	return out, nil
}

func invalidEntry(index int, id EntryID, msg string) *lexerrors.LexError {
	return lexerrors.New(lexerrors.ErrCodeInvalidEntry, msg, nil).
		WithDetail("index", strconv.Itoa(index)).
		WithDetail("entry_id", formatID(id)).
		WithSuggestion("Fix the entry in the lexicon source file and import again")
}

// cleanValues trims, drops blanks and repeats. Returns nil when nothing is left.
func cleanValues(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ImportFile loads path and imports it. When the lexicon is file-backed the
// cross-process import lock is held for the duration.
func (l *Lexicon) ImportFile(ctx context.Context, path string) (*ImportStats, error) {
	if l.dbPath != "" {
		lock := NewImportLock(l.dbPath)
		if err := lock.Acquire(ctx); err != nil {
			return nil, err
		}
		defer func() { _ = lock.Unlock() }()
	}

	slog.Info("lexicon_import_started", slog.String("source", path))

	entries, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	stats, err := l.Import(ctx, entries, abs)
	if err != nil {
		return nil, lexerrors.New(lexerrors.ErrCodeImportFailed, "lexicon import failed", err).
			WithDetail("source", path)
	}

	slog.Info("lexicon_import_completed",
		slog.String("source", path),
		slog.Int("entries", stats.Entries),
		slog.Int("values", stats.Values),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}
