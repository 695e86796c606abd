package lexicon

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver with FTS5

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/textfold"
)

//go:embed schema.sql
var schemaSQL string

// fieldQueries holds the fixed statements for one field table.
type fieldQueries struct {
	exact     string
	substring string
	values    string
	insert    string
	count     string
	all       string
}

var queries = map[Field]fieldQueries{
	FieldSpelling: newFieldQueries("spellings"),
	FieldReading:  newFieldQueries("readings"),
	FieldGloss:    newFieldQueries("glosses"),
}

func newFieldQueries(table string) fieldQueries {
	return fieldQueries{
		exact:     "SELECT entry_id, value FROM " + table + " WHERE value = ? ORDER BY rowid",
		substring: "SELECT entry_id, value FROM " + table + " WHERE instr(value, ?) > 0 ORDER BY rowid",
		values:    "SELECT value FROM " + table + " WHERE entry_id = ? ORDER BY rowid",
		insert:    "INSERT INTO " + table + " (entry_id, value) VALUES (?, ?)",
		count:     "SELECT COUNT(*) FROM " + table,
		all:       "SELECT entry_id, value FROM " + table + " ORDER BY rowid",
	}
}

const (
	queryIndexed = `SELECT entry_id, value FROM lexicon_fts
		WHERE lexicon_fts MATCH ? AND field = ?
		ORDER BY rowid LIMIT ?`
	insertIndexed = `INSERT INTO lexicon_fts (entry_id, field, value, terms) VALUES (?, ?, ?, ?)`

	metaSource     = "source"
	metaImportedAt = "imported_at"
)

// SQLiteStore implements Store on SQLite. Structured lookups use the per-field
// tables; FindIndexed uses the FTS5 table.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ Store = (*SQLiteStore)(nil)

// validateIntegrity runs PRAGMA integrity_check on an existing database file.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteStore opens or creates the lexicon database at path.
// If path is empty, the database lives in memory.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := validateIntegrity(path); err != nil {
			slog.Warn("lexicon_db_corrupted",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, lexerrors.New(lexerrors.ErrCodeCorruptLexicon, "lexicon database failed integrity check", err).
				WithDetail("path", path).
				WithSuggestion("Delete the database file and run 'lexsearch import' again")
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: required for :memory:, and SQLite has a single writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database path, empty for in-memory stores.
func (s *SQLiteStore) Path() string {
	return s.path
}

// FindExact implements Store.
func (s *SQLiteStore) FindExact(ctx context.Context, field Field, value string) ([]Match, error) {
	q, err := queriesFor(field)
	if err != nil {
		return nil, err
	}
	return s.queryMatches(ctx, q.exact, value)
}

// FindSubstring implements Store.
func (s *SQLiteStore) FindSubstring(ctx context.Context, field Field, value string) ([]Match, error) {
	q, err := queriesFor(field)
	if err != nil {
		return nil, err
	}
	return s.queryMatches(ctx, q.substring, value)
}

// FindIndexed implements Store using the FTS5 table. Every term is quoted,
// so user input can never produce an FTS5 syntax error.
func (s *SQLiteStore) FindIndexed(ctx context.Context, field Field, query string) ([]Match, error) {
	if _, err := queriesFor(field); err != nil {
		return nil, err
	}
	expr := ftsExpression(query)
	if expr == "" {
		return []Match{}, nil
	}
	return s.queryMatches(ctx, queryIndexed, expr, field.String(), MaxIndexedMatches)
}

// ftsExpression turns "eat* quick" into `"eat"* AND "quick"`.
func ftsExpression(query string) string {
	terms, prefix := textfold.ParseWildcardQuery(query)
	parts := make([]string, 0, len(terms))
	for i, t := range terms {
		quoted := `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
		if prefix[i] {
			quoted += "*"
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " AND ")
}

// Spellings implements Store.
func (s *SQLiteStore) Spellings(ctx context.Context, id EntryID) ([]string, error) {
	return s.values(ctx, FieldSpelling, id)
}

// Readings implements Store.
func (s *SQLiteStore) Readings(ctx context.Context, id EntryID) ([]string, error) {
	return s.values(ctx, FieldReading, id)
}

// Glosses implements Store.
func (s *SQLiteStore) Glosses(ctx context.Context, id EntryID) ([]string, error) {
	return s.values(ctx, FieldGloss, id)
}

func (s *SQLiteStore) values(ctx context.Context, field Field, id EntryID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	rows, err := s.db.QueryContext(ctx, queries[field].values, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query %ss: %w", field, err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", field, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryMatches(ctx context.Context, query string, args ...any) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := []Match{}
	for rows.Next() {
		var id int64
		var m Match
		if err := rows.Scan(&id, &m.Value); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.EntryID = EntryID(id)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Import replaces the whole lexicon with entries in one transaction.
// Entries must already be validated (see LoadFile).
func (s *SQLiteStore) Import(ctx context.Context, entries []Entry, source string) (*ImportStats, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM lexicon_fts",
		"DELETE FROM spellings",
		"DELETE FROM readings",
		"DELETE FROM glosses",
		"DELETE FROM entries",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to clear lexicon: %w", err)
		}
	}

	entryStmt, err := tx.PrepareContext(ctx, "INSERT INTO entries (id, seq) VALUES (?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = entryStmt.Close() }()

	ftsStmt, err := tx.PrepareContext(ctx, insertIndexed)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = ftsStmt.Close() }()

	valueStmts := make(map[Field]*sql.Stmt, len(AllFields))
	for _, f := range AllFields {
		stmt, err := tx.PrepareContext(ctx, queries[f].insert)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		valueStmts[f] = stmt
	}

	stats := &ImportStats{Entries: len(entries)}
	for seq, e := range entries {
		if _, err := entryStmt.ExecContext(ctx, int64(e.ID), seq); err != nil {
			return nil, fmt.Errorf("failed to insert entry %d: %w", e.ID, err)
		}
		for _, f := range AllFields {
			for _, v := range e.Values(f) {
				if _, err := valueStmts[f].ExecContext(ctx, int64(e.ID), v); err != nil {
					return nil, fmt.Errorf("failed to insert %s for entry %d: %w", f, e.ID, err)
				}
				terms := strings.Join(textfold.IndexTerms(v, f == FieldGloss), " ")
				if _, err := ftsStmt.ExecContext(ctx, int64(e.ID), f.String(), v, terms); err != nil {
					return nil, fmt.Errorf("failed to index %s for entry %d: %w", f, e.ID, err)
				}
				stats.Values++
			}
		}
	}

	meta := map[string]string{
		metaSource:     source,
		metaImportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v); err != nil {
			return nil, fmt.Errorf("failed to write meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// Entries returns every entry in insertion order. Used to rebuild a
// secondary index.
func (s *SQLiteStore) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	var entries []Entry
	byID := make(map[EntryID]int)

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM entries ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		byID[EntryID(id)] = len(entries)
		entries = append(entries, Entry{ID: EntryID(id)})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, f := range AllFields {
		rows, err := s.db.QueryContext(ctx, queries[f].all)
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss: %w", f, err)
		}
		for rows.Next() {
			var id int64
			var v string
			if err := rows.Scan(&id, &v); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan %s: %w", f, err)
			}
			i, ok := byID[EntryID(id)]
			if !ok {
				continue
			}
			entries[i].appendValue(f, v)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Stats returns row counts and import metadata.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errStoreClosed()
	}

	stats := &Stats{Backend: string(BackendSQLite)}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&stats.Entries); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	counts := map[Field]*int{
		FieldSpelling: &stats.Spellings,
		FieldReading:  &stats.Readings,
		FieldGloss:    &stats.Glosses,
	}
	for f, dst := range counts {
		if err := s.db.QueryRowContext(ctx, queries[f].count).Scan(dst); err != nil {
			return nil, fmt.Errorf("failed to count %ss: %w", f, err)
		}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lexicon_fts").Scan(&stats.IndexDocs); err != nil {
		return nil, fmt.Errorf("failed to count index rows: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan meta: %w", err)
		}
		switch k {
		case metaSource:
			stats.Source = v
		case metaImportedAt:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				stats.ImportedAt = t
			}
		}
	}
	return stats, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func queriesFor(field Field) (fieldQueries, error) {
	q, ok := queries[field]
	if !ok {
		return fieldQueries{}, fmt.Errorf("unknown field: %s", field)
	}
	return q, nil
}

func errStoreClosed() error {
	return lexerrors.New(lexerrors.ErrCodeStoreClosed, "lexicon store is closed", nil)
}

// formatID is shared by the document-ID encoders.
func formatID(id EntryID) string {
	return strconv.FormatInt(int64(id), 10)
}
