package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Backend selects the fallback index implementation.
type Backend string

const (
	// BackendSQLite serves FindIndexed from the FTS5 table in the lexicon
	// database (default).
	BackendSQLite Backend = "sqlite"

	// BackendBleve serves FindIndexed from a Bleve index next to the database.
	BackendBleve Backend = "bleve"
)

// ParseBackend validates a backend name. Empty means sqlite.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case string(BackendSQLite), "":
		return BackendSQLite, nil
	case string(BackendBleve):
		return BackendBleve, nil
	default:
		return "", fmt.Errorf("unknown index backend: %s (valid options: sqlite, bleve)", s)
	}
}

// Options configures Open.
type Options struct {
	// DBPath is the SQLite database file. Empty keeps everything in memory.
	DBPath string
	// Backend is "sqlite" or "bleve".
	Backend string
	// BlevePath overrides the Bleve index directory (default DBPath + ".bleve").
	BlevePath string
	// CacheSize is the entry cache capacity; negative disables the cache.
	CacheSize int
}

// BlevePathFor returns the default Bleve directory for a database path.
func BlevePathFor(dbPath string) string {
	if dbPath == "" {
		return ""
	}
	return dbPath + ".bleve"
}

// Lexicon owns an opened lexicon: the database, the optional Bleve index and
// the entry cache. Store returns the read side for the search engine.
type Lexicon struct {
	importMu sync.Mutex

	db      *SQLiteStore
	index   Indexer
	indexed *indexedStore
	cache   *CachedStore
	store   Store
	backend Backend
	dbPath  string
}

// Open opens the lexicon described by opts.
func Open(ctx context.Context, opts Options) (*Lexicon, error) {
	backend, err := ParseBackend(opts.Backend)
	if err != nil {
		return nil, err
	}

	db, err := NewSQLiteStore(opts.DBPath)
	if err != nil {
		return nil, err
	}

	l := &Lexicon{db: db, backend: backend, dbPath: opts.DBPath}
	var store Store = db

	if backend == BackendBleve {
		path := opts.BlevePath
		if path == "" {
			path = BlevePathFor(opts.DBPath)
		}
		idx, err := NewBleveIndex(path)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		l.index = idx
		l.indexed = &indexedStore{Store: db, index: idx}
		store = l.indexed

		if err := l.syncIndex(ctx); err != nil {
			_ = l.Close()
			return nil, err
		}
	}

	if opts.CacheSize >= 0 {
		l.cache = NewCachedStore(store, opts.CacheSize)
		store = l.cache
	}
	l.store = store

	return l, nil
}

// syncIndex rebuilds the Bleve index from the database when its document
// count does not match the number of stored values.
func (l *Lexicon) syncIndex(ctx context.Context) error {
	n, err := l.index.Count()
	if err != nil {
		return fmt.Errorf("failed to count index documents: %w", err)
	}
	st, err := l.db.Stats(ctx)
	if err != nil {
		return err
	}
	if n == st.Spellings+st.Readings+st.Glosses {
		return nil
	}

	entries, err := l.db.Entries(ctx)
	if err != nil {
		return err
	}
	if err := l.index.Rebuild(ctx, entries); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	slog.Info("bleve_index_rebuilt",
		slog.Int("entries", len(entries)),
		slog.Int("stale_docs", n))
	return nil
}

// Store returns the read side used by the search engine.
func (l *Lexicon) Store() Store {
	return l.store
}

// Backend returns the configured index backend.
func (l *Lexicon) Backend() Backend {
	return l.backend
}

// Import replaces the lexicon content with entries, rebuilds the Bleve index
// when configured and drops cached entry data.
func (l *Lexicon) Import(ctx context.Context, entries []Entry, source string) (*ImportStats, error) {
	l.importMu.Lock()
	defer l.importMu.Unlock()

	stats, err := l.db.Import(ctx, entries, source)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.Purge()
	}
	if l.index != nil {
		if err := l.index.Rebuild(ctx, entries); err != nil {
			// The database already holds the new entries. Serve the fallback
			// from its FTS table and clear the index so the next Open rebuilds it.
			l.indexed.stale.Store(true)
			slog.Error("bleve_index_rebuild_failed",
				slog.Int("entries", len(entries)),
				slog.String("error", err.Error()))
			if clearErr := l.index.Rebuild(ctx, nil); clearErr != nil {
				slog.Warn("bleve_index_clear_failed", slog.String("error", clearErr.Error()))
			}
			return stats, fmt.Errorf("lexicon imported but index rebuild failed: %w", err)
		}
		l.indexed.stale.Store(false)
	}
	return stats, nil
}

// Stats reports lexicon counts for the active backend.
func (l *Lexicon) Stats(ctx context.Context) (*Stats, error) {
	stats, err := l.db.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Backend = string(l.backend)
	if l.index != nil {
		n, err := l.index.Count()
		if err != nil {
			return nil, fmt.Errorf("failed to count index documents: %w", err)
		}
		stats.IndexDocs = n
	}
	return stats, nil
}

// Close closes the index and the database.
func (l *Lexicon) Close() error {
	var firstErr error
	if l.index != nil {
		if err := l.index.Close(); err != nil {
			firstErr = err
		}
	}
	if err := l.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
