package lexicon

import (
	"context"
	"sync/atomic"
)

// indexedStore routes FindIndexed to a separate Indexer. While the index is
// stale (its last rebuild failed) the embedded store's FTS table answers.
type indexedStore struct {
	Store
	index Indexer
	stale atomic.Bool
}

func (s *indexedStore) FindIndexed(ctx context.Context, field Field, query string) ([]Match, error) {
	if s.stale.Load() {
		return s.Store.FindIndexed(ctx, field, query)
	}
	return s.index.FindIndexed(ctx, field, query)
}
