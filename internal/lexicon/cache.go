package lexicon

import (
	"context"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of per-entry value lists kept.
const DefaultCacheSize = 4096

type cacheKey struct {
	field Field
	id    EntryID
}

// CachedStore wraps a Store and memoizes the per-entry value lists the
// assembler fetches. Lookups pass straight through. Call Purge after an import.
type CachedStore struct {
	inner Store
	cache *lru.Cache[cacheKey, []string]

	// gen counts purges. A load that started before a purge is not cached.
	mu  sync.Mutex
	gen uint64
}

// Verify interface implementation
var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps inner with an LRU of the given size.
func NewCachedStore(inner Store, size int) *CachedStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[cacheKey, []string](size)
	return &CachedStore{inner: inner, cache: cache}
}

// FindExact implements Store.
func (c *CachedStore) FindExact(ctx context.Context, field Field, value string) ([]Match, error) {
	return c.inner.FindExact(ctx, field, value)
}

// FindSubstring implements Store.
func (c *CachedStore) FindSubstring(ctx context.Context, field Field, value string) ([]Match, error) {
	return c.inner.FindSubstring(ctx, field, value)
}

// FindIndexed implements Store.
func (c *CachedStore) FindIndexed(ctx context.Context, field Field, query string) ([]Match, error) {
	return c.inner.FindIndexed(ctx, field, query)
}

// Spellings implements Store.
func (c *CachedStore) Spellings(ctx context.Context, id EntryID) ([]string, error) {
	return c.get(ctx, FieldSpelling, id, c.inner.Spellings)
}

// Readings implements Store.
func (c *CachedStore) Readings(ctx context.Context, id EntryID) ([]string, error) {
	return c.get(ctx, FieldReading, id, c.inner.Readings)
}

// Glosses implements Store.
func (c *CachedStore) Glosses(ctx context.Context, id EntryID) ([]string, error) {
	return c.get(ctx, FieldGloss, id, c.inner.Glosses)
}

func (c *CachedStore) get(ctx context.Context, field Field, id EntryID,
	load func(context.Context, EntryID) ([]string, error)) ([]string, error) {
	key := cacheKey{field: field, id: id}
	if v, ok := c.cache.Get(key); ok {
		return slices.Clone(v), nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err := load(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cache.Add(key, slices.Clone(v))
	}
	c.mu.Unlock()
	return v, nil
}

// Purge drops every cached list, including loads still in flight.
func (c *CachedStore) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Purge()
}

// Len returns the number of cached lists.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
