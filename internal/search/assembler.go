package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/lexsearch/internal/lexicon"
)

// Result is one entry in a lookup response. It carries every value of the
// entry, not only the ones that matched.
type Result struct {
	EntryID   lexicon.EntryID `json:"entry_id"`
	Spellings []string        `json:"spellings"`
	Readings  []string        `json:"readings"`
	Glosses   []string        `json:"glosses"`
}

// assembleConcurrency bounds in-flight entry fetches for one query.
const assembleConcurrency = 8

// assemble fetches the full value lists for each ranked candidate and
// returns results in ranked order.
func assemble(ctx context.Context, store lexicon.Store, ranked []*candidate) ([]*Result, error) {
	results := make([]*Result, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assembleConcurrency)
	for i, c := range ranked {
		g.Go(func() error {
			r, err := assembleOne(gctx, store, c.id)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func assembleOne(ctx context.Context, store lexicon.Store, id lexicon.EntryID) (*Result, error) {
	spellings, err := store.Spellings(ctx, id)
	if err != nil {
		return nil, storeEntryError("spellings", id, err)
	}
	readings, err := store.Readings(ctx, id)
	if err != nil {
		return nil, storeEntryError("readings", id, err)
	}
	glosses, err := store.Glosses(ctx, id)
	if err != nil {
		return nil, storeEntryError("glosses", id, err)
	}

	return &Result{
		EntryID:   id,
		Spellings: dedupe(spellings),
		Readings:  dedupe(readings),
		Glosses:   dedupe(glosses),
	}, nil
}

// dedupe drops repeated values, keeping the first occurrence. The result is
// never nil so JSON output always has arrays.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
