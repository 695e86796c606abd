package search

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/textfold"
)

// Phase identifies which match phase produced the candidates.
type Phase int

const (
	// PhaseStructured is exact and substring matching on raw field values.
	PhaseStructured Phase = iota
	// PhaseFallback is the indexed prefix lookup run when nothing matched structurally.
	PhaseFallback
)

// String returns the phase name.
func (p Phase) String() string {
	if p == PhaseFallback {
		return "fallback"
	}
	return "structured"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Tier is a candidate's rank class. Lower is better.
type Tier int

const (
	TierExact     Tier = 1
	TierSubstring Tier = 2
	TierFallback  Tier = 3
)

// candidate is one matched entry with its ranking metadata. It never leaves
// the package; Result is built from the entry id alone.
type candidate struct {
	id       lexicon.EntryID
	tier     Tier
	tieBreak int
	order    int
}

// matchSet accumulates candidates in discovery order. A candidate's tier only
// ever improves.
type matchSet struct {
	byID  map[lexicon.EntryID]*candidate
	order []*candidate
}

func newMatchSet() *matchSet {
	return &matchSet{byID: make(map[lexicon.EntryID]*candidate)}
}

func (s *matchSet) add(id lexicon.EntryID, tier Tier, length int) {
	c, ok := s.byID[id]
	if !ok {
		c = &candidate{id: id, tier: tier, tieBreak: length, order: len(s.order)}
		s.byID[id] = c
		s.order = append(s.order, c)
		return
	}
	switch {
	case tier < c.tier:
		c.tier = tier
		c.tieBreak = length
	case tier == c.tier && length < c.tieBreak:
		c.tieBreak = length
	}
}

func (s *matchSet) candidates() []*candidate {
	return s.order
}

func (s *matchSet) empty() bool {
	return len(s.order) == 0
}

// fieldHit is an entry's best showing within a single field.
type fieldHit struct {
	tier   Tier
	length int
}

// matchResult is what the executor hands to the ranker.
type matchResult struct {
	phase      Phase
	candidates []*candidate
	// fallbackQueries maps each field to the indexed query it ran, fallback only.
	fallbackQueries map[lexicon.Field]string
}

// executor runs the two match phases against a store. One per lookup.
type executor struct {
	store lexicon.Store
	// phase is the furthest phase entered, so failures can be attributed.
	phase Phase
}

// run matches query against fields. The fallback phase is entered at most
// once and only when the structured phase found nothing.
func (x *executor) run(ctx context.Context, query string, fields []lexicon.Field) (*matchResult, error) {
	x.phase = PhaseStructured
	set, err := x.structured(ctx, query, fields)
	if err != nil {
		return nil, err
	}
	if !set.empty() {
		return &matchResult{phase: PhaseStructured, candidates: set.candidates()}, nil
	}

	x.phase = PhaseFallback
	set, queries, err := x.fallback(ctx, query, fields)
	if err != nil {
		return nil, err
	}
	return &matchResult{
		phase:           PhaseFallback,
		candidates:      set.candidates(),
		fallbackQueries: queries,
	}, nil
}

// structured runs exact and substring lookups for every field concurrently,
// then merges them in field order so discovery order is deterministic.
func (x *executor) structured(ctx context.Context, query string, fields []lexicon.Field) (*matchSet, error) {
	exact := make([][]lexicon.Match, len(fields))
	partial := make([][]lexicon.Match, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			m, err := x.store.FindExact(gctx, field, query)
			if err != nil {
				return storeError("find_exact", field, err)
			}
			exact[i] = m
			return nil
		})
		g.Go(func() error {
			m, err := x.store.FindSubstring(gctx, field, query)
			if err != nil {
				return storeError("find_substring", field, err)
			}
			partial[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := newMatchSet()
	for i := range fields {
		hits := make(map[lexicon.EntryID]*fieldHit)
		var seen []lexicon.EntryID

		record := func(m lexicon.Match) {
			tier := TierSubstring
			if m.Value == query {
				tier = TierExact
			}
			length := utf8.RuneCountInString(m.Value)
			h, ok := hits[m.EntryID]
			if !ok {
				hits[m.EntryID] = &fieldHit{tier: tier, length: length}
				seen = append(seen, m.EntryID)
				return
			}
			if tier < h.tier {
				h.tier = tier
			}
			if length < h.length {
				h.length = length
			}
		}
		for _, m := range exact[i] {
			record(m)
		}
		for _, m := range partial[i] {
			record(m)
		}

		for _, id := range seen {
			h := hits[id]
			set.add(id, h.tier, h.length)
		}
	}
	return set, nil
}

// fallback runs the indexed prefix lookup per field. Everything it finds is
// TierFallback. Gloss queries are stemmed; spelling and reading are only folded.
func (x *executor) fallback(ctx context.Context, query string, fields []lexicon.Field) (*matchSet, map[lexicon.Field]string, error) {
	queries := make(map[lexicon.Field]string, len(fields))
	for _, field := range fields {
		if q := textfold.WildcardQuery(query, field == lexicon.FieldGloss); q != "" {
			queries[field] = q
		}
	}

	results := make([][]lexicon.Match, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		q, ok := queries[field]
		if !ok {
			continue
		}
		g.Go(func() error {
			m, err := x.store.FindIndexed(gctx, field, q)
			if err != nil {
				return storeError("find_indexed", field, err)
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	set := newMatchSet()
	for _, matches := range results {
		for _, m := range matches {
			set.add(m.EntryID, TierFallback, utf8.RuneCountInString(m.Value))
		}
	}
	return set, queries, nil
}

// storeError keeps cancellation distinguishable from a failing store.
func storeError(op string, field lexicon.Field, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, field, err)
	}
	return lexerrors.StoreUnavailable(op, err).WithDetail("field", field.String())
}

func storeEntryError(op string, id lexicon.EntryID, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	return lexerrors.StoreUnavailable(op, err).WithDetail("entry_id", fmt.Sprint(int64(id)))
}
