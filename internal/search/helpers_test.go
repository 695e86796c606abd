package search

import (
	"context"
	"strings"
	"sync"

	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/textfold"
)

// fakeStore is an in-memory lexicon.Store that records calls and can be told
// to fail a given operation.
type fakeStore struct {
	entries []lexicon.Entry

	mu     sync.Mutex
	calls  map[string]int
	failOn map[string]error
}

var _ lexicon.Store = (*fakeStore)(nil)

func newFakeStore(entries ...lexicon.Entry) *fakeStore {
	return &fakeStore{
		entries: entries,
		calls:   make(map[string]int),
		failOn:  make(map[string]error),
	}
}

func sampleEntries() []lexicon.Entry {
	return []lexicon.Entry{
		{ID: 1, Spellings: []string{"食べる", "喰べる"}, Readings: []string{"たべる"}, Glosses: []string{"to eat"}},
		{ID: 2, Spellings: []string{"食べ物"}, Readings: []string{"たべもの"}, Glosses: []string{"food", "provisions"}},
		{ID: 3, Spellings: []string{"飲む"}, Readings: []string{"のむ"}, Glosses: []string{"to drink", "to swallow"}},
		{ID: 4, Readings: []string{"コーヒー"}, Glosses: []string{"coffee"}},
	}
}

func (s *fakeStore) fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

func (s *fakeStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *fakeStore) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *fakeStore) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failOn[op]
}

func (s *fakeStore) scan(field lexicon.Field, match func(string) bool) []lexicon.Match {
	var out []lexicon.Match
	for i := range s.entries {
		for _, v := range s.entries[i].Values(field) {
			if match(v) {
				out = append(out, lexicon.Match{EntryID: s.entries[i].ID, Value: v})
			}
		}
	}
	return out
}

func (s *fakeStore) FindExact(ctx context.Context, field lexicon.Field, value string) ([]lexicon.Match, error) {
	if err := s.enter("find_exact"); err != nil {
		return nil, err
	}
	return s.scan(field, func(v string) bool { return v == value }), ctx.Err()
}

func (s *fakeStore) FindSubstring(ctx context.Context, field lexicon.Field, value string) ([]lexicon.Match, error) {
	if err := s.enter("find_substring"); err != nil {
		return nil, err
	}
	return s.scan(field, func(v string) bool { return strings.Contains(v, value) }), ctx.Err()
}

func (s *fakeStore) FindIndexed(ctx context.Context, field lexicon.Field, query string) ([]lexicon.Match, error) {
	if err := s.enter("find_indexed"); err != nil {
		return nil, err
	}
	terms, prefix := textfold.ParseWildcardQuery(query)
	return s.scan(field, func(v string) bool {
		have := textfold.IndexTerms(v, field == lexicon.FieldGloss)
		for i, t := range terms {
			found := false
			for _, h := range have {
				if h == t || (prefix[i] && strings.HasPrefix(h, t)) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return len(terms) > 0
	}), ctx.Err()
}

func (s *fakeStore) values(op string, field lexicon.Field, id lexicon.EntryID) ([]string, error) {
	if err := s.enter(op); err != nil {
		return nil, err
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			return append([]string(nil), s.entries[i].Values(field)...), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Spellings(_ context.Context, id lexicon.EntryID) ([]string, error) {
	return s.values("spellings", lexicon.FieldSpelling, id)
}

func (s *fakeStore) Readings(_ context.Context, id lexicon.EntryID) ([]string, error) {
	return s.values("readings", lexicon.FieldReading, id)
}

func (s *fakeStore) Glosses(_ context.Context, id lexicon.EntryID) ([]string, error) {
	return s.values("glosses", lexicon.FieldGloss, id)
}

func resultIDs(results []*Result) []lexicon.EntryID {
	ids := make([]lexicon.EntryID, len(results))
	for i, r := range results {
		ids[i] = r.EntryID
	}
	return ids
}
