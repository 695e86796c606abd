package lexicon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		{ID: 1, Spellings: []string{"食べる", "喰べる"}, Readings: []string{"たべる"}, Glosses: []string{"to eat"}},
		{ID: 2, Spellings: []string{"食べ物"}, Readings: []string{"たべもの"}, Glosses: []string{"food", "provisions"}},
		{ID: 3, Spellings: []string{"飲む"}, Readings: []string{"のむ"}, Glosses: []string{"to drink", "to swallow"}},
		{ID: 4, Readings: []string{"コーヒー"}, Glosses: []string{"coffee"}},
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Import(context.Background(), sampleEntries(), "test")
	require.NoError(t, err)
	return s
}

func entryIDs(matches []Match) []EntryID {
	ids := make([]EntryID, len(matches))
	for i, m := range matches {
		ids[i] = m.EntryID
	}
	return ids
}
