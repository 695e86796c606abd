package lexicon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBleveIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Rebuild(context.Background(), sampleEntries()))
	return idx
}

func TestBleveIndex_FindIndexed(t *testing.T) {
	idx := newTestBleveIndex(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		field Field
		query string
		want  []Match
	}{
		{
			name:  "gloss prefix",
			field: FieldGloss,
			query: "drink*",
			want:  []Match{{EntryID: 3, Value: "to drink"}},
		},
		{
			name:  "reading prefix keeps insertion order",
			field: FieldReading,
			query: "たべ*",
			want:  []Match{{EntryID: 1, Value: "たべる"}, {EntryID: 2, Value: "たべもの"}},
		},
		{
			name:  "all terms required",
			field: FieldGloss,
			query: "to* swal*",
			want:  []Match{{EntryID: 3, Value: "to swallow"}},
		},
		{
			name:  "field scoped",
			field: FieldSpelling,
			query: "drink*",
			want:  []Match{},
		},
		{
			name:  "exact term",
			field: FieldGloss,
			query: "coffee",
			want:  []Match{{EntryID: 4, Value: "coffee"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := idx.FindIndexed(ctx, tt.field, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, matches)
		})
	}
}

func TestBleveIndex_Rebuild_Replaces(t *testing.T) {
	// Given: an index over the sample lexicon
	idx := newTestBleveIndex(t)
	ctx := context.Background()

	// When: rebuilding with one entry
	require.NoError(t, idx.Rebuild(ctx, []Entry{
		{ID: 7, Readings: []string{"みず"}, Glosses: []string{"water"}},
	}))

	// Then: only that entry is indexed
	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches, err := idx.FindIndexed(ctx, FieldGloss, "drink*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBleveIndex_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.bleve")

	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(context.Background(), sampleEntries()))
	require.NoError(t, idx.Close())

	reopened, err := NewBleveIndex(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	matches, err := reopened.FindIndexed(context.Background(), FieldGloss, "coff*")
	require.NoError(t, err)
	assert.Equal(t, []EntryID{4}, entryIDs(matches))
}

func TestBleveIndex_Closed(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.FindIndexed(context.Background(), FieldGloss, "x*")
	assert.Error(t, err)
}

func TestDocID_RoundTrip(t *testing.T) {
	field, id, err := parseDocID(docID(FieldReading, 42, 7))
	require.NoError(t, err)
	assert.Equal(t, FieldReading, field)
	assert.Equal(t, EntryID(42), id)

	_, _, err = parseDocID("bogus")
	assert.Error(t, err)
}

func TestTermsTokenizer(t *testing.T) {
	stream := (&termsTokenizer{}).Tokenize([]byte("to eat, 食べる"))

	require.Len(t, stream, 3)
	assert.Equal(t, "to", string(stream[0].Term))
	assert.Equal(t, "食べる", string(stream[2].Term))
	assert.Equal(t, 3, stream[2].Position)
}
