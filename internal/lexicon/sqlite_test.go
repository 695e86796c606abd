package lexicon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
)

func TestSQLiteStore_FindExact(t *testing.T) {
	// Given: the sample lexicon
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	// When: looking up an exact spelling
	matches, err := s.FindExact(ctx, FieldSpelling, "食べる")
	require.NoError(t, err)

	// Then: only the equal value matches
	assert.Equal(t, []Match{{EntryID: 1, Value: "食べる"}}, matches)

	// And: a prefix is not an exact match
	matches, err = s.FindExact(ctx, FieldSpelling, "食べ")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteStore_FindSubstring_InsertionOrder(t *testing.T) {
	s := newTestSQLiteStore(t)

	matches, err := s.FindSubstring(context.Background(), FieldSpelling, "食べ")
	require.NoError(t, err)

	assert.Equal(t, []Match{
		{EntryID: 1, Value: "食べる"},
		{EntryID: 2, Value: "食べ物"},
	}, matches)
}

func TestSQLiteStore_FindSubstring_IncludesExact(t *testing.T) {
	s := newTestSQLiteStore(t)

	matches, err := s.FindSubstring(context.Background(), FieldGloss, "food")
	require.NoError(t, err)

	assert.Equal(t, []Match{{EntryID: 2, Value: "food"}}, matches)
}

func TestSQLiteStore_FindSubstring_FieldScoped(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	// "eat" appears in a gloss but in no reading
	glossMatches, err := s.FindSubstring(ctx, FieldGloss, "eat")
	require.NoError(t, err)
	readingMatches, err := s.FindSubstring(ctx, FieldReading, "eat")
	require.NoError(t, err)

	assert.Equal(t, []EntryID{1}, entryIDs(glossMatches))
	assert.Empty(t, readingMatches)
}

func TestSQLiteStore_FindSubstring_LiteralPercent(t *testing.T) {
	// Given: LIKE metacharacters in the query
	s := newTestSQLiteStore(t)

	// When/Then: they are matched literally
	matches, err := s.FindSubstring(context.Background(), FieldGloss, "%")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteStore_FindIndexed_Prefix(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		field Field
		query string
		want  []EntryID
	}{
		{"gloss prefix", FieldGloss, "drink*", []EntryID{3}},
		{"gloss stem", FieldGloss, "provis*", []EntryID{2}},
		{"all terms required", FieldGloss, "to* eat*", []EntryID{1}},
		{"reading prefix", FieldReading, "たべ*", []EntryID{1, 2}},
		{"exact term only", FieldGloss, "foo", nil},
		{"no terms", FieldGloss, "*", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := s.FindIndexed(ctx, tt.field, tt.query)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, matches)
				return
			}
			assert.Equal(t, tt.want, entryIDs(matches))
		})
	}
}

func TestSQLiteStore_FindIndexed_QuotesAreSafe(t *testing.T) {
	s := newTestSQLiteStore(t)

	matches, err := s.FindIndexed(context.Background(), FieldGloss, `"eat* AND(`)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteStore_EntryValues(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	spellings, err := s.Spellings(ctx, 1)
	require.NoError(t, err)
	readings, err := s.Readings(ctx, 2)
	require.NoError(t, err)
	glosses, err := s.Glosses(ctx, 3)
	require.NoError(t, err)
	none, err := s.Spellings(ctx, 4)
	require.NoError(t, err)

	assert.Equal(t, []string{"食べる", "喰べる"}, spellings)
	assert.Equal(t, []string{"たべもの"}, readings)
	assert.Equal(t, []string{"to drink", "to swallow"}, glosses)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestSQLiteStore_Import_ReplacesContent(t *testing.T) {
	// Given: a populated store
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	// When: importing a smaller lexicon
	stats, err := s.Import(ctx, []Entry{
		{ID: 9, Spellings: []string{"水"}, Readings: []string{"みず"}, Glosses: []string{"water"}},
	}, "second")
	require.NoError(t, err)

	// Then: only the new content is visible
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 3, stats.Values)

	old, err := s.FindExact(ctx, FieldSpelling, "食べる")
	require.NoError(t, err)
	assert.Empty(t, old)

	indexed, err := s.FindIndexed(ctx, FieldGloss, "eat*")
	require.NoError(t, err)
	assert.Empty(t, indexed)

	fresh, err := s.FindExact(ctx, FieldGloss, "water")
	require.NoError(t, err)
	assert.Equal(t, []EntryID{9}, entryIDs(fresh))
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestSQLiteStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 4, stats.Spellings)
	assert.Equal(t, 4, stats.Readings)
	assert.Equal(t, 6, stats.Glosses)
	assert.Equal(t, 14, stats.IndexDocs)
	assert.Equal(t, "test", stats.Source)
	assert.False(t, stats.ImportedAt.IsZero())
}

func TestSQLiteStore_Entries_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sampleEntries(), entries)
}

func TestSQLiteStore_Persistence(t *testing.T) {
	// Given: a file-backed store with data
	path := filepath.Join(t.TempDir(), "lexicon.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.Import(context.Background(), sampleEntries(), "test")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// When: reopening
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	// Then: the data is still there
	matches, err := reopened.FindExact(context.Background(), FieldReading, "のむ")
	require.NoError(t, err)
	assert.Equal(t, []EntryID{3}, entryIDs(matches))
}

func TestSQLiteStore_CorruptFileIsReported(t *testing.T) {
	// Given: a database path holding garbage
	path := filepath.Join(t.TempDir(), "lexicon.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o644))

	// When: opening it
	_, err := NewSQLiteStore(path)

	// Then: the corruption is reported and the file is left alone
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeCorruptLexicon, lexerrors.GetCode(err))
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "not a database", string(data))
}

func TestValidateIntegrity_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, validateIntegrity(filepath.Join(t.TempDir(), "absent.db")))
}

func TestSQLiteStore_Closed(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.FindExact(context.Background(), FieldGloss, "x")
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeStoreClosed, lexerrors.GetCode(err))
}

func TestFTSExpression(t *testing.T) {
	assert.Equal(t, `"eat"* AND "quick"`, ftsExpression("eat* quick"))
	assert.Equal(t, `"a""b"*`, ftsExpression(`a"b*`))
	assert.Equal(t, "", ftsExpression("  "))
}
