package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexsearch/internal/config"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
)

// fakeSearcher records the last call and returns canned responses.
type fakeSearcher struct {
	resp      *search.Response
	err       error
	lastQuery string
	lastOpts  search.LookupOptions
}

func (f *fakeSearcher) Lookup(_ context.Context, query string, opts search.LookupOptions) (*search.Response, error) {
	f.lastQuery = query
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeStats struct {
	stats *lexicon.Stats
	err   error
}

func (f *fakeStats) Stats(context.Context) (*lexicon.Stats, error) {
	return f.stats, f.err
}

func sampleEntries() []lexicon.Entry {
	return []lexicon.Entry{
		{ID: 1, Spellings: []string{"食べる", "喰べる"}, Readings: []string{"たべる"}, Glosses: []string{"to eat"}},
		{ID: 2, Spellings: []string{"食べ物"}, Readings: []string{"たべもの"}, Glosses: []string{"food", "provisions"}},
		{ID: 3, Spellings: []string{"飲む"}, Readings: []string{"のむ"}, Glosses: []string{"to drink", "to swallow"}},
		{ID: 4, Readings: []string{"コーヒー"}, Glosses: []string{"coffee"}},
	}
}

// newLexiconServer wires a real in-memory lexicon and engine behind the server.
func newLexiconServer(t *testing.T) (*Server, *telemetry.QueryMetrics) {
	t.Helper()
	ctx := context.Background()

	lex, err := lexicon.Open(ctx, lexicon.Options{Backend: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lex.Close() })

	_, err = lex.Import(ctx, sampleEntries(), "test")
	require.NoError(t, err)

	metrics := telemetry.NewQueryMetrics()
	engine, err := search.NewEngine(lex.Store(), search.DefaultConfig(), search.WithMetrics(metrics))
	require.NoError(t, err)

	srv, err := NewServer(engine, lex, config.NewConfig())
	require.NoError(t, err)
	srv.SetMetrics(metrics)
	return srv, metrics
}

func lookupIDs(out LookupOutput) []int64 {
	ids := make([]int64, len(out.Results))
	for i, r := range out.Results {
		ids[i] = r.EntryID
	}
	return ids
}

// =============================================================================
// Construction
// =============================================================================

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, &fakeStats{}, nil)
	assert.Error(t, err)

	_, err = NewServer(&fakeSearcher{}, nil, nil)
	assert.Error(t, err)
}

func TestNewServer_DefaultsConfig(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, srv.config)
	assert.NotNil(t, srv.MCPServer())
	assert.NoError(t, srv.Close())
}

func TestListTools(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)

	names := []string{}
	for _, tool := range srv.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{ToolLookup, ToolLexiconStatus}, names)
}

// =============================================================================
// lookup
// =============================================================================

func TestCallTool_LookupAgainstLexicon(t *testing.T) {
	// Given: a server over the sample lexicon
	srv, _ := newLexiconServer(t)

	tests := []struct {
		query string
		want  []int64
	}{
		{"食べ", []int64{1, 2}},
		{"eat", []int64{1}},
		{"drinking", []int64{3}},
		{"xyzzy", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			// When: calling the lookup tool
			got, err := srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": tt.query})

			// Then: entries come back in rank order
			require.NoError(t, err)
			out, ok := got.(LookupOutput)
			require.True(t, ok)
			assert.Equal(t, tt.want, lookupIDs(out))
			assert.Nil(t, out.Explain)
		})
	}
}

func TestCallTool_LookupExplain(t *testing.T) {
	srv, _ := newLexiconServer(t)

	got, err := srv.CallTool(context.Background(), ToolLookup, map[string]any{
		"query":   "drinking",
		"explain": true,
	})

	require.NoError(t, err)
	out := got.(LookupOutput)
	require.NotNil(t, out.Explain)
	assert.Equal(t, "alphabetic", out.Explain.Class)
	assert.Equal(t, []string{"gloss"}, out.Explain.Fields)
	assert.Equal(t, "fallback", out.Explain.Phase)
	assert.Equal(t, "drink*", out.Explain.FallbackQueries["gloss"])
}

func TestCallTool_LookupPassesLimit(t *testing.T) {
	fake := &fakeSearcher{resp: &search.Response{Results: []*search.Result{}}}
	srv, err := NewServer(fake, &fakeStats{}, nil)
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": "た", "limit": 5})

	require.NoError(t, err)
	assert.Equal(t, "た", fake.lastQuery)
	assert.Equal(t, 5, fake.lastOpts.Limit)
}

func TestCallTool_LookupEmptyQueryIsNotAnError(t *testing.T) {
	srv, _ := newLexiconServer(t)

	got, err := srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": ""})

	require.NoError(t, err)
	assert.Empty(t, got.(LookupOutput).Results)
}

func TestCallTool_LookupRejectsNegativeLimit(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": "た", "limit": -1})

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_LookupRejectsBadArgumentTypes(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": 42})

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestCallTool_LookupStoreFailure(t *testing.T) {
	// Given: a searcher whose store is down
	fake := &fakeSearcher{err: lexerrors.StoreUnavailable("find_exact", errors.New("database is locked"))}
	srv, err := NewServer(fake, &fakeStats{}, nil)
	require.NoError(t, err)

	// When: looking up
	_, err = srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": "た"})

	// Then: the failure is reported with the store code, not as an empty result
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeStoreUnavailable, mcpErr.Code)
}

func TestCallTool_UnknownTool(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), "define", nil)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestMCPLookupHandler_ReturnsMarkdownAndStructured(t *testing.T) {
	srv, _ := newLexiconServer(t)

	res, out, err := srv.mcpLookupHandler(context.Background(), nil, LookupInput{Query: "eat"})

	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	assert.Equal(t, []int64{1}, lookupIDs(out))
}

// =============================================================================
// lexicon_status and query_metrics
// =============================================================================

func TestCallTool_LexiconStatus(t *testing.T) {
	// Given: a server that has answered two lookups
	srv, _ := newLexiconServer(t)
	ctx := context.Background()
	_, err := srv.CallTool(ctx, ToolLookup, map[string]any{"query": "eat"})
	require.NoError(t, err)
	_, err = srv.CallTool(ctx, ToolLookup, map[string]any{"query": "xyzzy"})
	require.NoError(t, err)

	// When: asking for status
	got, err := srv.CallTool(ctx, ToolLexiconStatus, nil)

	// Then: lexicon counts and session stats are reported
	require.NoError(t, err)
	out := got.(*StatusOutput)
	assert.Equal(t, 4, out.Lexicon.Entries)
	assert.Equal(t, "sqlite", out.Lexicon.Backend)
	assert.Equal(t, "test", out.Lexicon.Source)
	assert.NotEmpty(t, out.Lexicon.ImportedAt)
	require.NotNil(t, out.Queries)
	assert.Equal(t, int64(2), out.Queries.Total)
	assert.InDelta(t, 50.0, out.Queries.ZeroResultPct, 0.01)
	assert.Equal(t, []string{"xyzzy"}, out.Queries.ZeroResultQueries)
}

func TestCallTool_LexiconStatusWithoutMetrics(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{stats: &lexicon.Stats{Entries: 7, Backend: "bleve"}}, nil)
	require.NoError(t, err)

	got, err := srv.CallTool(context.Background(), ToolLexiconStatus, nil)

	require.NoError(t, err)
	out := got.(*StatusOutput)
	assert.Equal(t, 7, out.Lexicon.Entries)
	assert.Empty(t, out.Lexicon.ImportedAt)
	assert.Nil(t, out.Queries)
}

func TestCallTool_LexiconStatusFailure(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{err: lexerrors.StoreUnavailable("stats", errors.New("closed"))}, nil)
	require.NoError(t, err)

	_, err = srv.CallTool(context.Background(), ToolLexiconStatus, nil)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeStoreUnavailable, mcpErr.Code)
}

func TestQueryMetricsResource(t *testing.T) {
	// Given: a server with metrics after a fallback lookup
	srv, _ := newLexiconServer(t)
	_, err := srv.CallTool(context.Background(), ToolLookup, map[string]any{"query": "drinking"})
	require.NoError(t, err)

	// When: reading the resource handler
	res, err := srv.makeQueryMetricsHandler()(context.Background(), nil)

	// Then: it is JSON with the session's counts
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, QueryMetricsURI, res.Contents[0].URI)

	var body QueryMetricsOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &body))
	assert.Equal(t, "session", body.TimePeriod)
	assert.Equal(t, int64(1), body.Queries.Total)
	assert.Equal(t, int64(1), body.PhaseCounts["fallback"])
	assert.InDelta(t, 100.0, body.Queries.FallbackPct, 0.01)
}

func TestQueryMetricsResource_Unavailable(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)

	_, err = srv.makeQueryMetricsHandler()(context.Background(), nil)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestServe_UnknownTransport(t *testing.T) {
	srv, err := NewServer(&fakeSearcher{}, &fakeStats{}, nil)
	require.NoError(t, err)

	err = srv.Serve(context.Background(), "sse")
	assert.ErrorContains(t, err, "unknown transport")
}
