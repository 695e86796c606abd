package mcp

import (
	"time"

	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
)

// LookupInput defines the input schema for the lookup tool.
type LookupInput struct {
	Query   string `json:"query" jsonschema:"word to look up: kanji, kana, English, or a mix"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of entries, 1-50, default from config"`
	Explain bool   `json:"explain,omitempty" jsonschema:"include how the lookup was answered"`
}

// LookupOutput defines the output schema for the lookup tool.
type LookupOutput struct {
	Results []LookupResult `json:"results" jsonschema:"matching entries, best match first"`
	Explain *LookupExplain `json:"explain,omitempty" jsonschema:"how the lookup was answered"`
}

// LookupResult is one lexicon entry.
type LookupResult struct {
	EntryID   int64    `json:"entry_id"`
	Spellings []string `json:"spellings" jsonschema:"written forms in kanji"`
	Readings  []string `json:"readings" jsonschema:"kana readings"`
	Glosses   []string `json:"glosses" jsonschema:"English meanings"`
}

// LookupExplain mirrors search.Explain with plain types.
type LookupExplain struct {
	Class           string            `json:"class" jsonschema:"script class: logographic, phonetic, alphabetic or mixed"`
	Fields          []string          `json:"fields" jsonschema:"fields searched"`
	Phase           string            `json:"phase" jsonschema:"structured or fallback"`
	FallbackQueries map[string]string `json:"fallback_queries,omitempty"`
	Candidates      int               `json:"candidates" jsonschema:"matches before truncation"`
	Truncated       bool              `json:"truncated"`
	LatencyMS       float64           `json:"latency_ms"`
}

// StatusInput defines the input schema for the lexicon_status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the lexicon_status tool.
type StatusOutput struct {
	Lexicon LexiconInfo `json:"lexicon"`
	Queries *QueryInfo  `json:"queries,omitempty"`
}

// LexiconInfo describes the loaded lexicon.
type LexiconInfo struct {
	Entries    int    `json:"entries"`
	Spellings  int    `json:"spellings"`
	Readings   int    `json:"readings"`
	Glosses    int    `json:"glosses"`
	Backend    string `json:"backend"`
	IndexDocs  int    `json:"index_docs"`
	Source     string `json:"source,omitempty"`
	ImportedAt string `json:"imported_at,omitempty"`
}

// QueryInfo summarizes lookups served by this process.
type QueryInfo struct {
	Total             int64            `json:"total"`
	Failed            int64            `json:"failed"`
	ZeroResultPct     float64          `json:"zero_result_pct"`
	FallbackPct       float64          `json:"fallback_pct"`
	ClassCounts       map[string]int64 `json:"class_counts"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []string         `json:"zero_result_queries"`
}

// QueryCount is a repeated query and how often it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

func toLookupOutput(resp *search.Response, explain bool) LookupOutput {
	out := LookupOutput{Results: make([]LookupResult, 0, len(resp.Results))}
	for _, r := range resp.Results {
		out.Results = append(out.Results, LookupResult{
			EntryID:   int64(r.EntryID),
			Spellings: r.Spellings,
			Readings:  r.Readings,
			Glosses:   r.Glosses,
		})
	}

	if explain && resp.Explain != nil {
		e := resp.Explain
		fields := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			fields[i] = f.String()
		}
		out.Explain = &LookupExplain{
			Class:           e.Class.String(),
			Fields:          fields,
			Phase:           e.Phase.String(),
			FallbackQueries: e.FallbackQueries,
			Candidates:      e.Candidates,
			Truncated:       e.Truncated,
			LatencyMS:       float64(e.Latency) / float64(time.Millisecond),
		}
	}
	return out
}

func toStatusOutput(st *lexicon.Stats, snap *telemetry.Snapshot) *StatusOutput {
	out := &StatusOutput{Lexicon: LexiconInfo{
		Entries:   st.Entries,
		Spellings: st.Spellings,
		Readings:  st.Readings,
		Glosses:   st.Glosses,
		Backend:   st.Backend,
		IndexDocs: st.IndexDocs,
		Source:    st.Source,
	}}
	if !st.ImportedAt.IsZero() {
		out.Lexicon.ImportedAt = st.ImportedAt.UTC().Format(time.RFC3339)
	}

	if snap != nil {
		out.Queries = toQueryInfo(snap)
	}
	return out
}

func toQueryInfo(snap *telemetry.Snapshot) *QueryInfo {
	q := &QueryInfo{
		Total:             snap.TotalQueries,
		Failed:            snap.FailedQueries,
		ZeroResultPct:     snap.ZeroResultPercentage(),
		FallbackPct:       snap.FallbackPercentage(search.PhaseFallback.String()),
		ClassCounts:       snap.ClassCounts,
		TopQueries:        make([]QueryCount, 0, len(snap.TopQueries)),
		ZeroResultQueries: snap.ZeroResultQueries,
	}
	for _, tq := range snap.TopQueries {
		q.TopQueries = append(q.TopQueries, QueryCount{Query: tq.Query, Count: tq.Count})
	}
	return q
}
