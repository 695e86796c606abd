package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
)

// Results prints a lookup response. With explain set, a summary of how the
// lookup was answered follows the results.
func (w *Writer) Results(resp *search.Response, explain bool) {
	s := w.styles
	if len(resp.Results) == 0 {
		query := ""
		if resp.Explain != nil {
			query = resp.Explain.Query
		}
		_, _ = fmt.Fprintf(w.out, "%s\n", s.Dim.Render(fmt.Sprintf("No entries match %q", query)))
	}

	for i, r := range resp.Results {
		head := strings.Join(r.Spellings, ", ")
		reading := strings.Join(r.Readings, ", ")
		line := s.Index.Render(fmt.Sprintf("%2d.", i+1)) + " "
		if head != "" {
			line += s.Headword.Render(head) + " " + s.Reading.Render("["+reading+"]")
		} else {
			line += s.Headword.Render(reading)
		}
		_, _ = fmt.Fprintln(w.out, line)
		_, _ = fmt.Fprintf(w.out, "    %s\n", s.Gloss.Render(strings.Join(r.Glosses, "; ")))
	}

	if explain && resp.Explain != nil {
		w.Newline()
		w.explain(resp.Explain)
	}
}

func (w *Writer) explain(e *search.Explain) {
	fields := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = f.String()
	}

	rows := [][2]string{
		{"class", e.Class.String()},
		{"fields", strings.Join(fields, ", ")},
		{"phase", e.Phase.String()},
	}
	if len(e.FallbackQueries) > 0 {
		keys := make([]string, 0, len(e.FallbackQueries))
		for k := range e.FallbackQueries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + e.FallbackQueries[k]
		}
		rows = append(rows, [2]string{"fallback", strings.Join(parts, " ")})
	}
	rows = append(rows,
		[2]string{"candidates", fmt.Sprintf("%d (truncated: %t)", e.Candidates, e.Truncated)},
		[2]string{"latency", e.Latency.Round(time.Microsecond).String()},
	)
	w.rows(rows)
}

// Stats prints lexicon statistics and, when snap is non-nil, query telemetry.
func (w *Writer) Stats(st *lexicon.Stats, snap *telemetry.Snapshot) {
	imported := "never"
	if !st.ImportedAt.IsZero() {
		imported = st.ImportedAt.UTC().Format(time.RFC3339)
	}
	source := st.Source
	if source == "" {
		source = "-"
	}

	_, _ = fmt.Fprintln(w.out, w.styles.Headword.Render("Lexicon"))
	w.rows([][2]string{
		{"entries", fmt.Sprint(st.Entries)},
		{"spellings", fmt.Sprint(st.Spellings)},
		{"readings", fmt.Sprint(st.Readings)},
		{"glosses", fmt.Sprint(st.Glosses)},
		{"backend", st.Backend},
		{"index docs", fmt.Sprint(st.IndexDocs)},
		{"source", source},
		{"imported", imported},
	})

	if snap == nil || snap.TotalQueries == 0 {
		return
	}
	w.Newline()
	_, _ = fmt.Fprintln(w.out, w.styles.Headword.Render("Queries"))
	w.rows([][2]string{
		{"total", fmt.Sprint(snap.TotalQueries)},
		{"failed", fmt.Sprint(snap.FailedQueries)},
		{"zero results", fmt.Sprintf("%d (%.1f%%)", snap.ZeroResultCount, snap.ZeroResultPercentage())},
		{"fallback", fmt.Sprintf("%.1f%%", snap.FallbackPercentage(search.PhaseFallback.String()))},
	})
}

func (w *Writer) rows(rows [][2]string) {
	for _, r := range rows {
		label := w.styles.Label.Render(fmt.Sprintf("%-12s", r[0]))
		_, _ = fmt.Fprintf(w.out, "  %s %s\n", label, r[1])
	}
}
