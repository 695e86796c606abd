package mcp

import (
	"fmt"
	"strings"
)

// FormatLookup renders lookup results as markdown for the tool's text content.
func FormatLookup(query string, out LookupOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No entries found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Entries for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d entr", len(out.Results)))
	if len(out.Results) == 1 {
		sb.WriteString("y")
	} else {
		sb.WriteString("ies")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		sb.WriteString(fmt.Sprintf("%d. ", i+1))
		if len(r.Spellings) > 0 {
			sb.WriteString(fmt.Sprintf("**%s** (%s)", strings.Join(r.Spellings, ", "), strings.Join(r.Readings, ", ")))
		} else {
			sb.WriteString(fmt.Sprintf("**%s**", strings.Join(r.Readings, ", ")))
		}
		sb.WriteString(": ")
		sb.WriteString(strings.Join(r.Glosses, "; "))
		sb.WriteString("\n")
	}

	if e := out.Explain; e != nil {
		sb.WriteString(fmt.Sprintf("\n_%s query, %s match on %s, %d candidates_\n",
			e.Class, e.Phase, strings.Join(e.Fields, "/"), e.Candidates))
	}

	return sb.String()
}
