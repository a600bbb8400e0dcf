// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// FormatTable writes a human-readable summary of r to w.
func FormatTable(r types.SearchResult, w io.Writer) {
	if len(r.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords: %s\n\n", strings.Join(r.Keywords, ", "))
	}
	if len(r.Papers) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-60s  %-4s  %-6s  %-6s  %s\n",
			"Rank", "Title", "Year", "Cites", "Score", "Source")
		fmt.Fprintln(w, strings.Repeat("-", 106))

		for _, p := range r.Papers {
			year := ""
			if p.HasYear() {
				year = fmt.Sprintf("%d", p.Year)
			}
			fmt.Fprintf(w, "%-4d  %-60s  %-4s  %-6d  %-6.4f  %s\n",
				p.Rank, truncate(p.Title, 60), year, p.CitationCount, p.CompositeScore, p.Source)
		}
	}

	fmt.Fprintf(w, "\nConsensus: %s (%.3f) %s\n", r.Consensus.Level, r.Consensus.Score, r.Consensus.Rationale)
	fmt.Fprintf(w, "%d papers from %d unique in %d rounds (%s)",
		len(r.Papers), r.Diagnostics.UniquePapers, r.Diagnostics.Rounds, r.Diagnostics.Elapsed.Round(time.Millisecond))
	if r.RetryNeeded {
		fmt.Fprint(w, ", target not reached: retry needed")
	}
	fmt.Fprintln(w)
}

// FormatJSON writes r as indented JSON to w.
func FormatJSON(r types.SearchResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
