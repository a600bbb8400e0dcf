// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"
	"unicode"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Deduplicate returns papers with duplicates removed, preserving first-seen
// order. Two papers are duplicates when their DedupKey values are equal; the
// first occurrence wins regardless of source.
func Deduplicate(papers []types.Paper) []types.Paper {
	seen := make(map[string]struct{}, len(papers))
	deduped := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		key := DedupKey(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, p)
	}
	return deduped
}

// DedupKey returns "doi:" plus the lower-cased DOI when the paper has one,
// otherwise "title:" plus the normalized title.
func DedupKey(p types.Paper) string {
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}
	return "title:" + normalizeTitle(p.Title)
}

// normalizeTitle lower-cases the title and strips everything that is not a
// letter or digit, so "Sleep, Stress & Cortisol" and "sleep stress cortisol"
// share a key.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
