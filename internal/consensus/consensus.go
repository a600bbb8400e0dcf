// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package consensus estimates how strongly a set of retrieved papers agree,
// from keyword coverage, pairwise lexical overlap and source diversity.
package consensus

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	insufficientScore = 0.3
	noTextScore       = 0.35

	coverageWeight    = 0.4
	lexicalWeight     = 0.4
	diversityBonus    = 0.1
	baselineOffset    = 0.1
	neutralCoverage   = 0.5
	highThreshold     = 0.7
	emergingThreshold = 0.5
	mixedThreshold    = 0.3
)

// Score computes the consensus over papers for the given search keywords.
// Fewer than two papers always scores 0.3 (low). The text basis is the
// non-empty abstracts, or the titles when no paper has an abstract.
func Score(papers []types.RankedPaper, keywords []string) types.ConsensusResult {
	if len(papers) < 2 {
		return types.ConsensusResult{
			Score:     insufficientScore,
			Level:     types.ConsensusLow,
			Rationale: "Limited evidence retrieved; consensus cannot be inferred.",
		}
	}

	texts := textBasis(papers)
	if len(texts) == 0 {
		return types.ConsensusResult{
			Score:     noTextScore,
			Level:     types.ConsensusEmerging,
			Rationale: "No abstracts or titles to compare; treating consensus as emerging.",
		}
	}

	coverage := Coverage(texts, keywords)
	lexical := LexicalAgreement(texts)
	sources := distinctSources(papers)

	bonus := 0.0
	if sources > 1 {
		bonus = diversityBonus
	}
	score := clamp01(coverageWeight*coverage + lexicalWeight*lexical + bonus + baselineOffset)

	return types.ConsensusResult{
		Score:     math.Round(score*1000) / 1000,
		Level:     Level(score),
		Rationale: fmt.Sprintf("Coverage=%.2f, lexical=%.2f, sources=%d", coverage, lexical, sources),
	}
}

// Level buckets a score: >=0.7 high, >=0.5 emerging, >=0.3 mixed, else low.
func Level(score float64) types.ConsensusLevel {
	switch {
	case score >= highThreshold:
		return types.ConsensusHigh
	case score >= emergingThreshold:
		return types.ConsensusEmerging
	case score >= mixedThreshold:
		return types.ConsensusMixed
	default:
		return types.ConsensusLow
	}
}

// Coverage is the mean, over texts, of the fraction of keywords each text
// contains (case-insensitive substring). Without keywords every text counts
// as 0.5.
func Coverage(texts, keywords []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		cleaned = append(cleaned, strings.ToLower(k))
	}

	total := 0.0
	for _, text := range texts {
		if len(cleaned) == 0 {
			total += neutralCoverage
			continue
		}
		text = strings.ToLower(text)
		matched := 0
		for _, k := range cleaned {
			if strings.Contains(text, k) {
				matched++
			}
		}
		total += float64(matched) / float64(len(cleaned))
	}
	return total / float64(len(texts))
}

// LexicalAgreement is the mean Jaccard similarity over every unordered pair
// of token sets; 0 when there are fewer than two texts.
func LexicalAgreement(texts []string) float64 {
	sets := make([]map[string]struct{}, len(texts))
	for i, t := range texts {
		sets[i] = tokenSet(t)
	}

	total, pairs := 0.0, 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			total += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

func textBasis(papers []types.RankedPaper) []string {
	var abstracts, titles []string
	for _, p := range papers {
		if strings.TrimSpace(p.Abstract) != "" {
			abstracts = append(abstracts, strings.ToLower(p.Abstract))
		}
		if strings.TrimSpace(p.Title) != "" {
			titles = append(titles, strings.ToLower(p.Title))
		}
	}
	if len(abstracts) > 0 {
		return abstracts
	}
	return titles
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func distinctSources(papers []types.RankedPaper) int {
	seen := make(map[types.Source]struct{})
	for _, p := range papers {
		seen[p.Source] = struct{}{}
	}
	return len(seen)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
