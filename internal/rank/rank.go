// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders a deduplicated paper set by a weighted composite of
// citation authority, publication recency and a per-source trust prior.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Rank scores every paper and returns them sorted by composite score,
// highest first, with dense 1-based ranks. Ties keep input order. now
// supplies the current year for the recency decay.
//
//	authority = log10(citations+1) / log10(maxCitations+1), 0 when max is 0
//	recency   = clamp01(1 - (year(now) - year) / horizon), or the neutral value
//	composite = wA*authority + wR*recency + wQ*sourceQuality
//
// All four scores are rounded to four decimals.
func Rank(papers []types.Paper, cfg types.RankConfig, now time.Time) []types.RankedPaper {
	if len(papers) == 0 {
		return []types.RankedPaper{}
	}

	maxCitations := 0
	for _, p := range papers {
		maxCitations = max(maxCitations, p.CitationCount)
	}

	ranked := make([]types.RankedPaper, len(papers))
	for i, p := range papers {
		authority := Authority(p.CitationCount, maxCitations)
		recency := Recency(p, now.Year(), cfg)
		quality := SourceQuality(p.Source, cfg)
		composite := cfg.Weights.Authority*authority +
			cfg.Weights.Recency*recency +
			cfg.Weights.SourceQuality*quality

		ranked[i] = types.RankedPaper{
			Paper:              p,
			AuthorityScore:     round4(authority),
			RecencyScore:       round4(recency),
			SourceQualityScore: round4(quality),
			CompositeScore:     round4(composite),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Authority is the log-scaled citation count relative to the batch maximum.
func Authority(citations, maxCitations int) float64 {
	if maxCitations <= 0 {
		return 0
	}
	return math.Log10(float64(max(citations, 0))+1) / math.Log10(float64(maxCitations)+1)
}

// Recency decays linearly from 1 for the current year to 0 at the horizon.
// Future years clamp to 1; papers without a year get the neutral value.
func Recency(p types.Paper, currentYear int, cfg types.RankConfig) float64 {
	if !p.HasYear() {
		return cfg.UnknownYearRecency
	}
	horizon := cfg.RecencyHorizonYears
	if horizon <= 0 {
		horizon = 20
	}
	return clamp01(1 - float64(currentYear-p.Year)/float64(horizon))
}

// SourceQuality returns the static trust prior for source.
func SourceQuality(source types.Source, cfg types.RankConfig) float64 {
	if q, ok := cfg.SourceQuality[source]; ok {
		return q
	}
	return cfg.UnknownSourceQuality
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
