// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence engine.
// A search produces source-neutral Papers from the provider backends, which
// are deduplicated, ranked into RankedPapers and summarised by a
// ConsensusResult inside a SearchResult.
package types

import "time"

// Source identifies the literature provider that produced a Paper.
type Source string

const (
	// SourceSemanticScholar is the citation-graph search provider.
	SourceSemanticScholar Source = "semantic_scholar"

	// SourcePubMed is the peer-reviewed biomedical index.
	SourcePubMed Source = "pubmed"

	// SourceHealthline is the curated knowledge base of medically reviewed articles.
	SourceHealthline Source = "healthline"
)

// Sources lists every provider in fan-out order.
var Sources = []Source{SourceSemanticScholar, SourcePubMed, SourceHealthline}

// Paper is a normalized record of one piece of scientific or medical
// literature. Backends construct Papers and nothing mutates them afterwards.
type Paper struct {
	// ID is prefixed with the source name so it is unique across providers
	// (e.g. "pubmed_38012345").
	ID string `json:"id" yaml:"id"`

	// Title is the paper or article title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract or summary; empty when the provider has none.
	Abstract string `json:"abstract" yaml:"abstract"`

	// URL is the canonical landing page.
	URL string `json:"url" yaml:"url"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// CitationCount is the number of citations, zero when unknown.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// DOI is the digital object identifier, empty when absent.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Source identifies which backend produced the paper.
	Source Source `json:"source" yaml:"source"`
}

// HasYear reports whether the publication year is known.
func (p Paper) HasYear() bool { return p.Year > 0 }

// RankedPaper is a Paper with the scores computed by the weighted ranker.
type RankedPaper struct {
	Paper `yaml:",inline"`

	// Rank is the 1-based position after sorting by CompositeScore descending.
	Rank int `json:"rank" yaml:"rank"`

	AuthorityScore     float64 `json:"authority_score" yaml:"authority_score"`
	RecencyScore       float64 `json:"recency_score" yaml:"recency_score"`
	SourceQualityScore float64 `json:"source_quality_score" yaml:"source_quality_score"`
	CompositeScore     float64 `json:"composite_score" yaml:"composite_score"`
}

// SearchResult is the structured answer of one engine search.
type SearchResult struct {
	// Keywords are the search terms derived from the query.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Papers is the ranked list, capped at the configured target count.
	Papers []RankedPaper `json:"papers" yaml:"papers"`

	Consensus ConsensusResult `json:"consensus" yaml:"consensus"`

	// Success is true when the target number of unique papers was reached.
	Success bool `json:"success" yaml:"success"`

	// RetryNeeded is always !Success. The caller decides what to do with it.
	RetryNeeded bool `json:"retry_needed" yaml:"retry_needed"`

	Diagnostics Diagnostics `json:"diagnostics" yaml:"diagnostics"`
}

// Diagnostics describes how a search ran. Nothing reads it for control flow.
type Diagnostics struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Rounds        int           `json:"rounds" yaml:"rounds"`
	UniquePapers  int           `json:"unique_papers" yaml:"unique_papers"`
	Elapsed       time.Duration `json:"elapsed" yaml:"elapsed"`
	BackendErrors []string      `json:"backend_errors,omitempty" yaml:"backend_errors,omitempty"`
}
