// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func sampleResult() types.SearchResult {
	return types.SearchResult{
		Keywords: []string{"post-lunch dip", "circadian rhythm"},
		Papers: []types.RankedPaper{
			{
				Paper: types.Paper{
					ID:            "pubmed_111",
					Title:         "Post-lunch dip in alertness",
					Abstract:      "Alertness falls in the early afternoon.",
					URL:           "https://pubmed.ncbi.nlm.nih.gov/111/",
					Year:          2021,
					CitationCount: 42,
					DOI:           "10.1000/dip",
					Source:        types.SourcePubMed,
				},
				Rank:           1,
				CompositeScore: 0.9123,
			},
			{
				Paper: types.Paper{
					ID:     "healthline_abc",
					Title:  "Why you feel tired after eating",
					URL:    "https://www.healthline.com/nutrition/tired-after-eating",
					Source: types.SourceHealthline,
				},
				Rank:           2,
				CompositeScore: 0.41,
			},
		},
		Consensus:   types.ConsensusResult{Score: 0.62, Level: types.ConsensusEmerging, Rationale: "Coverage=0.75, lexical=0.20, sources=2"},
		Success:     false,
		RetryNeeded: true,
		Diagnostics: types.Diagnostics{RunID: "run-1", Rounds: 3, UniquePapers: 2, Elapsed: 1234567 * time.Microsecond},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleResult(), &buf)
	out := buf.String()

	assert.Contains(t, out, "Keywords: post-lunch dip, circadian rhythm")
	assert.Contains(t, out, "Post-lunch dip in alertness")
	assert.Contains(t, out, "2021")
	assert.Contains(t, out, "0.9123")
	assert.Contains(t, out, "Consensus: emerging (0.620)")
	assert.Contains(t, out, "2 papers from 2 unique in 3 rounds (1.235s)")
	assert.Contains(t, out, "retry needed")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.SearchResult{
		Papers:    []types.RankedPaper{},
		Consensus: types.ConsensusResult{Score: 0.3, Level: types.ConsensusLow},
	}, &buf)

	out := buf.String()
	assert.Contains(t, out, "No results found.")
	assert.NotContains(t, out, "Keywords:")
	assert.NotContains(t, out, "retry needed")
}

func TestFormatTableTruncatesLongTitles(t *testing.T) {
	r := sampleResult()
	r.Papers[0].Title = strings.Repeat("long ", 30)
	var buf bytes.Buffer
	FormatTable(r, &buf)
	assert.Contains(t, buf.String(), "...")
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleResult(), &buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, true, got["retry_needed"])
	papers, ok := got["papers"].([]any)
	require.True(t, ok)
	require.Len(t, papers, 2)
	first := papers[0].(map[string]any)
	assert.Equal(t, "pubmed_111", first["id"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestFormatCSL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatCSL(sampleResult(), &buf))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "pubmed_111", items[0].ID)
	assert.Equal(t, "article-journal", items[0].Type)
	assert.Equal(t, "10.1000/dip", items[0].DOI)
	require.NotNil(t, items[0].Issued)
	assert.Equal(t, [][]int{{2021}}, items[0].Issued.DateParts)

	assert.Equal(t, "webpage", items[1].Type)
	assert.Nil(t, items[1].Issued)
	assert.Contains(t, buf.String(), "date-parts")
}

func TestRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	cfg := types.DefaultConfig()
	cfg.PubMed.Enabled = false

	require.NoError(t, WriteRecord(path, "why am I tired after lunch", cfg, sampleResult()))

	rec, err := ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, "why am I tired after lunch", rec.Query)
	assert.Equal(t, 10, rec.Config.TargetCount)
	assert.Equal(t, []string{"semantic_scholar", "healthline"}, rec.Config.Sources)
	assert.False(t, rec.Timestamp.IsZero())
	require.Len(t, rec.Result.Papers, 2)
	assert.Equal(t, "Post-lunch dip in alertness", rec.Result.Papers[0].Title)
	assert.Equal(t, types.ConsensusEmerging, rec.Result.Consensus.Level)
}

func TestReadRecordMissing(t *testing.T) {
	_, err := ReadRecord(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
