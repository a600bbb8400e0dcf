// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,year,citationCount,url,externalIds"

// SemanticScholarBackend queries the Semantic Scholar citation graph.
type SemanticScholarBackend struct {
	Client *http.Client
	Config types.SemanticScholarConfig
}

// NewSemanticScholarBackend builds a backend with an HTTP client honouring cfg.Timeout.
func NewSemanticScholarBackend(cfg types.SemanticScholarConfig) *SemanticScholarBackend {
	return &SemanticScholarBackend{
		Client: &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
	}
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() types.Source { return types.SourceSemanticScholar }

// Search runs a single paper search. HTTP 429 is retried with backoff; any
// other non-200 status is an error without retry.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 15
	}

	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if b.Config.UserAgent != "" {
		req.Header.Set("User-Agent", b.Config.UserAgent)
	}
	if b.Config.APIKey != "" {
		req.Header.Set("x-api-key", b.Config.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.client(), req, b.Config.Retry)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	papers := make([]types.Paper, 0, len(sr.Data))
	for _, sp := range sr.Data {
		if sp.PaperID == "" {
			continue
		}
		papers = append(papers, sp.toPaper())
	}
	return papers, nil
}

func (b *SemanticScholarBackend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}

// toPaper maps an API record. The URL falls back to the DOI resolver and
// then to the paper's own Semantic Scholar page.
func (sp semanticPaper) toPaper() types.Paper {
	doi := strings.TrimSpace(sp.ExternalIDs.DOI)
	p := types.Paper{
		ID:            string(types.SourceSemanticScholar) + "_" + sp.PaperID,
		Title:         sp.Title,
		Abstract:      sp.Abstract,
		URL:           sp.URL,
		CitationCount: max(sp.CitationCount, 0),
		DOI:           doi,
		Source:        types.SourceSemanticScholar,
	}
	if sp.Year != nil {
		p.Year = *sp.Year
	}
	if p.Title == "" {
		p.Title = "Untitled"
	}
	if p.URL == "" {
		if doi != "" {
			p.URL = "https://doi.org/" + doi
		} else {
			p.URL = "https://www.semanticscholar.org/paper/" + sp.PaperID
		}
	}
	return p
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          *int                `json:"year"`
	CitationCount int                 `json:"citationCount"`
	URL           string              `json:"url"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	PubMed   string `json:"PubMed"`
	CorpusID int    `json:"CorpusId"`
}
