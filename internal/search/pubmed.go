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
	"time"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities root. Declared as a var so tests
// can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	pubmedMaxTerms       = 5
	defaultPubMedTimeout = 8 * time.Second
)

// PubMedBackend queries PubMed in two steps: esearch resolves the query to
// record identifiers and esummary fetches their metadata in one batch.
type PubMedBackend struct {
	Client *http.Client
	Config types.PubMedConfig
}

// NewPubMedBackend builds a backend with an HTTP client honouring cfg.Timeout.
func NewPubMedBackend(cfg types.PubMedConfig) *PubMedBackend {
	return &PubMedBackend{
		Client: &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
	}
}

// Name returns the backend identifier.
func (b *PubMedBackend) Name() types.Source { return types.SourcePubMed }

// Search resolves at most limit PMIDs and fetches their summaries. When the
// first step finds nothing the second is not attempted.
func (b *PubMedBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	term := buildPubMedTerm(query)
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	ids, err := b.esearch(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return b.esummary(ctx, ids)
}

func (b *PubMedBackend) esearch(ctx context.Context, term string, limit int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmax":  {strconv.Itoa(limit)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	var sr esearchResponse
	if err := b.getJSON(ctx, "esearch.fcgi", params, &sr); err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	return sr.ESearchResult.IDList, nil
}

func (b *PubMedBackend) esummary(ctx context.Context, ids []string) ([]types.Paper, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}
	var sr esummaryResponse
	if err := b.getJSON(ctx, "esummary.fcgi", params, &sr); err != nil {
		return nil, fmt.Errorf("PubMed esummary: %w", err)
	}

	papers := make([]types.Paper, 0, len(ids))
	for _, id := range ids {
		raw, ok := sr.Result[id]
		if !ok {
			continue
		}
		var doc esummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil || doc.Title == "" {
			continue
		}
		papers = append(papers, doc.toPaper(id))
	}
	return papers, nil
}

// getJSON performs one E-utilities call under its own step timeout, which
// is still capped by ctx.
func (b *PubMedBackend) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	timeout := b.Config.StepTimeout
	if timeout <= 0 {
		timeout = defaultPubMedTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if b.Config.APIKey != "" {
		params.Set("api_key", b.Config.APIKey)
	}
	reqURL := pubmedAPIBase + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if b.Config.UserAgent != "" {
		req.Header.Set("User-Agent", b.Config.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, b.Config.Retry)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// buildPubMedTerm OR-joins the first five query words longer than two
// characters, e.g. "afternoon OR energy OR dip".
func buildPubMedTerm(query string) string {
	return strings.Join(queryTerms(query, pubmedMaxTerms), " OR ")
}

// queryTerms returns up to n whitespace-separated words of query that are
// longer than two characters.
func queryTerms(query string, n int) []string {
	var terms []string
	for _, w := range strings.Fields(query) {
		if len(w) <= 2 {
			continue
		}
		terms = append(terms, w)
		if len(terms) == n {
			break
		}
	}
	return terms
}

// E-utilities JSON structures.
type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	// Result maps each PMID to its summary; it also holds a "uids" array,
	// which is why values stay raw until looked up by id.
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	PubDate     string `json:"pubdate"`
	ELocationID string `json:"elocationid"`
	ArticleIDs  []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

func (d esummaryDoc) toPaper(pmid string) types.Paper {
	return types.Paper{
		ID:     string(types.SourcePubMed) + "_" + pmid,
		Title:  d.Title,
		URL:    "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		Year:   parsePubYear(d.PubDate),
		DOI:    d.doi(),
		Source: types.SourcePubMed,
	}
}

// doi prefers the typed article identifier and falls back to the
// "doi: 10.x/y" fragment of elocationid.
func (d esummaryDoc) doi() string {
	for _, id := range d.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			return strings.TrimSpace(id.Value)
		}
	}
	loc := d.ELocationID
	i := strings.Index(strings.ToLower(loc), "doi:")
	if i < 0 {
		return ""
	}
	fields := strings.Fields(loc[i+len("doi:"):])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parsePubYear reads the leading year of a pubdate such as "2021 Mar 5".
func parsePubYear(pubdate string) int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return 0
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}
