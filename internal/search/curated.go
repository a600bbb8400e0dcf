// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/evidence-engine/internal/knowledge"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	curatedHost       = "healthline.com"
	curatedDefaultURL = "https://www.healthline.com/"
	curatedMaxTerms   = 5
)

// ArticleSource supplies curated knowledge-base candidates. *knowledge.Store
// satisfies it.
type ArticleSource interface {
	Candidates(ctx context.Context, source, host string, max int) ([]knowledge.Article, error)
}

// CuratedBackend scores articles from the local knowledge base by simple
// term overlap with the query.
type CuratedBackend struct {
	Store  ArticleSource
	Config types.KnowledgeBaseConfig

	// now is overridable by tests.
	now func() time.Time
}

// NewCuratedBackend wraps store. A nil store yields ErrNotConfigured on
// every search.
func NewCuratedBackend(store ArticleSource, cfg types.KnowledgeBaseConfig) *CuratedBackend {
	return &CuratedBackend{Store: store, Config: cfg, now: time.Now}
}

// Name returns the backend identifier.
func (b *CuratedBackend) Name() types.Source { return types.SourceHealthline }

// Search scores every candidate: +3 when a term occurs in the title, +1 in
// the summary text, and +2 when any stored keyword contains it. Articles
// scoring zero are dropped; ties keep store order.
func (b *CuratedBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	if b.Store == nil {
		return nil, ErrNotConfigured
	}
	terms := queryTerms(strings.ToLower(query), curatedMaxTerms)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	candidates, err := b.Store.Candidates(ctx, string(types.SourceHealthline), curatedHost, b.Config.CandidateLimit)
	if err != nil {
		return nil, err
	}

	type scored struct {
		article knowledge.Article
		score   int
	}
	var hits []scored
	for _, a := range candidates {
		if s := scoreArticle(a, terms); s > 0 {
			hits = append(hits, scored{a, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	papers := make([]types.Paper, 0, len(hits))
	for _, h := range hits {
		papers = append(papers, b.toPaper(h.article))
	}
	return papers, nil
}

func scoreArticle(a knowledge.Article, terms []string) int {
	title := strings.ToLower(a.Title)
	text := strings.ToLower(a.Text())
	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 3
		}
		if strings.Contains(text, term) {
			score++
		}
		for _, kw := range a.Keywords {
			if strings.Contains(strings.ToLower(kw), term) {
				score += 2
				break
			}
		}
	}
	return score
}

// toPaper maps an article. A missing year defaults to the current year.
func (b *CuratedBackend) toPaper(a knowledge.Article) types.Paper {
	id := a.PaperID
	if id == "" {
		id = a.ID
	}
	p := types.Paper{
		ID:            string(types.SourceHealthline) + "_" + id,
		Title:         a.Title,
		Abstract:      a.Text(),
		URL:           a.URL,
		Year:          a.Year,
		CitationCount: max(a.CitationCount, 0),
		Source:        types.SourceHealthline,
	}
	if p.URL == "" {
		p.URL = curatedDefaultURL
	}
	if p.Year == 0 {
		now := time.Now
		if b.now != nil {
			now = b.now
		}
		p.Year = now().Year()
	}
	return p
}
