// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/knowledge"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

type fakeArticles struct {
	articles []knowledge.Article
	err      error
}

func (f fakeArticles) Candidates(context.Context, string, string, int) ([]knowledge.Article, error) {
	return f.articles, f.err
}

func curatedArticles() []knowledge.Article {
	return []knowledge.Article{
		{ID: "a1", Title: "Hydration basics", Summary: "Drink water.", URL: "https://www.healthline.com/a1", Year: 2020},
		{ID: "a2", Title: "Afternoon energy slump", Summary: "Why the afternoon feels slow.", Keywords: []string{"energy"}, Year: 2022},
		{ID: "a3", PaperID: "hl-3", Title: "Sleep and mood", Summary: "Energy levels follow sleep.", URL: "https://www.healthline.com/a3"},
		{ID: "a4", Title: "Circadian rhythm guide", Abstract: "The afternoon dip is circadian.", Keywords: []string{"circadian-rhythm"}, Year: 2021},
	}
}

func fixedNow() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

func TestCuratedSearchScoring(t *testing.T) {
	b := NewCuratedBackend(fakeArticles{articles: curatedArticles()}, types.KnowledgeBaseConfig{})
	b.now = fixedNow

	papers, err := b.Search(context.Background(), "Afternoon ENERGY circadian", 5)
	require.NoError(t, err)
	require.Len(t, papers, 3)

	// a2: afternoon title+summary (4) + energy title+tag (5) = 9
	// a4: afternoon abstract (1) + circadian title+abstract+tag (6) = 7
	// a3: energy summary (1) = 1
	assert.Equal(t, "healthline_a2", papers[0].ID)
	assert.Equal(t, "healthline_a4", papers[1].ID)
	assert.Equal(t, "healthline_hl-3", papers[2].ID, "PaperID preferred over ID")
}

func TestCuratedSearchMapping(t *testing.T) {
	b := NewCuratedBackend(fakeArticles{articles: curatedArticles()}, types.KnowledgeBaseConfig{})
	b.now = fixedNow

	papers, err := b.Search(context.Background(), "sleep", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, types.SourceHealthline, p.Source)
	assert.Equal(t, 2026, p.Year, "missing year defaults to the current year")
	assert.Equal(t, "Energy levels follow sleep.", p.Abstract)
	assert.Equal(t, "https://www.healthline.com/a3", p.URL)

	papers, err = b.Search(context.Background(), "afternoon slump", 5)
	require.NoError(t, err)
	require.NotEmpty(t, papers)
	assert.Equal(t, "https://www.healthline.com/", papers[0].URL, "missing URL defaults to the site root")
}

func TestCuratedSearchLimitAndStableTies(t *testing.T) {
	articles := []knowledge.Article{
		{ID: "x", Title: "Caffeine one"},
		{ID: "y", Title: "Caffeine two"},
		{ID: "z", Title: "Caffeine three"},
	}
	b := NewCuratedBackend(fakeArticles{articles: articles}, types.KnowledgeBaseConfig{})

	papers, err := b.Search(context.Background(), "caffeine", 2)
	require.NoError(t, err)
	require.Len(t, papers, 2)
	assert.Equal(t, "healthline_x", papers[0].ID)
	assert.Equal(t, "healthline_y", papers[1].ID)
}

func TestCuratedSearchNoMatches(t *testing.T) {
	b := NewCuratedBackend(fakeArticles{articles: curatedArticles()}, types.KnowledgeBaseConfig{})
	papers, err := b.Search(context.Background(), "zebra", 5)
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestCuratedSearchNotConfigured(t *testing.T) {
	b := NewCuratedBackend(nil, types.KnowledgeBaseConfig{})
	_, err := b.Search(context.Background(), "energy", 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCuratedSearchStoreError(t *testing.T) {
	b := NewCuratedBackend(fakeArticles{err: errors.New("disk gone")}, types.KnowledgeBaseConfig{})
	_, err := b.Search(context.Background(), "energy", 5)
	assert.ErrorContains(t, err, "disk gone")
}

func TestCuratedSearchWithSQLiteStore(t *testing.T) {
	store, err := knowledge.Open(types.KnowledgeBaseConfig{Path: filepath.Join(t.TempDir(), "kb.db")})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for _, a := range []knowledge.Article{
		{Title: "Afternoon energy tips", URL: "https://www.healthline.com/energy", Source: "healthline", Year: 2023},
		{Title: "Afternoon energy elsewhere", URL: "https://example.org/energy", Source: "other"},
	} {
		_, err := store.Upsert(ctx, a)
		require.NoError(t, err)
	}

	b := NewCuratedBackend(store, types.KnowledgeBaseConfig{CandidateLimit: 100})
	papers, err := b.Search(ctx, "afternoon energy", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Afternoon energy tips", papers[0].Title)
	assert.Equal(t, 2023, papers[0].Year)
}
