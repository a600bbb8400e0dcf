package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := types.KnowledgeBaseConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "kb", "knowledge.db"),
	}
	store, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleArticles() []Article {
	return []Article{
		{
			Title:    "Why You Feel Tired After Lunch",
			Summary:  "Post-meal fatigue and the afternoon energy dip explained.",
			URL:      "https://www.healthline.com/nutrition/tired-after-eating",
			Year:     2022,
			Keywords: []string{"fatigue", "energy"},
			Source:   "healthline",
		},
		{
			Title:    "Caffeine and Sleep Quality",
			Abstract: "Evening caffeine delays sleep onset.",
			URL:      "https://www.healthline.com/nutrition/caffeine-sleep",
			Keywords: []string{"caffeine", "sleep"},
			Source:   "Healthline",
		},
		{
			Title:  "Hydration Basics",
			URL:    "https://example.org/hydration",
			Source: "example",
		},
	}
}

func importSamples(t *testing.T, store *Store) {
	t.Helper()
	var buf strings.Builder
	summary, err := store.Import(context.Background(), sampleArticles(), &buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Inserted != 3 {
		t.Fatalf("Inserted = %d, want 3; output: %s", summary.Inserted, buf.String())
	}
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	store := testStore(t)

	var count int
	err := store.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'articles'`,
	).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("articles table missing")
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpenWithoutPath(t *testing.T) {
	_, err := Open(types.KnowledgeBaseConfig{Enabled: true})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

// --- upsert tests ---

func TestUpsertLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	a := sampleArticles()[0]

	res, err := store.Upsert(ctx, a)
	if err != nil || res != Inserted {
		t.Fatalf("first Upsert = %v, %v; want Inserted", res, err)
	}
	res, err = store.Upsert(ctx, a)
	if err != nil || res != Unchanged {
		t.Fatalf("second Upsert = %v, %v; want Unchanged", res, err)
	}
	a.Summary = "Revised summary."
	res, err = store.Upsert(ctx, a)
	if err != nil || res != Updated {
		t.Fatalf("third Upsert = %v, %v; want Updated", res, err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestUpsertStoresAllFields(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	a := sampleArticles()[0]
	a.PaperID = "hl-42"
	a.CitationCount = 7

	if _, err := store.Upsert(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, stableID(a.URL))
	if err != nil {
		t.Fatal(err)
	}
	if got.PaperID != "hl-42" || got.Title != a.Title || got.Summary != a.Summary {
		t.Errorf("text fields = %+v", got)
	}
	if got.Year != 2022 || got.CitationCount != 7 {
		t.Errorf("Year, CitationCount = %d, %d", got.Year, got.CitationCount)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "fatigue" {
		t.Errorf("Keywords = %v", got.Keywords)
	}
}

func TestUpsertRejectsEmptyTitle(t *testing.T) {
	store := testStore(t)
	if _, err := store.Upsert(context.Background(), Article{URL: "https://x"}); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestUpsertLowercasesSource(t *testing.T) {
	store := testStore(t)
	importSamples(t, store)

	got, err := store.Get(context.Background(), stableID(sampleArticles()[1].URL))
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "healthline" {
		t.Errorf("Source = %q, want healthline", got.Source)
	}
}

func TestGetNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestArticleText(t *testing.T) {
	if got := (Article{Summary: "s", Abstract: "a"}).Text(); got != "s" {
		t.Errorf("Text = %q, want summary", got)
	}
	if got := (Article{Abstract: "a"}).Text(); got != "a" {
		t.Errorf("Text = %q, want abstract", got)
	}
}

// --- candidate and query tests ---

func TestCandidates(t *testing.T) {
	store := testStore(t)
	importSamples(t, store)
	ctx := context.Background()

	got, err := store.Candidates(ctx, "healthline", "healthline.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Title != "Why You Feel Tired After Lunch" {
		t.Errorf("first candidate = %q, want insertion order", got[0].Title)
	}

	// Host match alone is enough.
	if _, err := store.Upsert(ctx, Article{
		Title: "Untagged", URL: "https://www.healthline.com/x", Source: "other",
	}); err != nil {
		t.Fatal(err)
	}
	got, err = store.Candidates(ctx, "healthline", "healthline.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d candidates, want 3", len(got))
	}

	got, err = store.Candidates(ctx, "healthline", "healthline.com", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("max=1 returned %d", len(got))
	}
}

func TestQuery(t *testing.T) {
	store := testStore(t)
	importSamples(t, store)
	ctx := context.Background()

	tests := []struct {
		name string
		opts QueryOptions
		want int
	}{
		{"text in title", QueryOptions{Text: "caffeine"}, 1},
		{"text in summary", QueryOptions{Text: "ENERGY DIP"}, 1},
		{"keyword", QueryOptions{Keyword: "sleep"}, 1},
		{"source", QueryOptions{Source: "healthline"}, 2},
		{"combined", QueryOptions{Source: "healthline", Keyword: "fatigue"}, 1},
		{"limit", QueryOptions{Source: "healthline", Limit: 1}, 1},
		{"no match", QueryOptions{Text: "zebra"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d results, want %d", len(got), tt.want)
			}
		})
	}

	if _, err := store.Query(ctx, QueryOptions{}); err == nil {
		t.Error("expected error for empty query")
	}
}

// --- import and export tests ---

func TestImportFile(t *testing.T) {
	store := testStore(t)
	file := ArticleFile{Source: "healthline", Articles: sampleArticles()[:1]}
	file.Articles[0].Source = ""
	file.Articles = append(file.Articles, Article{URL: "https://bad"})

	data, err := yaml.Marshal(&file)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "articles.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	summary, err := store.ImportFile(context.Background(), path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 1 || summary.Failed != 1 || summary.Total() != 2 {
		t.Errorf("summary = %+v", summary)
	}
	out := buf.String()
	if !strings.Contains(out, "imported  Why You Feel Tired After Lunch") {
		t.Errorf("output missing import line:\n%s", out)
	}
	if !strings.Contains(out, "imported: 1, updated: 0, unchanged: 0, failed: 1") {
		t.Errorf("output missing summary line:\n%s", out)
	}

	got, err := store.Candidates(context.Background(), "healthline", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("file-level source not applied, got %d candidates", len(got))
	}
}

func TestImportFileMissing(t *testing.T) {
	store := testStore(t)
	if _, err := store.ImportFile(context.Background(), "/nonexistent.yaml", &strings.Builder{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExportYAMLRoundTrip(t *testing.T) {
	store := testStore(t)
	importSamples(t, store)

	var buf strings.Builder
	if err := store.ExportYAML(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	var file ArticleFile
	if err := yaml.Unmarshal([]byte(buf.String()), &file); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(file.Articles) != 3 {
		t.Fatalf("exported %d articles, want 3", len(file.Articles))
	}

	other := testStore(t)
	path := filepath.Join(t.TempDir(), "export.yaml")
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	summary, err := other.ImportFile(context.Background(), path, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Inserted != 3 {
		t.Errorf("re-import Inserted = %d, want 3", summary.Inserted)
	}
}

func TestExportJSON(t *testing.T) {
	store := testStore(t)
	importSamples(t, store)

	var buf strings.Builder
	if err := store.ExportJSON(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	var file ArticleFile
	if err := json.Unmarshal([]byte(buf.String()), &file); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(file.Articles) != 3 {
		t.Errorf("exported %d articles, want 3", len(file.Articles))
	}
}
