// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// ArticleFile is the on-disk YAML layout accepted by ImportFile and written
// by ExportYAML.
type ArticleFile struct {
	// Source is applied to articles that do not name their own.
	Source   string    `json:"source,omitempty" yaml:"source,omitempty"`
	Articles []Article `json:"articles" yaml:"articles"`
}

// ImportSummary holds counts from an import run.
type ImportSummary struct {
	Inserted  int
	Updated   int
	Unchanged int
	Failed    int
}

// Total returns the number of articles processed.
func (s ImportSummary) Total() int {
	return s.Inserted + s.Updated + s.Unchanged + s.Failed
}

// ImportFile reads an ArticleFile from path and upserts every article.
func (s *Store) ImportFile(ctx context.Context, path string, w io.Writer) (ImportSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var file ArticleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ImportSummary{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i := range file.Articles {
		if file.Articles[i].Source == "" {
			file.Articles[i].Source = file.Source
		}
	}
	return s.Import(ctx, file.Articles, w)
}

// Import upserts articles one by one, reporting each on w. Invalid articles
// are counted as failed and do not stop the run.
func (s *Store) Import(ctx context.Context, articles []Article, w io.Writer) (ImportSummary, error) {
	var summary ImportSummary
	for _, a := range articles {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		res, err := s.Upsert(ctx, a)
		if err != nil {
			fmt.Fprintf(w, "failed    %s: %v\n", a.Title, err)
			summary.Failed++
			continue
		}
		switch res {
		case Inserted:
			fmt.Fprintf(w, "imported  %s\n", a.Title)
			summary.Inserted++
		case Updated:
			fmt.Fprintf(w, "updated   %s\n", a.Title)
			summary.Updated++
		case Unchanged:
			fmt.Fprintf(w, "unchanged %s\n", a.Title)
			summary.Unchanged++
		}
	}

	fmt.Fprintf(w, "\nimported: %d, updated: %d, unchanged: %d, failed: %d\n",
		summary.Inserted, summary.Updated, summary.Unchanged, summary.Failed)
	return summary, nil
}
