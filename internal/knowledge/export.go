// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes every article to w as an ArticleFile. The output can be
// fed back to ImportFile.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	articles, err := s.All(ctx)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(ArticleFile{Articles: articles}); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return nil
}

// ExportJSON writes every article to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	articles, err := s.All(ctx)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ArticleFile{Articles: articles}); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
