// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Title    string   `yaml:"title"`
	Abstract string   `yaml:"abstract,omitempty"`
	Issued   *CSLDate `yaml:"issued,omitempty"`
	DOI      string   `yaml:"DOI,omitempty"`
	URL      string   `yaml:"URL,omitempty"`
	Source   string   `yaml:"source,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the ranked papers of r as a CSL-YAML list to w.
func FormatCSL(r types.SearchResult, w io.Writer) error {
	items := make([]CSLItem, len(r.Papers))
	for i, p := range r.Papers {
		items[i] = toCSLItem(p.Paper)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a Paper. Curated articles are web pages; everything
// else is a journal article.
func toCSLItem(p types.Paper) CSLItem {
	item := CSLItem{
		ID:       p.ID,
		Type:     "article-journal",
		Title:    p.Title,
		Abstract: p.Abstract,
		DOI:      p.DOI,
		URL:      p.URL,
		Source:   string(p.Source),
	}
	if p.Source == types.SourceHealthline {
		item.Type = "webpage"
	}
	if p.HasYear() {
		item.Issued = &CSLDate{DateParts: [][]int{{p.Year}}}
	}
	return item
}
