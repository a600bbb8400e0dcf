// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// QueryOptions holds parameters for browsing the knowledge base.
type QueryOptions struct {
	// Text matches case-insensitively against title, summary and abstract.
	Text string

	// Keyword filters to articles carrying this tag.
	Keyword string

	// Source filters by publisher.
	Source string

	// Limit caps the result count. Zero means 20.
	Limit int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Text == "" && q.Keyword == "" && q.Source == ""
}

// Query returns articles matching every supplied filter in insertion order.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Article, error) {
	if opts.IsEmpty() {
		return nil, fmt.Errorf("query needs text, a keyword or a source")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(selectArticles + ` WHERE 1=1`)

	if opts.Text != "" {
		like := "%" + strings.ToLower(opts.Text) + "%"
		qb.WriteString(` AND (lower(title) LIKE ? OR lower(IFNULL(summary, '')) LIKE ? OR lower(IFNULL(abstract, '')) LIKE ?)`)
		args = append(args, like, like, like)
	}
	if opts.Keyword != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(articles.keywords) WHERE lower(value) = ?)`)
		args = append(args, strings.ToLower(opts.Keyword))
	}
	if opts.Source != "" {
		qb.WriteString(` AND source = ?`)
		args = append(args, strings.ToLower(opts.Source))
	}

	qb.WriteString(` ORDER BY rowid LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}
	return scanArticles(rows)
}
