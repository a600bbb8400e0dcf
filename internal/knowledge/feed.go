// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FetchFeed downloads an RSS or Atom feed and converts its items.
func FetchFeed(ctx context.Context, feedURL, source string) ([]Article, error) {
	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", feedURL, err)
	}
	return feedArticles(feed, source), nil
}

// ParseFeed converts an RSS or Atom document held in memory.
func ParseFeed(data, source string) ([]Article, error) {
	feed, err := gofeed.NewParser().ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return feedArticles(feed, source), nil
}

// feedArticles maps items to articles. Categories become keywords and the
// item's published (or updated) date supplies the year. An empty source is
// derived from each item's host. Items without a
// title or link are skipped.
func feedArticles(feed *gofeed.Feed, source string) []Article {
	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		a := Article{
			Title:   title,
			URL:     link,
			Summary: truncate(stripHTML(desc), maxSummaryChars),
			Source:  source,
		}
		if a.Source == "" {
			if u, err := url.Parse(link); err == nil {
				a.Source = hostSource(u.Host)
			}
		}
		if item.PublishedParsed != nil {
			a.Year = item.PublishedParsed.Year()
		} else if item.UpdatedParsed != nil {
			a.Year = item.UpdatedParsed.Year()
		}
		for _, c := range item.Categories {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				a.Keywords = append(a.Keywords, c)
			}
		}
		articles = append(articles, a)
	}
	return articles
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return collapseSpace(b.String())
}
