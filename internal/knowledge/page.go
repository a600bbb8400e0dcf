// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const maxSummaryChars = 600

// FetchPage downloads rawURL and converts it to an Article. Any non-200
// response is an error.
func FetchPage(ctx context.Context, client *http.Client, rawURL, source, userAgent string) (Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Article{}, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("fetching %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return ParsePage(rawURL, resp.Body, source)
}

// ParsePage extracts an Article from an HTML document. Readability supplies
// the title and main text; the page's meta tags supply the description,
// topic tags and publication year when present.
func ParsePage(rawURL string, r io.Reader, source string) (Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Article{}, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return Article{}, fmt.Errorf("reading page: %w", err)
	}
	html := string(raw)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("parsing html: %w", err)
	}
	meta := readMeta(doc)

	a := Article{
		URL:      rawURL,
		Source:   source,
		Title:    meta.title,
		Summary:  meta.description,
		Keywords: meta.keywords,
		Year:     meta.year,
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), pageURL)
	if err == nil {
		if t := strings.TrimSpace(article.Title); t != "" {
			a.Title = t
		}
		if a.Summary == "" {
			a.Summary = strings.TrimSpace(article.Excerpt)
		}
		if body, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
			a.Abstract = truncate(collapseSpace(body.Text()), maxSummaryChars)
		}
		if a.Year == 0 && article.PublishedTime != nil {
			a.Year = article.PublishedTime.Year()
		}
	}

	if a.Title == "" {
		a.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if a.Title == "" {
		return Article{}, fmt.Errorf("page %s has no title", rawURL)
	}
	if a.Source == "" {
		a.Source = hostSource(pageURL.Hostname())
	}
	return a, nil
}

type pageMeta struct {
	title       string
	description string
	keywords    []string
	year        int
}

func readMeta(doc *goquery.Document) pageMeta {
	var m pageMeta
	content := func(selector string) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(v)
	}

	m.title = content(`meta[property="og:title"]`)
	m.description = content(`meta[name="description"]`)
	if m.description == "" {
		m.description = content(`meta[property="og:description"]`)
	}

	seen := make(map[string]bool)
	addTag := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		m.keywords = append(m.keywords, tag)
	}
	for _, tag := range strings.Split(content(`meta[name="keywords"]`), ",") {
		addTag(tag)
	}
	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("content")
		addTag(v)
	})

	if published := content(`meta[property="article:published_time"]`); len(published) >= 4 {
		if y, err := strconv.Atoi(published[:4]); err == nil {
			m.year = y
		}
	}
	return m
}

// hostSource names a publisher from its host, e.g. "www.healthline.com"
// becomes "healthline".
func hostSource(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
