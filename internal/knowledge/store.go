// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists the curated article knowledge base that backs
// the curated search provider. Articles are imported from YAML files, web
// pages or feeds into a SQLite database and read back as search candidates.
package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

var (
	// ErrNotConfigured is returned by Open when no database path is set.
	ErrNotConfigured = errors.New("knowledge base path not configured")

	// ErrNotFound is returned when an article id does not exist.
	ErrNotFound = errors.New("article not found")
)

// Article is one curated knowledge-base record.
type Article struct {
	// ID is a stable identifier derived from the URL (or title) when not supplied.
	ID string `json:"id" yaml:"id"`

	// PaperID is the upstream identifier, if the article mirrors a paper.
	PaperID string `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`

	Title    string `json:"title" yaml:"title"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	URL      string `json:"url" yaml:"url"`

	// Year is zero when unknown.
	Year          int `json:"year,omitempty" yaml:"year,omitempty"`
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// Keywords are the stored topic tags.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Source names the publisher (e.g. "healthline").
	Source string `json:"source" yaml:"source"`
}

// Text returns the summary, or the abstract when the summary is empty.
func (a Article) Text() string {
	if a.Summary != "" {
		return a.Summary
	}
	return a.Abstract
}

// Validate reports whether the article can be stored.
func (a Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("article %q: empty title", a.ID)
	}
	if strings.TrimSpace(a.URL) == "" && a.ID == "" {
		return fmt.Errorf("article %q: needs a url or id", a.Title)
	}
	return nil
}

// withDefaults fills the ID and lower-cases the source.
func (a Article) withDefaults() Article {
	a.Source = strings.ToLower(strings.TrimSpace(a.Source))
	if a.ID == "" {
		basis := a.URL
		if basis == "" {
			basis = a.Title
		}
		a.ID = stableID(basis)
	}
	return a
}

// stableID is the first 12 hex characters of SHA-256(s).
func stableID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)[:12]
}

// contentHash fingerprints the stored fields so unchanged imports are skipped.
func (a Article) contentHash() string {
	data, _ := json.Marshal(a)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// Store manages the knowledge base SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist. It returns ErrNotConfigured when cfg.Path is empty.
func Open(cfg types.KnowledgeBaseConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, ErrNotConfigured
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating knowledge base directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			paper_id TEXT,
			title TEXT NOT NULL,
			summary TEXT,
			abstract TEXT,
			url TEXT,
			year INTEGER,
			citation_count INTEGER NOT NULL DEFAULT 0,
			keywords TEXT,
			source TEXT,
			content_hash TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// UpsertResult says what Upsert did with one article.
type UpsertResult int

const (
	Inserted UpsertResult = iota
	Updated
	Unchanged
)

// Upsert stores an article, replacing an existing record with the same ID.
// Records whose content is unchanged are left alone.
func (s *Store) Upsert(ctx context.Context, a Article) (UpsertResult, error) {
	a = a.withDefaults()
	if err := a.Validate(); err != nil {
		return 0, err
	}
	hash := a.contentHash()

	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT IFNULL(content_hash, '') FROM articles WHERE id = ?`, a.ID,
	).Scan(&stored)
	switch {
	case err == nil && stored == hash:
		return Unchanged, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("looking up article %s: %w", a.ID, err)
	}
	result := Inserted
	if err == nil {
		result = Updated
	}

	keywordsJSON, _ := json.Marshal(a.Keywords)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO articles (id, paper_id, title, summary, abstract, url, year, citation_count, keywords, source, content_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			paper_id=excluded.paper_id, title=excluded.title, summary=excluded.summary,
			abstract=excluded.abstract, url=excluded.url, year=excluded.year,
			citation_count=excluded.citation_count, keywords=excluded.keywords,
			source=excluded.source, content_hash=excluded.content_hash`,
		a.ID, a.PaperID, a.Title, a.Summary, a.Abstract, a.URL, a.Year,
		max(a.CitationCount, 0), string(keywordsJSON), a.Source, hash,
	)
	if err != nil {
		return 0, fmt.Errorf("upserting article %s: %w", a.ID, err)
	}
	return result, nil
}

// Get returns the article with the given ID or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Article, error) {
	rows, err := s.db.QueryContext(ctx, selectArticles+` WHERE id = ?`, id)
	if err != nil {
		return Article{}, fmt.Errorf("querying article: %w", err)
	}
	articles, err := scanArticles(rows)
	if err != nil {
		return Article{}, err
	}
	if len(articles) == 0 {
		return Article{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return articles[0], nil
}

// Candidates returns up to max articles tagged with source or hosted on
// host, in insertion order.
func (s *Store) Candidates(ctx context.Context, source, host string, max int) ([]Article, error) {
	if max <= 0 {
		max = 500
	}
	rows, err := s.db.QueryContext(ctx,
		selectArticles+` WHERE source = ? OR (? <> '' AND url LIKE '%' || ? || '%') ORDER BY rowid LIMIT ?`,
		strings.ToLower(source), host, host, max,
	)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	return scanArticles(rows)
}

// All returns every article in insertion order.
func (s *Store) All(ctx context.Context) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, selectArticles+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	return scanArticles(rows)
}

// Count returns the number of stored articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

const selectArticles = `SELECT id, paper_id, title, summary, abstract, url, year, citation_count, keywords, source FROM articles`

func scanArticles(rows *sql.Rows) ([]Article, error) {
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			a                                         Article
			paperID, summary, abstract, url, keywords sql.NullString
			source                                    sql.NullString
			year                                      sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &paperID, &a.Title, &summary, &abstract, &url,
			&year, &a.CitationCount, &keywords, &source); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		a.PaperID = paperID.String
		a.Summary = summary.String
		a.Abstract = abstract.String
		a.URL = url.String
		a.Year = int(year.Int64)
		a.Source = source.String
		if keywords.Valid && keywords.String != "" {
			json.Unmarshal([]byte(keywords.String), &a.Keywords)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
