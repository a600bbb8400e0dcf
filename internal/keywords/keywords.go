// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords turns a free-text health question into a short list of
// search terms. A configured text-completion backend is asked for
// domain-specific terms; without one, or when it fails, a local tokenizer
// is used instead.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// ErrNotConfigured is returned by NewCompleter when no credential is set.
var ErrNotConfigured = errors.New("keyword completer not configured")

const (
	maxCompletedKeywords = 7
	maxFallbackKeywords  = 6
	defaultMaxInputChars = 500
	defaultMaxTokens     = 64
)

// systemPrompt is sent with every completion request.
const systemPrompt = `Extract 3-5 academic/medical English keywords from the user's health question for searching PubMed and Semantic Scholar.

Rules:
- Use medical/scientific terminology (e.g., "post-lunch dip" instead of "afternoon sleepy", "circadian rhythm" instead of "body clock")
- Avoid colloquial time expressions like "3pm" or "morning"; use "afternoon" or "circadian" instead
- Focus on physiological terms, symptoms, and mechanisms
- Return a comma-separated list only, no explanations`

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"for": true, "to": true, "in": true, "with": true, "about": true,
	"what": true, "how": true, "why": true, "is": true, "are": true, "can": true,
}

// Completer sends one system+user exchange to a language model and returns
// the text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extractor derives search keywords. The zero value is not usable; build
// one with New.
type Extractor struct {
	completer Completer
	cfg       types.KeywordConfig
	logger    *slog.Logger
}

// New returns an Extractor. completer may be nil, in which case every call
// uses the local tokenizer.
func New(completer Completer, cfg types.KeywordConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With("component", "keyword-extractor"),
	}
}

// Extract returns at most 7 deduplicated lower-case terms in first-seen
// order. It never fails: completer errors and empty replies fall back to
// Fallback. A blank query yields an empty list.
func (e *Extractor) Extract(ctx context.Context, query string) []string {
	if strings.TrimSpace(query) == "" {
		return []string{}
	}
	if e.completer == nil {
		e.logger.Debug("no completer configured, using fallback keywords")
		return Fallback(query)
	}

	limit := e.cfg.MaxInputChars
	if limit <= 0 {
		limit = defaultMaxInputChars
	}
	reply, err := e.completer.Complete(ctx, systemPrompt, truncateRunes(query, limit))
	if err != nil {
		e.logger.Warn("keyword completion failed, using fallback", "err", err)
		return Fallback(query)
	}

	kws := ParseList(reply)
	if len(kws) == 0 {
		e.logger.Warn("keyword completion returned no terms, using fallback", "reply", reply)
		return Fallback(query)
	}
	e.logger.Debug("keywords extracted", "keywords", kws)
	return kws
}

// ParseList splits a model reply on commas, semicolons and newlines, then
// trims, lower-cases and deduplicates the pieces, keeping at most 7.
func ParseList(reply string) []string {
	parts := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	var out []string
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return dedupe(out, maxCompletedKeywords)
}

// Fallback tokenizes query on non-alphanumeric boundaries, drops stop words
// and returns at most 6 deduplicated lower-case tokens.
func Fallback(query string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, t := range tokens {
		if !stopWords[t] {
			out = append(out, t)
		}
	}
	return dedupe(out, maxFallbackKeywords)
}

func dedupe(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, min(len(in), limit))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// NewCompleter builds the completer named by cfg.Provider. It returns
// ErrNotConfigured when cfg.APIKey is empty.
func NewCompleter(cfg types.KeywordConfig) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAICompleter(cfg)
	case "claude":
		return NewClaudeCompleter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown keyword provider: %q (valid: openai, claude)", cfg.Provider)
	}
}

func maxTokens(cfg types.KeywordConfig) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return defaultMaxTokens
}
