// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence is the entry point of the search engine. An Engine turns
// a free-text health question into keywords, runs the round controller over
// the configured providers, ranks the unique papers and scores their
// consensus.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/evidence-engine/internal/consensus"
	"github.com/pdiddy/evidence-engine/internal/keywords"
	"github.com/pdiddy/evidence-engine/internal/knowledge"
	"github.com/pdiddy/evidence-engine/internal/rank"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Engine runs evidence searches. It is safe for concurrent use; the only
// state it holds is its immutable configuration and shared clients.
type Engine struct {
	cfg        types.Config
	extractor  *keywords.Extractor
	controller *search.Controller
	store      *knowledge.Store
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	completer keywords.Completer
	adapters  []search.Adapter
	store     *knowledge.Store
	now       func() time.Time
}

// WithLogger sets the base logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCompleter replaces the keyword completer built from the configuration.
func WithCompleter(c keywords.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithAdapters replaces the provider adapters built from the configuration.
func WithAdapters(adapters ...search.Adapter) Option {
	return func(o *options) { o.adapters = adapters }
}

// WithStore supplies an already open knowledge base for the curated
// provider. The Engine does not close it.
func WithStore(s *knowledge.Store) Option {
	return func(o *options) { o.store = s }
}

// WithClock sets the time source used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds an Engine from cfg. Missing credentials and an unconfigured
// knowledge base are not errors: the affected component degrades instead.
func New(cfg types.Config, opts ...Option) (*Engine, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		cfg:    cfg,
		logger: o.logger.With("component", "evidence-engine"),
		now:    o.now,
	}

	completer := o.completer
	if completer == nil {
		c, err := keywords.NewCompleter(cfg.Keywords)
		switch {
		case errors.Is(err, keywords.ErrNotConfigured):
			e.logger.Info("no keyword model credential, using local tokenizer")
		case err != nil:
			e.logger.Warn("keyword completer unavailable, using local tokenizer", "err", err)
		default:
			completer = c
		}
	}
	e.extractor = keywords.New(completer, cfg.Keywords, o.logger)

	adapters := o.adapters
	if adapters == nil {
		adapters = e.buildAdapters(o.store)
	}

	controller, err := search.NewController(adapters, cfg.Engine, o.logger)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("creating round controller: %w", err)
	}
	e.controller = controller
	return e, nil
}

// buildAdapters creates one adapter per enabled provider in fan-out order.
func (e *Engine) buildAdapters(store *knowledge.Store) []search.Adapter {
	var adapters []search.Adapter
	if e.cfg.SemanticScholar.Enabled {
		adapters = append(adapters, search.Adapter{
			Backend: search.NewSemanticScholarBackend(e.cfg.SemanticScholar),
			Limit:   e.cfg.SemanticScholar.Limit,
		})
	}
	if e.cfg.PubMed.Enabled {
		adapters = append(adapters, search.Adapter{
			Backend: search.NewPubMedBackend(e.cfg.PubMed),
			Limit:   e.cfg.PubMed.Limit,
		})
	}
	if e.cfg.KnowledgeBase.Enabled {
		var source search.ArticleSource
		if store != nil {
			source = store
		} else {
			s, err := knowledge.Open(e.cfg.KnowledgeBase)
			switch {
			case errors.Is(err, knowledge.ErrNotConfigured):
				e.logger.Info("knowledge base path not set, curated provider disabled")
			case err != nil:
				e.logger.Warn("opening knowledge base failed, curated provider disabled", "err", err)
			default:
				e.store = s
				source = s
			}
		}
		adapters = append(adapters, search.Adapter{
			Backend: search.NewCuratedBackend(source, e.cfg.KnowledgeBase),
			Limit:   e.cfg.KnowledgeBase.Limit,
		})
	}
	return adapters
}

// Close releases any knowledge base the Engine opened.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Search runs one evidence search. It never fails: provider problems only
// shrink the result, which then reports Success=false and RetryNeeded=true.
// The deadline covers keyword extraction as well as the provider rounds.
func (e *Engine) Search(ctx context.Context, query string) types.SearchResult {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	logger.Info("evidence search", "query", query)

	extractCtx, cancel := context.WithDeadline(ctx, start.Add(e.cfg.Engine.Deadline))
	kws := e.extractor.Extract(extractCtx, query)
	cancel()
	searchQuery := strings.Join(kws, " ")
	if searchQuery == "" {
		searchQuery = strings.TrimSpace(query)
	}

	out := e.controller.RunSince(ctx, searchQuery, start, logger)

	ranked := rank.Rank(out.Papers, e.cfg.Engine.Rank, e.now())
	if target := e.cfg.Engine.TargetCount; target > 0 && len(ranked) > target {
		ranked = ranked[:target]
	}
	result := types.SearchResult{
		Keywords:    kws,
		Papers:      ranked,
		Consensus:   consensus.Score(ranked, kws),
		Success:     out.TargetReached,
		RetryNeeded: !out.TargetReached,
		Diagnostics: types.Diagnostics{
			RunID:         runID,
			Rounds:        out.Rounds,
			UniquePapers:  len(out.Papers),
			Elapsed:       out.Elapsed,
			BackendErrors: out.BackendErrors,
		},
	}

	logger.Info("evidence search finished",
		"papers", len(result.Papers), "success", result.Success,
		"consensus", fmt.Sprintf("%.3f/%s", result.Consensus.Score, result.Consensus.Level))
	return result
}
