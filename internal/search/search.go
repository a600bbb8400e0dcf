// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the literature providers in synchronized rounds and
// returns a unified, deduplicated paper set.
//
// Each provider implements Backend. The Controller fans a query out to all
// backends concurrently, merges the round's results once the fan-out has
// settled, and repeats until the target paper count is reached, the round
// cap is hit, or the overall deadline expires.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

var (
	// ErrNotConfigured is returned by a backend that lacks the settings it
	// needs to run (e.g. no knowledge base path).
	ErrNotConfigured = errors.New("backend not configured")

	// ErrPoolSaturated is recorded when a round has more adapters than
	// workers.
	ErrPoolSaturated = errors.New("fan-out worker pool saturated")

	// ErrAbandoned is recorded for a backend that had not answered when the
	// round's budget ran out.
	ErrAbandoned = errors.New("abandoned at round deadline")
)

// Backend searches a single literature provider. Implementations return a
// non-nil error for any failure; the Controller folds errors into an empty
// result for the round.
type Backend interface {
	Name() types.Source
	Search(ctx context.Context, query string, limit int) ([]types.Paper, error)
}

// Adapter pairs a backend with the number of papers requested from it per round.
type Adapter struct {
	Backend Backend
	Limit   int
}

// State is a Controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateEvaluating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateEvaluating:
		return "evaluating"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is what a Controller run yields in its terminal state.
type Outcome struct {
	// Papers is the accumulated unique paper set in first-seen order. It may
	// be shorter than the target.
	Papers []types.Paper

	// TargetReached reports whether len(Papers) reached the target count.
	TargetReached bool

	Rounds  int
	Elapsed time.Duration

	// BackendErrors lists "<source>: <error>" for every folded failure.
	BackendErrors []string

	State State
}

// Controller drives repeated parallel fan-out across adapters. It is safe
// for concurrent use; every Run keeps its own state and every round its own
// worker pool, so concurrent searches never compete for workers.
type Controller struct {
	adapters []Adapter
	cfg      types.EngineConfig
	logger   *slog.Logger
}

// NewController creates a Controller over adapters in fan-out order.
func NewController(adapters []Adapter, cfg types.EngineConfig, logger *slog.Logger) (*Controller, error) {
	for i, a := range adapters {
		if a.Backend == nil {
			return nil, fmt.Errorf("adapter %d has no backend", i)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		adapters: adapters,
		cfg:      cfg,
		logger:   logger.With("component", "round-controller"),
	}, nil
}

// Run executes rounds until the target count, the round cap or the deadline
// ends the search, measuring the deadline from now. logger may be nil, in
// which case the controller's logger is used.
func (c *Controller) Run(ctx context.Context, query string, logger *slog.Logger) Outcome {
	return c.RunSince(ctx, query, time.Now(), logger)
}

// RunSince is Run with the deadline measured from start, so work done
// before the first round (keyword extraction) counts against the budget.
// It never fails: backend problems only shrink the result.
func (c *Controller) RunSince(ctx context.Context, query string, start time.Time, logger *slog.Logger) Outcome {
	if logger == nil {
		logger = c.logger
	}

	var (
		out         Outcome
		accumulated []types.Paper
		state       = StateIdle
	)

	logger.Debug("search started", "state", state, "query", query, "adapters", len(c.adapters))
	state = StateFetching
	for state != StateDone {
		switch state {
		case StateFetching:
			elapsed := time.Since(start)
			remaining := c.cfg.Deadline - elapsed
			if remaining <= 0 {
				logger.Info("search deadline reached", "elapsed", elapsed, "papers", len(accumulated))
				state = StateDone
				continue
			}

			out.Rounds++
			fresh, errs := c.fanOut(ctx, query, remaining, logger.With("round", out.Rounds))
			out.BackendErrors = append(out.BackendErrors, errs...)

			before := len(accumulated) + len(fresh)
			accumulated = Deduplicate(append(accumulated, fresh...))
			logger.Info("round merged",
				"round", out.Rounds, "max_rounds", c.cfg.MaxRounds,
				"new", len(fresh), "duplicates", before-len(accumulated),
				"unique", len(accumulated), "target", c.cfg.TargetCount)
			state = StateEvaluating

		case StateEvaluating:
			switch {
			case len(accumulated) >= c.cfg.TargetCount:
				out.TargetReached = true
				state = StateDone
			case out.Rounds >= c.cfg.MaxRounds:
				state = StateDone
			case !sleepCtx(ctx, c.cfg.RoundDelay):
				logger.Info("search cancelled", "err", ctx.Err())
				state = StateDone
			default:
				state = StateFetching
			}
		}
	}

	out.Papers = accumulated
	out.Elapsed = time.Since(start)
	out.State = state
	logger.Info("search finished",
		"papers", len(out.Papers), "rounds", out.Rounds,
		"elapsed", out.Elapsed, "target_reached", out.TargetReached)
	return out
}

// roundWorkers sizes a round's pool: one worker per adapter, capped by
// cfg.Workers when that is set.
func (c *Controller) roundWorkers() int {
	n := len(c.adapters)
	if c.cfg.Workers > 0 && c.cfg.Workers < n {
		n = c.cfg.Workers
	}
	return max(n, 1)
}

type fetchResult struct {
	index  int
	papers []types.Paper
	err    error
}

// fanOut runs every adapter concurrently with budget as each one's timeout
// ceiling and waits at most budget for them. Results are returned in adapter
// order only after the fan-out settles; adapters still running at the
// boundary count as empty and their late results are dropped.
func (c *Controller) fanOut(ctx context.Context, query string, budget time.Duration, logger *slog.Logger) ([]types.Paper, []string) {
	// Buffered so abandoned tasks never block on send.
	results := make(chan fetchResult, len(c.adapters))
	collected := make([][]types.Paper, len(c.adapters))
	reported := make([]bool, len(c.adapters))
	var errs []string

	// The pool belongs to this round only. Release lets abandoned tasks
	// finish in the background without holding workers of later rounds.
	pool, err := ants.NewPool(c.roundWorkers(), ants.WithNonblocking(true))
	if err != nil {
		for _, a := range c.adapters {
			errs = append(errs, fmt.Sprintf("%s: %v", a.Backend.Name(), err))
		}
		return nil, errs
	}
	defer pool.Release()

	pending := 0
	for i, a := range c.adapters {
		actx, cancel := context.WithTimeout(ctx, budget)
		task := func() {
			defer cancel()
			papers, err := a.Backend.Search(actx, query, a.Limit)
			results <- fetchResult{index: i, papers: papers, err: err}
		}
		if err := pool.Submit(task); err != nil {
			cancel()
			reported[i] = true
			logger.Warn("backend skipped", "source", a.Backend.Name(), "err", err)
			errs = append(errs, fmt.Sprintf("%s: %v", a.Backend.Name(), ErrPoolSaturated))
			continue
		}
		pending++
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()

wait:
	for pending > 0 {
		select {
		case r := <-results:
			pending--
			reported[r.index] = true
			name := c.adapters[r.index].Backend.Name()
			if r.err != nil {
				logger.Warn("backend failed", "source", name, "err", r.err)
				errs = append(errs, fmt.Sprintf("%s: %v", name, r.err))
				continue
			}
			logger.Debug("backend returned", "source", name, "papers", len(r.papers))
			collected[r.index] = r.papers
		case <-timer.C:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	var abandoned []string
	for i, ok := range reported {
		if ok {
			continue
		}
		name := string(c.adapters[i].Backend.Name())
		abandoned = append(abandoned, name)
		errs = append(errs, fmt.Sprintf("%s: %v", name, ErrAbandoned))
	}
	if len(abandoned) > 0 {
		logger.Warn("round budget exhausted", "abandoned", strings.Join(abandoned, ","), "budget", budget)
	}

	var merged []types.Paper
	for _, papers := range collected {
		merged = append(merged, papers...)
	}
	return merged, errs
}

// sleepCtx waits for d and reports whether the context is still live.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
