// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// mockBackend is a test double for the Backend interface.
type mockBackend struct {
	name   types.Source
	papers func(call int) []types.Paper
	err    error
	delay  time.Duration
	// ignoreCtx makes the backend sleep through cancellation, like a
	// provider that does not honour its context.
	ignoreCtx bool
	calls     atomic.Int32
}

func (m *mockBackend) Name() types.Source { return m.name }

func (m *mockBackend) Search(ctx context.Context, _ string, _ int) ([]types.Paper, error) {
	call := int(m.calls.Add(1))
	if m.delay > 0 {
		if m.ignoreCtx {
			time.Sleep(m.delay)
		} else {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.papers == nil {
		return nil, nil
	}
	return m.papers(call), nil
}

// distinct returns n papers whose DOIs are unique per source and call.
func distinct(src types.Source, n int) func(int) []types.Paper {
	return func(call int) []types.Paper {
		out := make([]types.Paper, n)
		for i := range out {
			out[i] = types.Paper{
				ID:     fmt.Sprintf("%s_%d_%d", src, call, i),
				Title:  fmt.Sprintf("%s paper %d-%d", src, call, i),
				DOI:    fmt.Sprintf("10.1/%s.%d.%d", src, call, i),
				Source: src,
			}
		}
		return out
	}
}

// same returns the same n papers on every call.
func same(src types.Source, n int) func(int) []types.Paper {
	f := distinct(src, n)
	return func(int) []types.Paper { return f(1) }
}

func testEngineCfg() types.EngineConfig {
	return types.EngineConfig{
		TargetCount: 10,
		Deadline:    2 * time.Second,
		MaxRounds:   3,
		RoundDelay:  10 * time.Millisecond,
		Workers:     8,
	}
}

func newTestController(t *testing.T, cfg types.EngineConfig, backends ...Backend) *Controller {
	t.Helper()
	adapters := make([]Adapter, len(backends))
	for i, b := range backends {
		adapters[i] = Adapter{Backend: b, Limit: 5}
	}
	c, err := NewController(adapters, cfg, nil)
	require.NoError(t, err)
	return c
}

func TestRunReachesTargetInOneRound(t *testing.T) {
	a := &mockBackend{name: types.SourceSemanticScholar, papers: distinct(types.SourceSemanticScholar, 4)}
	b := &mockBackend{name: types.SourcePubMed, papers: distinct(types.SourcePubMed, 4)}
	c := &mockBackend{name: types.SourceHealthline, papers: distinct(types.SourceHealthline, 4)}
	ctrl := newTestController(t, testEngineCfg(), a, b, c)

	out := ctrl.Run(context.Background(), "afternoon energy dip", nil)

	assert.True(t, out.TargetReached)
	assert.Equal(t, 1, out.Rounds)
	assert.Len(t, out.Papers, 12)
	assert.Equal(t, StateDone, out.State)
	assert.Empty(t, out.BackendErrors)
	assert.EqualValues(t, 1, a.calls.Load())
}

func TestRunAccumulatesAcrossRounds(t *testing.T) {
	a := &mockBackend{name: types.SourceSemanticScholar, papers: distinct(types.SourceSemanticScholar, 2)}
	b := &mockBackend{name: types.SourcePubMed, papers: distinct(types.SourcePubMed, 2)}
	ctrl := newTestController(t, testEngineCfg(), a, b)

	out := ctrl.Run(context.Background(), "q", nil)

	assert.True(t, out.TargetReached)
	assert.Equal(t, 3, out.Rounds, "4 new papers per round needs 3 rounds for 10")
	assert.Len(t, out.Papers, 12)
}

func TestRunPartialAfterMaxRounds(t *testing.T) {
	a := &mockBackend{name: types.SourceSemanticScholar, papers: same(types.SourceSemanticScholar, 3)}
	b := &mockBackend{name: types.SourcePubMed, err: errors.New("HTTP 500")}
	ctrl := newTestController(t, testEngineCfg(), a, b)

	out := ctrl.Run(context.Background(), "q", nil)

	assert.False(t, out.TargetReached)
	assert.Equal(t, 3, out.Rounds)
	assert.Len(t, out.Papers, 3, "repeated papers are deduplicated across rounds")
	assert.Len(t, out.BackendErrors, 3)
	assert.Contains(t, out.BackendErrors[0], "pubmed: HTTP 500")
}

func TestRunAllEmptyStaysWithinBudget(t *testing.T) {
	cfg := testEngineCfg()
	cfg.RoundDelay = 20 * time.Millisecond
	ctrl := newTestController(t, cfg,
		&mockBackend{name: types.SourceSemanticScholar},
		&mockBackend{name: types.SourcePubMed},
		&mockBackend{name: types.SourceHealthline},
	)

	out := ctrl.Run(context.Background(), "q", nil)

	assert.False(t, out.TargetReached)
	assert.Empty(t, out.Papers)
	assert.Equal(t, 3, out.Rounds)
	assert.LessOrEqual(t, out.Elapsed, cfg.Deadline+2*cfg.RoundDelay)
}

func TestRunAbandonsSlowBackend(t *testing.T) {
	cfg := testEngineCfg()
	cfg.Deadline = 150 * time.Millisecond
	slow := &mockBackend{
		name: types.SourcePubMed, papers: distinct(types.SourcePubMed, 10),
		delay: 600 * time.Millisecond, ignoreCtx: true,
	}
	fast := &mockBackend{name: types.SourceSemanticScholar, papers: same(types.SourceSemanticScholar, 2)}
	ctrl := newTestController(t, cfg, fast, slow)

	start := time.Now()
	out := ctrl.Run(context.Background(), "q", nil)
	elapsed := time.Since(start)

	assert.False(t, out.TargetReached)
	assert.Len(t, out.Papers, 2, "late results are discarded")
	assert.Less(t, elapsed, 450*time.Millisecond)
	joined := strings.Join(out.BackendErrors, "\n")
	assert.Contains(t, joined, "pubmed: "+ErrAbandoned.Error())
}

func TestRunDeadlineAlreadySpent(t *testing.T) {
	cfg := testEngineCfg()
	cfg.Deadline = 0
	a := &mockBackend{name: types.SourcePubMed, papers: distinct(types.SourcePubMed, 4)}
	ctrl := newTestController(t, cfg, a)

	out := ctrl.Run(context.Background(), "q", nil)

	assert.Zero(t, out.Rounds)
	assert.Empty(t, out.Papers)
	assert.Zero(t, a.calls.Load())
}

func TestRunMergesInAdapterOrder(t *testing.T) {
	cfg := testEngineCfg()
	cfg.TargetCount = 2
	first := &mockBackend{name: types.SourceSemanticScholar, papers: same(types.SourceSemanticScholar, 1), delay: 50 * time.Millisecond}
	second := &mockBackend{name: types.SourcePubMed, papers: same(types.SourcePubMed, 1)}
	ctrl := newTestController(t, cfg, first, second)

	out := ctrl.Run(context.Background(), "q", nil)

	require.Len(t, out.Papers, 2)
	assert.Equal(t, types.SourceSemanticScholar, out.Papers[0].Source)
	assert.Equal(t, types.SourcePubMed, out.Papers[1].Source)
}

func TestRunDeduplicatesWithinRound(t *testing.T) {
	shared := types.Paper{DOI: "10.5/same"}
	a := &mockBackend{name: types.SourceSemanticScholar, papers: func(int) []types.Paper {
		p := shared
		p.ID, p.Title, p.Source = "semantic_scholar_x", "Title from S2", types.SourceSemanticScholar
		return []types.Paper{p}
	}}
	b := &mockBackend{name: types.SourcePubMed, papers: func(int) []types.Paper {
		p := shared
		p.ID, p.Title, p.Source = "pubmed_y", "Title from PubMed", types.SourcePubMed
		return []types.Paper{p}
	}}
	cfg := testEngineCfg()
	cfg.MaxRounds = 1
	ctrl := newTestController(t, cfg, a, b)

	out := ctrl.Run(context.Background(), "q", nil)

	require.Len(t, out.Papers, 1)
	assert.Equal(t, "Title from S2", out.Papers[0].Title)
}

func TestRunPoolSaturated(t *testing.T) {
	cfg := testEngineCfg()
	cfg.Workers = 1
	cfg.MaxRounds = 1
	a := &mockBackend{name: types.SourceSemanticScholar, papers: same(types.SourceSemanticScholar, 1), delay: 50 * time.Millisecond}
	b := &mockBackend{name: types.SourcePubMed, papers: same(types.SourcePubMed, 1)}
	ctrl := newTestController(t, cfg, a, b)

	out := ctrl.Run(context.Background(), "q", nil)

	assert.Len(t, out.Papers, 1)
	assert.Contains(t, strings.Join(out.BackendErrors, "\n"), ErrPoolSaturated.Error())
	assert.Zero(t, b.calls.Load())
}

func TestRunCancelledContext(t *testing.T) {
	cfg := testEngineCfg()
	cfg.RoundDelay = time.Second
	a := &mockBackend{name: types.SourcePubMed}
	ctrl := newTestController(t, cfg, a)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := ctrl.Run(ctx, "q", nil)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, out.Rounds)
	assert.Equal(t, StateDone, out.State)
}

func TestRunConcurrentCallers(t *testing.T) {
	a := &mockBackend{name: types.SourceSemanticScholar, papers: distinct(types.SourceSemanticScholar, 10)}
	ctrl := newTestController(t, testEngineCfg(), a)

	done := make(chan Outcome, 4)
	for range 4 {
		go func() { done <- ctrl.Run(context.Background(), "q", nil) }()
	}
	for range 4 {
		out := <-done
		assert.True(t, out.TargetReached)
		assert.Len(t, out.Papers, 10)
	}
}

func TestRunCallersDoNotShareWorkers(t *testing.T) {
	cfg := testEngineCfg()
	cfg.Workers = 3
	cfg.MaxRounds = 1
	backends := []Backend{
		&mockBackend{name: types.SourceSemanticScholar, papers: same(types.SourceSemanticScholar, 1), delay: 50 * time.Millisecond},
		&mockBackend{name: types.SourcePubMed, papers: same(types.SourcePubMed, 1), delay: 50 * time.Millisecond},
		&mockBackend{name: types.SourceHealthline, papers: same(types.SourceHealthline, 1), delay: 50 * time.Millisecond},
	}
	ctrl := newTestController(t, cfg, backends...)

	const callers = 20
	done := make(chan Outcome, callers)
	for range callers {
		go func() { done <- ctrl.Run(context.Background(), "q", nil) }()
	}
	for range callers {
		out := <-done
		assert.Len(t, out.Papers, 3)
		assert.Empty(t, out.BackendErrors)
	}
}

func TestRunSinceCountsEarlierWork(t *testing.T) {
	cfg := testEngineCfg()
	a := &mockBackend{name: types.SourcePubMed}
	ctrl := newTestController(t, cfg, a)

	out := ctrl.RunSince(context.Background(), "q", time.Now().Add(-cfg.Deadline), nil)

	assert.Zero(t, out.Rounds)
	assert.Zero(t, a.calls.Load())
	assert.GreaterOrEqual(t, out.Elapsed, cfg.Deadline)
	assert.Equal(t, StateDone, out.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "evaluating", StateEvaluating.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(9)", State(9).String())
}
