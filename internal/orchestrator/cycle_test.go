package orchestrator

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
)

type stubIngest struct {
	summary   domain.IngestSummary
	deadlines []time.Time
}

func (s *stubIngest) Run(_ context.Context, deadline time.Time) domain.IngestSummary {
	s.deadlines = append(s.deadlines, deadline)
	return s.summary
}

type stubBackfill struct {
	summary domain.BackfillSummary
}

func (s *stubBackfill) Run(context.Context, time.Time) domain.BackfillSummary { return s.summary }

type stubPublish struct {
	summary domain.PublishSummary
	runs    int
}

func (s *stubPublish) Run(context.Context) domain.PublishSummary {
	s.runs++
	return s.summary
}

type recordingTrigger struct {
	calls chan triggerCall
}

type triggerCall struct {
	depth   int
	summary domain.CycleSummary
}

func (r *recordingTrigger) TriggerCycle(_ context.Context, chainDepth int, summary domain.CycleSummary) error {
	r.calls <- triggerCall{depth: chainDepth, summary: summary}
	return nil
}

func cycleConfig() config.Config {
	return config.Config{
		Trigger:  config.TriggerConfig{MaxChainDepth: 3},
		Ingest:   config.IngestConfig{Budget: 4 * time.Minute, SafetyBuffer: 20 * time.Second},
		Backfill: config.BackfillConfig{Budget: 6 * time.Minute, SafetyBuffer: 30 * time.Second},
	}
}

func TestCycleChainsWhenWorkRemains(t *testing.T) {
	t.Parallel()

	trigger := &recordingTrigger{calls: make(chan triggerCall, 1)}
	orch := New(
		&stubIngest{summary: domain.IngestSummary{Created: 5}},
		&stubBackfill{summary: domain.BackfillSummary{Processed: 12, Remaining: 7}},
		&stubPublish{summary: domain.PublishSummary{Published: 3}},
		trigger,
		cycleConfig(),
		slog.New(slog.DiscardHandler),
	)

	summary := orch.RunCycle(context.Background(), 0)
	require.True(t, summary.FollowUpTriggered)
	require.Equal(t, 3, summary.Publish.Published)

	select {
	case call := <-trigger.calls:
		require.Equal(t, 1, call.depth)
		require.Equal(t, 7, call.summary.Backfill.Remaining)
	case <-time.After(time.Second):
		t.Fatal("self-trigger never fired")
	}
}

func TestCycleStopsAtMaxChainDepth(t *testing.T) {
	t.Parallel()

	trigger := &recordingTrigger{calls: make(chan triggerCall, 1)}
	orch := New(
		&stubIngest{},
		&stubBackfill{summary: domain.BackfillSummary{Remaining: 7}},
		&stubPublish{},
		trigger,
		cycleConfig(),
		slog.New(slog.DiscardHandler),
	)

	summary := orch.RunCycle(context.Background(), 3)
	require.False(t, summary.FollowUpTriggered)

	select {
	case <-trigger.calls:
		t.Fatal("trigger fired past the chain-depth bound")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCycleNoFollowUpWhenDrained(t *testing.T) {
	t.Parallel()

	trigger := &recordingTrigger{calls: make(chan triggerCall, 1)}
	publish := &stubPublish{}
	orch := New(&stubIngest{}, &stubBackfill{}, publish, trigger, cycleConfig(), slog.New(slog.DiscardHandler))

	summary := orch.RunCycle(context.Background(), 0)
	require.False(t, summary.FollowUpTriggered)
	require.Equal(t, 1, publish.runs, "publish always runs")

	select {
	case <-trigger.calls:
		t.Fatal("trigger fired with no pending work")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCycleChainsOnPendingFeeds(t *testing.T) {
	t.Parallel()

	trigger := &recordingTrigger{calls: make(chan triggerCall, 1)}
	ingest := &stubIngest{summary: domain.IngestSummary{
		TimedOut: true,
		Pending:  []domain.PendingFeedState{{Feed: "atptour", RemainingItems: 60}},
	}}
	orch := New(ingest, &stubBackfill{}, &stubPublish{}, trigger, cycleConfig(), slog.New(slog.DiscardHandler))

	summary := orch.RunCycle(context.Background(), 1)
	require.True(t, summary.FollowUpTriggered)

	call := <-trigger.calls
	require.Equal(t, 2, call.depth)
	require.Equal(t, "atptour", call.summary.Ingest.Pending[0].Feed)
}

func TestStageDeadlineSubtractsSafetyBuffer(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	ingest := &stubIngest{}
	orch := New(ingest, &stubBackfill{}, &stubPublish{}, nil, cycleConfig(), slog.New(slog.DiscardHandler))
	orch.now = func() time.Time { return base }

	orch.RunIngest(context.Background())
	require.Len(t, ingest.deadlines, 1)
	require.Equal(t, base.Add(4*time.Minute-20*time.Second), ingest.deadlines[0])
}
