// Package orchestrator runs the Ingest, Backfill and Publish stages in
// sequence under per-stage wall-clock budgets and hands unfinished work to a
// follow-up invocation of itself.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// IngestRunner is the ingest stage as the orchestrator sees it.
type IngestRunner interface {
	Run(ctx context.Context, deadline time.Time) domain.IngestSummary
}

// BackfillRunner is the AI backfill stage as the orchestrator sees it.
type BackfillRunner interface {
	Run(ctx context.Context, deadline time.Time) domain.BackfillSummary
}

// PublishRunner is the publish gate as the orchestrator sees it. Publish
// makes no model calls, so it runs to completion without a deadline.
type PublishRunner interface {
	Run(ctx context.Context) domain.PublishSummary
}

// Orchestrator drives one full cycle per invocation.
type Orchestrator struct {
	ingest   IngestRunner
	backfill BackfillRunner
	publish  PublishRunner
	trigger  ports.TriggerClient
	cfg      config.Config
	logger   *slog.Logger

	now func() time.Time
}

// New wires the orchestrator. trigger may be nil when self-triggering is not
// configured.
func New(ingest IngestRunner, backfill BackfillRunner, publish PublishRunner, trigger ports.TriggerClient, cfg config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		ingest:   ingest,
		backfill: backfill,
		publish:  publish,
		trigger:  trigger,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// RunCycle executes Ingest, Backfill and Publish in order, then fires the
// asynchronous self-trigger when work remains and the chain depth allows.
// It never waits on the follow-up.
func (o *Orchestrator) RunCycle(ctx context.Context, chainDepth int) domain.CycleSummary {
	runID := uuid.NewString()
	start := o.now()
	log := o.logger.With("run", runID, "chainDepth", chainDepth)
	log.Info("cycle started")

	summary := domain.CycleSummary{
		StartedAt:  start.UTC(),
		ChainDepth: chainDepth,
	}

	summary.Ingest = o.ingest.Run(ctx, o.stageDeadline(o.cfg.Ingest.Budget, o.cfg.Ingest.SafetyBuffer))
	summary.Backfill = o.backfill.Run(ctx, o.stageDeadline(o.cfg.Backfill.Budget, o.cfg.Backfill.SafetyBuffer))
	summary.Publish = o.publish.Run(ctx)
	summary.Duration = o.now().Sub(start)

	if o.shouldChain(summary, chainDepth) {
		summary.FollowUpTriggered = true
		o.fireFollowUp(ctx, chainDepth+1, summary, log)
	}

	log.Info("cycle finished",
		"created", summary.Ingest.Created,
		"rewritten", summary.Backfill.Succeeded,
		"published", summary.Publish.Published,
		"backlogRemaining", summary.Backfill.Remaining,
		"pendingFeeds", len(summary.Ingest.Pending),
		"followUp", summary.FollowUpTriggered,
		"duration", summary.Duration,
	)
	return summary
}

// RunIngest runs the ingest stage alone, for its dedicated trigger endpoint.
func (o *Orchestrator) RunIngest(ctx context.Context) domain.IngestSummary {
	return o.ingest.Run(ctx, o.stageDeadline(o.cfg.Ingest.Budget, o.cfg.Ingest.SafetyBuffer))
}

// RunBackfill runs the backfill stage alone, for its dedicated trigger endpoint.
func (o *Orchestrator) RunBackfill(ctx context.Context) domain.BackfillSummary {
	return o.backfill.Run(ctx, o.stageDeadline(o.cfg.Backfill.Budget, o.cfg.Backfill.SafetyBuffer))
}

// stageDeadline subtracts the safety buffer from the nominal budget. A
// non-positive budget means the stage runs unbounded.
func (o *Orchestrator) stageDeadline(budget, buffer time.Duration) time.Time {
	if budget <= 0 {
		return time.Time{}
	}
	if buffer >= budget {
		buffer = 0
	}
	return o.now().Add(budget - buffer)
}

func (o *Orchestrator) shouldChain(summary domain.CycleSummary, chainDepth int) bool {
	return o.trigger != nil && summary.WorkRemains() && chainDepth < o.cfg.Trigger.MaxChainDepth
}

// fireFollowUp issues the self-trigger without blocking the caller. The
// outbound call survives the request context; advisory only, never awaited.
func (o *Orchestrator) fireFollowUp(ctx context.Context, nextDepth int, summary domain.CycleSummary, log *slog.Logger) {
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := o.trigger.TriggerCycle(detached, nextDepth, summary); err != nil {
			log.Warn("self-trigger failed", "nextDepth", nextDepth, "error", err)
			return
		}
		log.Info("follow-up triggered", "nextDepth", nextDepth)
	}()
}
