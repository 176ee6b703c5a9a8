package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// UsageReader exposes the run totals the backfill summary reports.
type UsageReader interface {
	Run() domain.UsageAggregate
	Reset()
}

// Backfill drives the AI pipeline over the unrewritten-draft backlog with at
// most K pipelines in flight. The deadline is cooperative: no new draft starts
// after it passes, in-flight drafts finish.
type Backfill struct {
	repo     ports.ContentRepository
	rewriter ports.DraftRewriter
	usage    UsageReader
	cfg      config.BackfillConfig
	logger   *slog.Logger

	now func() time.Time
}

// NewBackfill wires the backfill stage.
func NewBackfill(repo ports.ContentRepository, rewriter ports.DraftRewriter, usage UsageReader, cfg config.BackfillConfig, logger *slog.Logger) *Backfill {
	return &Backfill{
		repo:     repo,
		rewriter: rewriter,
		usage:    usage,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes up to MaxItems drafts and reports partial progress when the
// deadline cuts the batch short. A zero deadline means unbounded.
func (b *Backfill) Run(ctx context.Context, deadline time.Time) domain.BackfillSummary {
	start := b.now()
	if b.usage != nil {
		b.usage.Reset()
	}
	summary := domain.BackfillSummary{}

	drafts, err := b.repo.DraftsNeedingRewrite(ctx, b.cfg.MaxItems)
	if err != nil {
		b.logger.Error("backlog query failed", "error", err)
		summary.Duration = b.now().Sub(start)
		return summary
	}

	concurrency := int64(b.cfg.Concurrency)
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(concurrency)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, draft := range drafts {
		if b.expired(deadline) {
			summary.TimedOut = true
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			// Acquire only fails on context cancellation, which is shutdown,
			// not budget exhaustion.
			summary.TimedOut = b.expired(deadline)
			break
		}
		// Deadline may have passed while waiting on a slot.
		if b.expired(deadline) {
			sem.Release(1)
			summary.TimedOut = true
			break
		}

		wg.Add(1)
		go func(draft domain.ArticleDraft) {
			defer wg.Done()
			defer sem.Release(1)

			err := b.rewriter.RewriteDraft(ctx, draft)

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++
			if err != nil {
				summary.Failed++
				b.logger.Warn("rewrite failed", "draft", draft.ID, "error", err)
			} else {
				summary.Succeeded++
			}
		}(draft)
	}

	wg.Wait()

	if remaining, err := b.repo.CountDraftsNeedingRewrite(ctx); err == nil {
		summary.Remaining = remaining
	} else {
		b.logger.Warn("backlog recount failed", "error", err)
	}
	if b.usage != nil {
		summary.Usage = b.usage.Run()
	}
	summary.Duration = b.now().Sub(start)

	b.logger.Info("backfill finished",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"remaining", summary.Remaining,
		"timedOut", summary.TimedOut,
	)
	return summary
}

func (b *Backfill) expired(deadline time.Time) bool {
	return !deadline.IsZero() && !b.now().Before(deadline)
}
