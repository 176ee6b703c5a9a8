// Package scheduler drives recurring cycle runs for deployments without an
// external cron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tenniswire/internal/config"
	"tenniswire/internal/ports"
)

// Cron wraps a cron runner around the cycle job.
type Cron struct {
	cfg    config.SchedulerConfig
	logger *slog.Logger
	runner *cron.Cron
}

var _ ports.Scheduler = (*Cron)(nil)

// New wires the in-process scheduler.
func New(cfg config.SchedulerConfig, logger *slog.Logger) *Cron {
	return &Cron{cfg: cfg, logger: logger}
}

// Start registers the job on the configured cron expression and begins
// ticking. Runs overlap-free: a tick is skipped while the previous one runs.
func (c *Cron) Start(_ context.Context, job func(time.Time)) error {
	if !c.cfg.Enabled {
		c.logger.Info("scheduler disabled")
		return nil
	}

	c.runner = cron.New(
		cron.WithLocation(c.cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.runner.AddFunc(c.cfg.CronExpression, func() {
		job(time.Now())
	})
	if err != nil {
		return fmt.Errorf("register cron job: %w", err)
	}

	c.runner.Start()
	c.logger.Info("scheduler started", "expression", c.cfg.CronExpression, "timezone", c.cfg.Timezone)
	return nil
}

// Stop halts ticking and waits for a running job within the context.
func (c *Cron) Stop(ctx context.Context) error {
	if c.runner == nil {
		return nil
	}
	done := c.runner.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
