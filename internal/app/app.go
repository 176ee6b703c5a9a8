// Package app assembles the pipeline components and owns their lifecycle.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"tenniswire/internal/config"
	"tenniswire/internal/contentrepo"
	"tenniswire/internal/extract"
	"tenniswire/internal/feeds"
	"tenniswire/internal/fetch"
	"tenniswire/internal/httpapi"
	"tenniswire/internal/ingest"
	"tenniswire/internal/ledger"
	"tenniswire/internal/orchestrator"
	"tenniswire/internal/ports"
	"tenniswire/internal/publish"
	"tenniswire/internal/rewrite"
	"tenniswire/internal/scheduler"
	"tenniswire/internal/trigger"
)

const shutdownGrace = 10 * time.Second

// Application holds the wired components.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db     *sql.DB
	orch   *orchestrator.Orchestrator
	server *httpapi.Server
	cron   *scheduler.Cron
}

// New validates configuration, connects storage and wires every stage.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ledgerStore := ledger.NewPostgres(db)
	if err := ledgerStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	repo := contentrepo.NewPostgres(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}

	plain := fetch.NewClient(
		&http.Client{Timeout: cfg.Fetch.Timeout},
		cfg.Fetch.UserAgent,
		baseLogger.With("component", "fetch"),
	)
	var rendered extract.Loader
	if cfg.Fetch.HeadlessEnabled {
		rendered = fetch.NewRenderedLoader(cfg.Fetch.UserAgent, cfg.Fetch.HeadlessTimeout, baseLogger.With("component", "fetch.rendered"))
	}

	extractLogger := baseLogger.With("component", "extract")
	extractors := extract.NewRegistry(extract.NewGeneric(plain, extractLogger))
	extractors.Register("atptour.com", extract.NewATPTour(plain, rendered, extractLogger))
	extractors.Register("wtatennis.com", extract.NewWTATennis(plain, rendered, extractLogger))

	providers := feeds.BuildProviders(cfg, plain, extractors, baseLogger.With("component", "feeds"))

	usage := rewrite.NewAggregator()
	generator := rewrite.NewOpenAI(cfg.OpenAI, baseLogger.With("component", "openai"))
	pipeline := rewrite.NewPipeline(generator, repo, cfg, usage, baseLogger.With("component", "rewrite"))

	ingestStage := ingest.New(providers, ledgerStore, repo, cfg.Ingest, baseLogger.With("component", "ingest"))
	backfill := orchestrator.NewBackfill(repo, pipeline, usage, cfg.Backfill, baseLogger.With("component", "backfill"))
	gate := publish.New(repo, cfg.Publish, baseLogger.With("component", "publish"))

	// Without a cycle URL the orchestrator finishes each run silently and
	// leaves chaining to the external scheduler.
	var followUp ports.TriggerClient
	if cfg.Trigger.CycleURL != "" {
		followUp = trigger.NewClient(cfg.Trigger.CycleURL, cfg.Trigger.Secret)
	}

	orch := orchestrator.New(ingestStage, backfill, gate, followUp, cfg, baseLogger.With("component", "orchestrator"))

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		orch:   orch,
		server: httpapi.New(orch, cfg, baseLogger.With("component", "httpapi")),
		cron:   scheduler.New(cfg.Scheduler, baseLogger.With("component", "scheduler")),
	}, nil
}

// Run starts the HTTP listener and the optional in-process scheduler, then
// blocks until the context is cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.cron.Start(ctx, func(time.Time) {
		a.orch.RunCycle(ctx, 0)
	}); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.server.Start() }()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := a.cron.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler did not stop cleanly", "error", err)
	}
	err := a.server.Shutdown(shutdownCtx)
	if closeErr := a.db.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
