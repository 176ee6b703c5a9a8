// Package publish promotes reviewed drafts into public documents. The gate is
// the only component that creates published counterparts; everything upstream
// works on drafts.
package publish

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tenniswire/internal/canonical"
	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// Gate selects drafts with a usable AI rewrite and publishes them.
type Gate struct {
	repo   ports.ContentRepository
	cfg    config.PublishConfig
	logger *slog.Logger

	now func() time.Time
}

// New wires the publish gate.
func New(repo ports.ContentRepository, cfg config.PublishConfig, logger *slog.Logger) *Gate {
	return &Gate{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// Run publishes every eligible draft. One document failing never aborts the
// batch. In dry-run mode selection and logging happen without any write.
func (g *Gate) Run(ctx context.Context) domain.PublishSummary {
	start := g.now()
	summary := domain.PublishSummary{DryRun: g.cfg.DryRun}

	drafts, err := g.repo.DraftsReadyToPublish(ctx, 0)
	if err != nil {
		g.logger.Error("publish selection failed", "error", err)
		summary.Failed++
		summary.Duration = g.now().Sub(start)
		return summary
	}

	for _, draft := range drafts {
		switch g.publishOne(ctx, draft) {
		case outcomePublished:
			summary.Published++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
	}

	summary.Duration = g.now().Sub(start)
	g.logger.Info("publish finished",
		"published", summary.Published,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"dryRun", summary.DryRun,
	)
	return summary
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (g *Gate) publishOne(ctx context.Context, draft domain.ArticleDraft) outcome {
	// The repository query preselects on aiFinal.body; re-check here so the
	// gate holds even against a permissive repository implementation.
	if draft.AIFinal == nil || strings.TrimSpace(draft.AIFinal.Body) == "" {
		return outcomeSkipped
	}
	if draft.Status == domain.StatusPublished {
		return outcomeSkipped
	}
	if strings.TrimSpace(draft.Slug) == "" {
		g.logger.Warn("draft has no slug, not publishing", "draft", draft.ID)
		return outcomeSkipped
	}

	publishedAt := g.resolvePublishTime(draft)
	doc := publishedFromDraft(draft, publishedAt)

	if g.cfg.DryRun {
		g.logger.Info("dry run: would publish", "draft", draft.ID, "slug", doc.Slug, "publishedAt", publishedAt)
		return outcomePublished
	}

	if err := g.repo.ReplacePublished(ctx, doc); err != nil {
		g.logger.Error("publish write failed", "draft", draft.ID, "error", err)
		return outcomeFailed
	}
	if err := g.repo.MarkPublished(ctx, draft.ID, publishedAt); err != nil {
		g.logger.Error("status flip failed", "draft", draft.ID, "error", err)
		return outcomeFailed
	}

	g.logger.Info("published", "draft", draft.ID, "slug", doc.Slug)
	return outcomePublished
}

// resolvePublishTime keeps the source publication date when known, otherwise
// the moment of publishing.
func (g *Gate) resolvePublishTime(draft domain.ArticleDraft) time.Time {
	if draft.PublishedAt != nil && !draft.PublishedAt.IsZero() {
		return *draft.PublishedAt
	}
	return g.now().UTC()
}

// publishedFromDraft derives the public counterpart. Identity derives from
// the canonical URL so republishing replaces rather than duplicates.
func publishedFromDraft(draft domain.ArticleDraft, publishedAt time.Time) domain.PublishedArticle {
	return domain.PublishedArticle{
		ID:           canonical.PublishedID(draft.ID),
		DraftID:      draft.ID,
		Slug:         draft.Slug,
		CanonicalURL: draft.CanonicalURL,
		Title:        draft.AIFinal.Title,
		Excerpt:      draft.AIFinal.Excerpt,
		Body:         draft.AIFinal.Body,
		Tags:         draft.Tags,
		Authors:      draft.Authors,
		Source:       draft.Source,
		AI:           draft.AIFinal,
		PublishedAt:  publishedAt,
	}
}
