// Package ingest drains the configured feed providers into the ledger and the
// content repository. The stage is budget-bounded: it checks its deadline
// before every feed and every item, and checkpoints whatever it could not
// finish so a follow-up run resumes instead of starting over.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tenniswire/internal/canonical"
	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// Stage runs one ingestion pass over all configured providers.
type Stage struct {
	providers []ports.FeedProvider
	ledger    ports.Ledger
	repo      ports.ContentRepository
	cfg       config.IngestConfig
	logger    *slog.Logger

	now func() time.Time
}

// New wires the ingest stage.
func New(providers []ports.FeedProvider, ledger ports.Ledger, repo ports.ContentRepository, cfg config.IngestConfig, logger *slog.Logger) *Stage {
	return &Stage{
		providers: providers,
		ledger:    ledger,
		repo:      repo,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes feeds in configured order until done or the deadline passes.
// A zero deadline means unbounded. Items within a feed keep provider order.
func (s *Stage) Run(ctx context.Context, deadline time.Time) domain.IngestSummary {
	start := s.now()
	summary := domain.IngestSummary{Feeds: len(s.providers)}

	published := s.publishedIndex(ctx)
	since := s.since(start)

	for idx, provider := range s.providers {
		if s.expired(deadline) {
			summary.TimedOut = true
			// Every feed we never reached is checkpointed untouched.
			for _, remaining := range s.providers[idx:] {
				summary.Pending = append(summary.Pending, domain.PendingFeedState{Feed: remaining.Name()})
			}
			break
		}

		pending := s.drainFeed(ctx, provider, since, deadline, published, &summary)
		if pending != nil {
			summary.TimedOut = true
			summary.Pending = append(summary.Pending, *pending)
		}
	}

	summary.Duration = s.now().Sub(start)
	s.logger.Info("ingest finished",
		"feeds", summary.Feeds,
		"created", summary.Created,
		"refreshed", summary.Refreshed,
		"skipped", summary.Skipped,
		"blocked", summary.Blocked,
		"failed", summary.Failed,
		"pending", len(summary.Pending),
		"timedOut", summary.TimedOut,
	)
	return summary
}

// drainFeed processes one provider's items in order. It returns a checkpoint
// when the deadline cut the feed short, nil when the feed was fully drained.
func (s *Stage) drainFeed(ctx context.Context, provider ports.FeedProvider, since *time.Time, deadline time.Time, published map[string]struct{}, summary *domain.IngestSummary) *domain.PendingFeedState {
	items, err := provider.FetchNewItems(ctx, since)
	if err != nil {
		s.logger.Warn("feed fetch failed", "feed", provider.Name(), "error", err)
		summary.Failed++
		return nil
	}

	for i, item := range items {
		if s.expired(deadline) {
			state := &domain.PendingFeedState{
				Feed:           provider.Name(),
				ProcessedItems: i,
				TotalItems:     len(items),
				RemainingItems: len(items) - i,
				NextItemURL:    item.URL,
			}
			if i > 0 {
				state.LastProcessedURL = items[i-1].URL
			}
			return state
		}
		s.processItem(ctx, provider.Name(), item, published, summary)
	}
	return nil
}

func (s *Stage) processItem(ctx context.Context, sourceKey string, item domain.NormalizedItem, published map[string]struct{}, summary *domain.IngestSummary) {
	if item.Challenge != nil {
		s.logger.Warn("item blocked by challenge", "feed", sourceKey, "url", item.URL, "type", item.Challenge.Type)
		summary.Blocked++
		return
	}
	if item.URL == "" || item.ExternalID == "" {
		summary.Skipped++
		return
	}
	// Already public under any identity: never re-draft.
	if _, isPublished := published[item.URL]; isPublished {
		summary.Skipped++
		return
	}

	entry, err := s.ledger.Find(ctx, sourceKey, item.ExternalID)
	if err != nil {
		s.logger.Warn("ledger lookup failed", "feed", sourceKey, "url", item.URL, "error", err)
		summary.Failed++
		return
	}

	if entry != nil {
		if !s.cfg.Refresh {
			summary.Skipped++
			return
		}
		if err := s.refreshItem(ctx, *entry, item); err != nil {
			s.logger.Warn("refresh failed", "feed", sourceKey, "url", item.URL, "error", err)
			summary.Failed++
			return
		}
		summary.Refreshed++
	} else {
		if err := s.createItem(ctx, sourceKey, item); err != nil {
			s.logger.Warn("create failed", "feed", sourceKey, "url", item.URL, "error", err)
			summary.Failed++
			return
		}
		summary.Created++
	}

	s.registerSourceAndTags(ctx, item)
}

// createItem records the ledger entry and creates the draft document. The
// draft ID derives from the canonical URL, so a concurrent duplicate attempt
// converges on the same document and the create becomes a no-op.
func (s *Stage) createItem(ctx context.Context, sourceKey string, item domain.NormalizedItem) error {
	now := s.now().UTC()

	normalized, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if err := s.ledger.Insert(ctx, domain.LedgerEntry{
		SourceKey:         sourceKey,
		ExternalID:        item.ExternalID,
		NormalizedPayload: normalized,
		Status:            domain.LedgerNew,
		CreatedAt:         now,
	}); err != nil {
		return err
	}

	_, err = s.repo.CreateDraftIfAbsent(ctx, draftFromItem(item, now))
	return err
}

// refreshItem updates the ledger row and patches the draft's mutable fields.
// Editorial fields (status, an already-set publish date) stay untouched.
func (s *Stage) refreshItem(ctx context.Context, entry domain.LedgerEntry, item domain.NormalizedItem) error {
	normalized, err := json.Marshal(item)
	if err != nil {
		return err
	}
	entry.NormalizedPayload = normalized
	entry.Status = domain.LedgerRefreshed
	if err := s.ledger.Update(ctx, entry); err != nil {
		return err
	}

	patch := domain.DraftPatch{
		Title:     &item.Title,
		Excerpt:   &item.Excerpt,
		BodyHTML:  &item.BodyHTML,
		BodyText:  &item.BodyText,
		Tags:      item.Tags,
		Authors:   item.Authors,
		Timestamp: item.PublishedAt,
	}
	return s.repo.PatchDraft(ctx, canonical.DraftID(item.URL), patch)
}

func (s *Stage) registerSourceAndTags(ctx context.Context, item domain.NormalizedItem) {
	if err := s.repo.UpsertSource(ctx, item.Source); err != nil {
		s.logger.Warn("source upsert failed", "source", item.Source.Name, "error", err)
	}
	if len(item.Tags) > 0 {
		if err := s.repo.UpsertTags(ctx, item.Tags); err != nil {
			s.logger.Warn("tag upsert failed", "url", item.URL, "error", err)
		}
	}
}

func (s *Stage) publishedIndex(ctx context.Context) map[string]struct{} {
	urls, err := s.repo.PublishedCanonicalURLs(ctx)
	if err != nil {
		s.logger.Warn("published index unavailable", "error", err)
		return map[string]struct{}{}
	}
	return urls
}

func (s *Stage) since(now time.Time) *time.Time {
	if s.cfg.Lookback <= 0 {
		return nil
	}
	t := now.Add(-s.cfg.Lookback)
	return &t
}

func (s *Stage) expired(deadline time.Time) bool {
	return !deadline.IsZero() && !s.now().Before(deadline)
}

// draftFromItem builds the deterministic draft document for an item.
func draftFromItem(item domain.NormalizedItem, now time.Time) domain.ArticleDraft {
	return domain.ArticleDraft{
		ID:           canonical.DraftID(item.URL),
		Slug:         canonical.Slug(item.Title, 80),
		CanonicalURL: item.URL,
		Title:        item.Title,
		Excerpt:      item.Excerpt,
		BodyHTML:     item.BodyHTML,
		BodyText:     item.BodyText,
		Tags:         item.Tags,
		Authors:      item.Authors,
		PublishedAt:  item.PublishedAt,
		Status:       domain.StatusDraft,
		Source:       item.Source,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
