package feeds

import (
	"log/slog"

	"tenniswire/internal/config"
	"tenniswire/internal/extract"
	"tenniswire/internal/fetch"
	"tenniswire/internal/ports"
)

// BuildProviders turns the configured feed list into providers, preserving
// the configured order; ingest processes feeds in exactly this order.
func BuildProviders(cfg config.Config, client *fetch.Client, extractors *extract.Registry, logger *slog.Logger) []ports.FeedProvider {
	providers := make([]ports.FeedProvider, 0, len(cfg.Feeds))

	for _, feed := range cfg.Feeds {
		feedLogger := logger.With("component", "feeds."+feed.Name)
		switch feed.Kind {
		case config.FeedKindSyndication:
			providers = append(providers, NewSyndication(feed, client, extractors, cfg.Ingest.MaxExcerptLen, feedLogger))
		case config.FeedKindListing:
			providers = append(providers, NewListing(feed, client, extractors, cfg.Ingest.MaxExcerptLen, feedLogger))
		default:
			logger.Warn("skipping feed with unknown kind", "feed", feed.Name, "kind", feed.Kind)
		}
	}

	return providers
}
