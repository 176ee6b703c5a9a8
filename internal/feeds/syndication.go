// Package feeds discovers candidate articles from configured publishers,
// either through syndication feeds or by scraping listing pages. Providers
// absorb their own failures: a broken source yields an empty item list so one
// publisher can never abort an ingest run.
package feeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"tenniswire/internal/canonical"
	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/extract"
	"tenniswire/internal/fetch"
	"tenniswire/internal/ports"
)

// Syndication lists items from an RSS/Atom feed, optionally enriching each
// through the content extractor when the item's host is allow-listed.
type Syndication struct {
	cfg        config.FeedConfig
	client     *fetch.Client
	parser     *gofeed.Parser
	extractors *extract.Registry
	maxExcerpt int
	logger     *slog.Logger
}

var _ ports.FeedProvider = (*Syndication)(nil)

// NewSyndication wires a syndication-feed provider.
func NewSyndication(cfg config.FeedConfig, client *fetch.Client, extractors *extract.Registry, maxExcerpt int, logger *slog.Logger) *Syndication {
	return &Syndication{
		cfg:        cfg,
		client:     client,
		parser:     gofeed.NewParser(),
		extractors: extractors,
		maxExcerpt: maxExcerpt,
		logger:     logger,
	}
}

// Name identifies the provider in summaries and the ledger source key.
func (s *Syndication) Name() string { return s.cfg.Name }

// FetchNewItems downloads and maps the feed. Items published at or before
// since are skipped. Fetch or parse failures log and return an empty list.
func (s *Syndication) FetchNewItems(ctx context.Context, since *time.Time) ([]domain.NormalizedItem, error) {
	page, err := s.client.Load(ctx, s.cfg.URL)
	if err != nil {
		s.warn("feed fetch failed", "feed", s.cfg.Name, "error", err)
		return nil, nil
	}
	if page.Blocked() {
		s.warn("feed fetch challenged", "feed", s.cfg.Name, "type", page.Challenge.Type)
		return []domain.NormalizedItem{s.challengeMarker(page.Challenge)}, nil
	}
	if page.Status >= 400 || page.Empty() {
		s.warn("feed unavailable", "feed", s.cfg.Name, "status", page.Status)
		return nil, nil
	}

	parsed, err := s.parser.ParseString(page.HTML)
	if err != nil {
		s.warn("feed parse failed", "feed", s.cfg.Name, "error", err)
		return nil, nil
	}

	items := make([]domain.NormalizedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		link := entryLink(entry)
		if link == "" {
			continue
		}
		if since != nil && entry.PublishedParsed != nil && !entry.PublishedParsed.After(*since) {
			continue
		}

		item := domain.NormalizedItem{
			ExternalID:  canonical.Key(link),
			Title:       strings.TrimSpace(entry.Title),
			URL:         canonical.URL(link),
			PublishedAt: entry.PublishedParsed,
			Excerpt:     clampExcerpt(entry.Description, s.maxExcerpt),
			Tags:        entry.Categories,
			Source: domain.Source{
				Name:    s.cfg.Name,
				URL:     s.cfg.URL,
				License: s.cfg.License,
			},
		}

		if s.cfg.ExtractFull && s.hostAllowed(link) {
			s.enrich(ctx, &item)
		}

		items = append(items, item)
	}

	return items, nil
}

// enrich runs the content extractor for the item URL and folds the result in.
// A challenge propagates onto the item; an extraction miss leaves the feed
// fields as they were.
func (s *Syndication) enrich(ctx context.Context, item *domain.NormalizedItem) {
	if s.extractors == nil {
		return
	}
	extracted, err := s.extractors.Resolve(item.URL).Extract(ctx, item.URL)
	if err != nil {
		item.Warnings = append(item.Warnings, "extract failed: "+err.Error())
		return
	}
	if extracted == nil {
		item.Warnings = append(item.Warnings, "extract returned no content")
		return
	}
	if extracted.Challenge != nil {
		item.Challenge = extracted.Challenge
		return
	}

	mergeExtracted(item, extracted, s.maxExcerpt)
}

func (s *Syndication) hostAllowed(link string) bool {
	if len(s.cfg.AllowHosts) == 0 {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range s.cfg.AllowHosts {
		if host == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (s *Syndication) challengeMarker(det *domain.ChallengeDetection) domain.NormalizedItem {
	return domain.NormalizedItem{
		Source:    domain.Source{Name: s.cfg.Name, URL: s.cfg.URL},
		Challenge: det,
	}
}

func (s *Syndication) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// entryLink prefers the explicit link, falling back to a URL-shaped GUID.
func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, "http") {
		return entry.GUID
	}
	return ""
}

// mergeExtracted copies extractor output onto a feed item, keeping feed
// values where extraction produced nothing.
func mergeExtracted(item *domain.NormalizedItem, extracted *domain.ExtractedArticle, maxExcerpt int) {
	if extracted.Title != "" {
		item.Title = extracted.Title
	}
	if extracted.PublishedAt != nil {
		item.PublishedAt = extracted.PublishedAt
	}
	if extracted.Excerpt != "" {
		item.Excerpt = clampExcerpt(extracted.Excerpt, maxExcerpt)
	}
	item.BodyHTML = extracted.BodyHTML
	item.BodyText = extracted.BodyText
	item.Authors = extracted.Authors
	item.TimestampText = extracted.TimestampText
	item.Image = extracted.Image
	item.Images = extracted.Images
	item.Videos = extracted.Videos
	item.Credits = extracted.Credits
	item.Lang = extracted.Lang
	item.Links = extracted.Links
	item.Warnings = append(item.Warnings, extracted.Warnings...)
	if len(extracted.Tags) > 0 {
		item.Tags = extracted.Tags
	}
}

// clampExcerpt strips markup remnants and bounds the excerpt length on a
// word boundary.
func clampExcerpt(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if strings.ContainsAny(text, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = strings.TrimSpace(doc.Text())
		}
	}
	if maxLen <= 0 || len([]rune(text)) <= maxLen {
		return text
	}
	runes := []rune(text)
	clipped := strings.TrimSpace(string(runes[:maxLen]))
	if i := strings.LastIndexByte(clipped, ' '); i > 0 {
		clipped = clipped[:i]
	}
	return clipped + "…"
}
