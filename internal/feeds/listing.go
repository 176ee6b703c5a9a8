package feeds

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tenniswire/internal/canonical"
	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/extract"
	"tenniswire/internal/fetch"
	"tenniswire/internal/ports"
)

// entrySelectors are tried in order against a listing page; the first one
// that yields anchors wins.
var entrySelectors = []string{
	"article h3 a[href]",
	"article h2 a[href]",
	"article a[href]",
	"li[class*='news'] a[href]",
	"div[class*='news-list'] a[href]",
	"a[class*='article-link']",
	"a[class*='media-item']",
}

const defaultMaxPerPage = 10

// Listing scrapes one or more category listing pages and resolves each entry
// through the content extractor, since listing pages rarely carry a usable
// absolute timestamp.
type Listing struct {
	cfg        config.FeedConfig
	client     *fetch.Client
	extractors *extract.Registry
	maxExcerpt int
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.FeedProvider = (*Listing)(nil)

// NewListing wires a listing-page provider.
func NewListing(cfg config.FeedConfig, client *fetch.Client, extractors *extract.Registry, maxExcerpt int, logger *slog.Logger) *Listing {
	return &Listing{
		cfg:        cfg,
		client:     client,
		extractors: extractors,
		maxExcerpt: maxExcerpt,
		logger:     logger,
		now:        time.Now,
	}
}

// Name identifies the provider in summaries and the ledger source key.
func (l *Listing) Name() string { return l.cfg.Name }

// FetchNewItems walks the configured listing pages in order, capping entries
// per page, and extracts each entry for content and a canonical timestamp.
func (l *Listing) FetchNewItems(ctx context.Context, since *time.Time) ([]domain.NormalizedItem, error) {
	maxPerPage := l.cfg.MaxPerPage
	if maxPerPage <= 0 {
		maxPerPage = defaultMaxPerPage
	}

	var items []domain.NormalizedItem
	seen := map[string]bool{}

	for _, listURL := range l.cfg.ListingURLs {
		page, err := l.client.Load(ctx, listURL)
		if err != nil {
			l.warn("listing fetch failed", "feed", l.cfg.Name, "url", listURL, "error", err)
			continue
		}
		if page.Blocked() {
			l.warn("listing challenged", "feed", l.cfg.Name, "url", listURL, "type", page.Challenge.Type)
			items = append(items, domain.NormalizedItem{
				Source:    l.source(),
				Challenge: page.Challenge,
			})
			continue
		}
		if page.Status >= 400 || page.Empty() {
			l.warn("listing unavailable", "feed", l.cfg.Name, "url", listURL, "status", page.Status)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			l.warn("listing parse failed", "feed", l.cfg.Name, "url", listURL, "error", err)
			continue
		}

		for _, entry := range l.listEntries(doc, maxPerPage) {
			articleURL := canonical.URL(canonical.Resolve(l.cfg.Origin, entry.href))
			if seen[articleURL] {
				continue
			}
			seen[articleURL] = true

			item, ok := l.buildItem(ctx, articleURL, entry, since)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}

	return items, nil
}

type listEntry struct {
	href      string
	title     string
	timeLabel string
}

// listEntries collects up to max anchors from the first selector that
// matches, carrying along any relative time label rendered next to them.
func (l *Listing) listEntries(doc *goquery.Document, max int) []listEntry {
	for _, sel := range entrySelectors {
		anchors := doc.Find(sel)
		if anchors.Length() == 0 {
			continue
		}

		var entries []listEntry
		anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.TrimSpace(href) == "" {
				return true
			}
			entry := listEntry{
				href:  href,
				title: strings.TrimSpace(a.Text()),
			}
			// Relative labels like "3h ago" usually sit in a sibling or
			// ancestor time element.
			if label := a.ParentsFiltered("article, li, div").First().Find("time, span[class*='time'], span[class*='ago']").First(); label.Length() > 0 {
				entry.timeLabel = strings.TrimSpace(label.Text())
			}
			entries = append(entries, entry)
			return len(entries) < max
		})
		return entries
	}
	return nil
}

// buildItem extracts the entry's article and assembles a NormalizedItem. An
// entry is dropped when its publish time cannot be established at all or is
// not after since.
func (l *Listing) buildItem(ctx context.Context, articleURL string, entry listEntry, since *time.Time) (domain.NormalizedItem, bool) {
	item := domain.NormalizedItem{
		ExternalID: canonical.Key(articleURL),
		Title:      entry.title,
		URL:        articleURL,
		Source:     l.source(),
	}

	if l.extractors != nil {
		extracted, err := l.extractors.Resolve(articleURL).Extract(ctx, articleURL)
		switch {
		case err != nil:
			item.Warnings = append(item.Warnings, "extract failed: "+err.Error())
		case extracted == nil:
			item.Warnings = append(item.Warnings, "extract returned no content")
		case extracted.Challenge != nil:
			item.Challenge = extracted.Challenge
			return item, true
		default:
			mergeExtracted(&item, extracted, l.maxExcerpt)
		}
	}

	if item.PublishedAt == nil && entry.timeLabel != "" {
		if ts := ParseRelativeTime(entry.timeLabel, l.now()); ts != nil {
			item.PublishedAt = ts
			item.TimestampText = entry.timeLabel
		}
	}
	if item.PublishedAt == nil {
		// Without a timestamp we cannot honor since-filtering; drop rather
		// than re-ingest stale entries every run.
		return item, false
	}
	if since != nil && !item.PublishedAt.After(*since) {
		return item, false
	}

	return item, true
}

func (l *Listing) source() domain.Source {
	return domain.Source{Name: l.cfg.Name, URL: l.cfg.Origin, License: l.cfg.License}
}

func (l *Listing) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}
