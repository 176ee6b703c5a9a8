package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tenniswire/internal/config"
	"tenniswire/internal/fetch"
)

func rssDocument(items string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Tennis Wire Feed</title>%s</channel></rss>`, items)
}

func rssItem(title, link, pubDate, description string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate><description>%s</description><category>ATP</category></item>`,
		title, link, pubDate, description)
}

func TestSyndicationFetchNewItems(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, time.August, 28, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := rssDocument(
			rssItem("Old news", "https://example.com/old", older.Format(time.RFC1123Z), "stale") +
				rssItem("Fresh news", "https://example.com/fresh?utm_source=rss", newer.Format(time.RFC1123Z), strings.Repeat("long excerpt ", 40)),
		)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	cfg := config.FeedConfig{Name: "test-feed", Kind: config.FeedKindSyndication, URL: server.URL}
	client := fetch.NewClient(server.Client(), "", nil)
	provider := NewSyndication(cfg, client, nil, 120, nil)

	since := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)
	items, err := provider.FetchNewItems(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchNewItems: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item after since-filter, got %d", len(items))
	}
	item := items[0]
	if item.Title != "Fresh news" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if item.URL != "https://example.com/fresh" {
		t.Fatalf("tracking params should be stripped, got %s", item.URL)
	}
	if len([]rune(item.Excerpt)) > 121 {
		t.Fatalf("excerpt not clamped: %d runes", len([]rune(item.Excerpt)))
	}
	if item.ExternalID == "" || item.Source.Name != "test-feed" {
		t.Fatalf("identity fields missing: %+v", item)
	}
	if len(item.Tags) != 1 || item.Tags[0] != "ATP" {
		t.Fatalf("unexpected tags: %v", item.Tags)
	}
}

func TestClampExcerptStripsMarkup(t *testing.T) {
	t.Parallel()

	got := clampExcerpt("<p>Alcaraz <strong>wins</strong> the Cincinnati final in straight sets</p>", 20)
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("markup survived the clamp: %q", got)
	}
	if !strings.HasPrefix(got, "Alcaraz wins") || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected clamp result: %q", got)
	}

	// Entities decode instead of being cut mid-sequence.
	if got := clampExcerpt("Sinner &amp; Alcaraz", 0); got != "Sinner & Alcaraz" {
		t.Fatalf("entity not decoded: %q", got)
	}
}

func TestSyndicationDeniedFeedFallsBackThenEmpty(t *testing.T) {
	t.Parallel()

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()

	cfg := config.FeedConfig{Name: "denied-feed", Kind: config.FeedKindSyndication, URL: server.URL}
	provider := NewSyndication(cfg, fetch.NewClient(server.Client(), "", nil), nil, 120, nil)

	items, err := provider.FetchNewItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("provider must not propagate fetch errors, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(items))
	}
	if requests != 2 {
		t.Fatalf("expected one fallback retry with browser headers, got %d requests", requests)
	}
}

func TestSyndicationChallengePropagates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Just a moment...</title></head></html>`))
	}))
	defer server.Close()

	cfg := config.FeedConfig{Name: "challenged-feed", Kind: config.FeedKindSyndication, URL: server.URL}
	provider := NewSyndication(cfg, fetch.NewClient(server.Client(), "", nil), nil, 120, nil)

	items, err := provider.FetchNewItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchNewItems: %v", err)
	}
	if len(items) != 1 || items[0].Challenge == nil {
		t.Fatalf("expected a challenge marker item, got %+v", items)
	}
}
