package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tenniswire/internal/config"
	"tenniswire/internal/fetch"
)

const listingPage = `<html><body>
<article>
  <h3><a href="/news/alcaraz-advances">Alcaraz advances</a></h3>
  <time>3h ago</time>
</article>
<article>
  <h3><a href="/news/sinner-statement">Sinner statement</a></h3>
  <time>2 days ago</time>
</article>
<article>
  <h3><a href="/news/no-timestamp">Untimed entry</a></h3>
</article>
<article>
  <h3><a href="/news/alcaraz-advances?utm_campaign=home">Alcaraz advances (dup)</a></h3>
  <time>3h ago</time>
</article>
</body></html>`

func newListingProvider(t *testing.T, handler http.Handler, maxPerPage int) (*Listing, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.FeedConfig{
		Name:        "test-listing",
		Kind:        config.FeedKindListing,
		ListingURLs: []string{server.URL + "/news"},
		Origin:      server.URL,
		MaxPerPage:  maxPerPage,
	}
	return NewListing(cfg, fetch.NewClient(server.Client(), "", nil), nil, 120, nil), server
}

func TestListingFetchNewItems(t *testing.T) {
	t.Parallel()

	provider, server := newListingProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}), 10)

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }

	items, err := provider.FetchNewItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchNewItems: %v", err)
	}

	// The untimed entry is dropped and the tracking-param duplicate collapses.
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	first := items[0]
	if first.Title != "Alcaraz advances" {
		t.Fatalf("unexpected title: %s", first.Title)
	}
	if first.URL != server.URL+"/news/alcaraz-advances" {
		t.Fatalf("unexpected url: %s", first.URL)
	}
	if first.PublishedAt == nil || !first.PublishedAt.Equal(now.Add(-3*time.Hour)) {
		t.Fatalf("relative label not resolved: %v", first.PublishedAt)
	}
	if first.TimestampText != "3h ago" {
		t.Fatalf("timestamp text not kept: %q", first.TimestampText)
	}
	if first.Source.Name != "test-listing" {
		t.Fatalf("unexpected source: %+v", first.Source)
	}
}

func TestListingSinceFilter(t *testing.T) {
	t.Parallel()

	provider, _ := newListingProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}), 10)

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }

	since := now.Add(-24 * time.Hour)
	items, err := provider.FetchNewItems(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchNewItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the 3h-old entry, got %d items", len(items))
	}
}

func TestListingMaxPerPage(t *testing.T) {
	t.Parallel()

	provider, _ := newListingProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}), 1)

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }

	items, err := provider.FetchNewItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchNewItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the page cap to hold, got %d items", len(items))
	}
}

func TestListingChallengedPage(t *testing.T) {
	t.Parallel()

	provider, _ := newListingProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Just a moment...</title></head></html>`))
	}), 10)

	items, err := provider.FetchNewItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchNewItems: %v", err)
	}
	if len(items) != 1 || items[0].Challenge == nil {
		t.Fatalf("expected a challenge marker item, got %+v", items)
	}
}
