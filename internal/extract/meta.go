package extract

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// dateLayouts are tried in order against visible timestamp text.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
	"2006-01-02",
	"Monday, January 2, 2006",
}

// extractTitle prefers the headline element over the page title.
func extractTitle(doc *goquery.Document, headlineSelectors []string) string {
	for _, sel := range headlineSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	// Page titles usually append the site name after a separator.
	for _, sep := range []string{" | ", " – ", " - "} {
		if i := strings.Index(title, sep); i > 0 {
			return strings.TrimSpace(title[:i])
		}
	}
	return title
}

// extractPublishedAt resolves the best ISO publish date, preferring
// structured metadata over visible text, and returns the verbatim timestamp
// string alongside it.
func extractPublishedAt(doc *goquery.Document, timestampSelectors []string) (*time.Time, string) {
	verbatim := ""
	for _, sel := range timestampSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			verbatim = t
			break
		}
	}

	if ts := jsonLDDate(doc); ts != nil {
		return ts, verbatim
	}

	if meta, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		if ts := parseDate(meta); ts != nil {
			return ts, verbatim
		}
	}

	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if ts := parseDate(dt); ts != nil {
			return ts, verbatim
		}
	}

	if verbatim != "" {
		if ts := parseDate(verbatim); ts != nil {
			return ts, verbatim
		}
	}

	return nil, verbatim
}

// jsonLDDate digs datePublished out of ld+json blocks, tolerating both plain
// objects and @graph arrays.
func jsonLDDate(doc *goquery.Document) *time.Time {
	var found *time.Time

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if ts := datePublishedFrom(payload); ts != nil {
			found = ts
			return false
		}
		return true
	})

	return found
}

func datePublishedFrom(payload any) *time.Time {
	switch v := payload.(type) {
	case map[string]any:
		if raw, ok := v["datePublished"].(string); ok {
			if ts := parseDate(raw); ts != nil {
				return ts
			}
		}
		if graph, ok := v["@graph"].([]any); ok {
			return datePublishedFrom(graph)
		}
	case []any:
		for _, item := range v {
			if ts := datePublishedFrom(item); ts != nil {
				return ts
			}
		}
	}
	return nil
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

// extractAuthors gathers byline names from the given selectors and meta tags.
func extractAuthors(doc *goquery.Document, selectors []string) []string {
	var authors []string
	seen := map[string]bool{}

	add := func(name string) {
		name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "By "))
		name = strings.TrimPrefix(name, "by ")
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		authors = append(authors, name)
	}

	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}
	if meta, ok := doc.Find(`meta[name="author"]`).First().Attr("content"); ok {
		add(meta)
	}

	return authors
}

// extractTags pulls categories from article:tag metadata and keyword lists.
func extractTags(doc *goquery.Document) []string {
	var tags []string
	seen := map[string]bool{}

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			return
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			add(v)
		}
	})
	if kw, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content"); ok {
		for _, part := range strings.Split(kw, ",") {
			add(part)
		}
	}

	return tags
}

// extractCredits returns the photo/agency credit line when present.
func extractCredits(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if c := strings.TrimSpace(doc.Find(sel).First().Text()); c != "" {
			return c
		}
	}
	return ""
}
