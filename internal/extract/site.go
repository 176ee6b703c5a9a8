// Package extract converts heterogeneous publisher HTML into structured
// article content. Dispatch is by URL host against a static registry of
// site-specific extractors, with a readability-backed generic fallback.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tenniswire/internal/domain"
	"tenniswire/internal/fetch"
)

// Loader acquires one page. fetch.Client and fetch.RenderedLoader implement it.
type Loader interface {
	Name() string
	Load(ctx context.Context, pageURL string) (*fetch.Page, error)
}

// siteProfile is the declarative part of a site-specific extractor.
type siteProfile struct {
	name               string
	containerSelectors []string
	noiseSelectors     []string
	headlineSelectors  []string
	bylineSelectors    []string
	timestampSelectors []string
	creditsSelectors   []string
	sponsors           []string
	numericRepair      bool
	preferRendered     bool
	// prepare runs site-specific fixes on the parsed document before the
	// shared cleanup passes.
	prepare func(doc *goquery.Document)
}

// siteExtractor runs the shared acquisition/cleanup pipeline over a profile.
type siteExtractor struct {
	profile  siteProfile
	plain    Loader
	rendered Loader
	logger   *slog.Logger
}

func newSiteExtractor(profile siteProfile, plain, rendered Loader, logger *slog.Logger) *siteExtractor {
	return &siteExtractor{profile: profile, plain: plain, rendered: rendered, logger: logger}
}

// Name identifies the extractor inside the registry and debug envelopes.
func (e *siteExtractor) Name() string { return e.profile.name }

// Extract acquires the page, resolves the content container, applies the
// cleanup passes and assembles the structured result. A challenged fetch
// returns the detection instead of partial content; an empty page after all
// loader fallbacks returns nil.
func (e *siteExtractor) Extract(ctx context.Context, articleURL string) (*domain.ExtractedArticle, error) {
	page, err := e.acquire(ctx, articleURL, e.firstLoader())
	if (err != nil || page.Empty()) && e.secondLoader() != nil {
		page, err = e.acquire(ctx, articleURL, e.secondLoader())
	}
	if err != nil {
		return nil, err
	}
	if page.Empty() {
		return nil, nil
	}
	if page.Blocked() {
		return e.blockedResult(page), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, err
	}

	container := resolveContainer(doc, e.profile.containerSelectors)
	if strings.TrimSpace(container.Text()) == "" && e.secondLoader() != nil && page.Loader == e.firstLoader().Name() {
		// Chosen loader produced an empty shell; the alternate loader may
		// see the scripted content.
		retry, retryErr := e.acquire(ctx, articleURL, e.secondLoader())
		if retryErr == nil && !retry.Empty() && !retry.Blocked() {
			page = retry
			if doc, err = goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); err != nil {
				return nil, err
			}
			container = resolveContainer(doc, e.profile.containerSelectors)
		}
	}
	if strings.TrimSpace(container.Text()) == "" {
		e.debug("no content container", "url", articleURL)
		return nil, nil
	}

	if e.profile.prepare != nil {
		e.profile.prepare(doc)
	}

	body := container.Clone()
	removeNoise(body, e.profile.noiseSelectors)
	absolutizeURLs(body, articleURL)
	if e.profile.numericRepair {
		repairNumericShells(body)
	}
	images, videos := normalizeMedia(body, articleURL)
	classifyParagraphs(body, e.profile.sponsors)
	links := collectLinks(body, articleURL)

	bodyHTML, _ := body.Html()
	bodyText := paragraphText(body)
	publishedAt, timestampText := extractPublishedAt(doc, e.profile.timestampSelectors)

	article := &domain.ExtractedArticle{
		Title:         extractTitle(doc, e.profile.headlineSelectors),
		Authors:       extractAuthors(doc, e.profile.bylineSelectors),
		TimestampText: timestampText,
		PublishedAt:   publishedAt,
		Excerpt:       firstSentence(bodyText, 280),
		BodyHTML:      strings.TrimSpace(bodyHTML),
		BodyText:      bodyText,
		Images:        images,
		Videos:        videos,
		Tags:          extractTags(doc),
		Credits:       extractCredits(doc, e.profile.creditsSelectors),
		Links:         links,
		Debug: domain.ExtractDebug{
			Extractor:  e.profile.name,
			HTTPStatus: page.Status,
			Paragraphs: body.Find("p").Length(),
			Images:     len(images),
			Videos:     len(videos),
			Loader:     page.Loader,
		},
	}
	if len(images) > 0 {
		article.Image = images[0]
	}

	return article, nil
}

func (e *siteExtractor) firstLoader() Loader {
	if e.profile.preferRendered && e.rendered != nil {
		return e.rendered
	}
	return e.plain
}

func (e *siteExtractor) secondLoader() Loader {
	if e.profile.preferRendered && e.rendered != nil {
		return e.plain
	}
	return e.rendered
}

func (e *siteExtractor) acquire(ctx context.Context, articleURL string, loader Loader) (*fetch.Page, error) {
	page, err := loader.Load(ctx, articleURL)
	if err != nil {
		e.debug("acquisition failed", "url", articleURL, "loader", loader.Name(), "error", err)
		return nil, err
	}
	return page, nil
}

func (e *siteExtractor) blockedResult(page *fetch.Page) *domain.ExtractedArticle {
	return &domain.ExtractedArticle{
		Challenge: page.Challenge,
		Debug: domain.ExtractDebug{
			Extractor:  e.profile.name,
			HTTPStatus: page.Status,
			Loader:     page.Loader,
		},
	}
}

func (e *siteExtractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

// resolveContainer locates the main content region via a prioritized selector
// list, falling back to article, main, then body.
func resolveContainer(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, sel := range append(append([]string{}, selectors...), "article", "main", "body") {
		found := doc.Find(sel).First()
		if found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			return found
		}
	}
	return doc.Find("body").First()
}

// paragraphText renders the container as newline-separated paragraph text.
func paragraphText(container *goquery.Selection) string {
	var parts []string
	container.Find("p, blockquote, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("blockquote").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(container.Text())
	}
	return strings.Join(parts, "\n\n")
}

// firstSentence clamps text to an excerpt of at most maxLen runes, cutting at
// a sentence boundary when one fits.
func firstSentence(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i > 0 {
		text = text[:i]
	}
	if i := strings.Index(text, ". "); i > 0 && i < maxLen {
		return text[:i+1]
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	clipped := strings.TrimSpace(string(runes[:maxLen]))
	if i := strings.LastIndexByte(clipped, ' '); i > 0 {
		clipped = clipped[:i]
	}
	return clipped + "…"
}
