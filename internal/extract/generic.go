package extract

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"tenniswire/internal/domain"
)

// Generic is the safety-net extractor for hosts without a site profile. It
// acquires with the plain loader only and leans on readability for container
// resolution; no site noise rules, no numeric repair.
type Generic struct {
	loader Loader
	logger *slog.Logger
}

// NewGeneric wires the fallback extractor.
func NewGeneric(loader Loader, logger *slog.Logger) *Generic {
	return &Generic{loader: loader, logger: logger}
}

// Name identifies the extractor in debug envelopes.
func (g *Generic) Name() string { return "generic" }

// Extract fetches the page and reduces it with readability. Challenged
// payloads return the detection; unusable pages return nil.
func (g *Generic) Extract(ctx context.Context, articleURL string) (*domain.ExtractedArticle, error) {
	page, err := g.loader.Load(ctx, articleURL)
	if err != nil {
		return nil, err
	}
	if page.Empty() {
		return nil, nil
	}
	if page.Blocked() {
		return &domain.ExtractedArticle{
			Challenge: page.Challenge,
			Debug: domain.ExtractDebug{
				Extractor:  g.Name(),
				HTTPStatus: page.Status,
				Loader:     page.Loader,
			},
		}, nil
	}

	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(strings.NewReader(page.HTML), parsedURL)
	if err != nil {
		if g.logger != nil {
			g.logger.Debug("readability failed", "url", articleURL, "error", err)
		}
		return nil, nil
	}
	if strings.TrimSpace(article.TextContent) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, err
	}

	bodyDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, err
	}
	body := bodyDoc.Find("body").First()
	removeNoise(body, nil)
	absolutizeURLs(body, articleURL)
	images, videos := normalizeMedia(body, articleURL)
	links := collectLinks(body, articleURL)
	bodyHTML, _ := body.Html()
	bodyText := paragraphText(body)

	publishedAt, timestampText := extractPublishedAt(doc, []string{"time"})

	title := article.Title
	if title == "" {
		title = extractTitle(doc, []string{"h1"})
	}

	var authors []string
	if article.Byline != "" {
		authors = append(authors, strings.TrimPrefix(article.Byline, "by "))
	}

	result := &domain.ExtractedArticle{
		Title:         title,
		Authors:       authors,
		TimestampText: timestampText,
		PublishedAt:   publishedAt,
		Excerpt:       firstSentence(article.Excerpt, 280),
		BodyHTML:      strings.TrimSpace(bodyHTML),
		BodyText:      bodyText,
		Images:        images,
		Videos:        videos,
		Links:         links,
		Debug: domain.ExtractDebug{
			Extractor:  g.Name(),
			HTTPStatus: page.Status,
			Paragraphs: body.Find("p").Length(),
			Images:     len(images),
			Videos:     len(videos),
			Loader:     page.Loader,
		},
	}
	if result.Excerpt == "" {
		result.Excerpt = firstSentence(bodyText, 280)
	}
	if len(images) > 0 {
		result.Image = images[0]
	}

	return result, nil
}
