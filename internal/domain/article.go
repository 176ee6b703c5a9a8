package domain

import "time"

// Source identifies the external publisher an article came from.
type Source struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	License string `json:"license,omitempty"`
}

// VideoRef describes an embedded video found in article markup.
type VideoRef struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	EmbedURL  string `json:"embedUrl,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// NormalizedItem is the provider-independent shape of one discovered article.
// It is produced once per discovery and handed to the ingestion stage as-is;
// only an explicit refresh re-derives it.
type NormalizedItem struct {
	ExternalID    string              `json:"externalId"`
	Title         string              `json:"title"`
	URL           string              `json:"url"`
	PublishedAt   *time.Time          `json:"publishedAt,omitempty"`
	Excerpt       string              `json:"excerpt,omitempty"`
	Source        Source              `json:"source"`
	Tags          []string            `json:"tags,omitempty"`
	BodyHTML      string              `json:"bodyHtml,omitempty"`
	BodyText      string              `json:"bodyText,omitempty"`
	Authors       []string            `json:"authors,omitempty"`
	TimestampText string              `json:"timestampText,omitempty"`
	Image         string              `json:"image,omitempty"`
	Images        []string            `json:"images,omitempty"`
	Videos        []VideoRef          `json:"videos,omitempty"`
	Credits       string              `json:"credits,omitempty"`
	Lang          string              `json:"lang,omitempty"`
	Links         []LinkReference     `json:"links,omitempty"`
	Challenge     *ChallengeDetection `json:"challenge,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// ExtractDebug is the diagnostic envelope attached to extraction results.
type ExtractDebug struct {
	Extractor  string `json:"extractor"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
	Paragraphs int    `json:"paragraphs"`
	Images     int    `json:"images"`
	Videos     int    `json:"videos"`
	Loader     string `json:"loader,omitempty"`
}

// ExtractedArticle is the structured output of a content extractor.
// A non-nil Challenge means acquisition was intercepted and every content
// field should be ignored.
type ExtractedArticle struct {
	Title         string              `json:"title,omitempty"`
	Authors       []string            `json:"authors,omitempty"`
	TimestampText string              `json:"timestampText,omitempty"`
	PublishedAt   *time.Time          `json:"publishedAt,omitempty"`
	Excerpt       string              `json:"excerpt,omitempty"`
	BodyHTML      string              `json:"bodyHtml,omitempty"`
	BodyText      string              `json:"bodyText,omitempty"`
	Image         string              `json:"image,omitempty"`
	Images        []string            `json:"images,omitempty"`
	Videos        []VideoRef          `json:"videos,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	Credits       string              `json:"credits,omitempty"`
	Lang          string              `json:"lang,omitempty"`
	Links         []LinkReference     `json:"links,omitempty"`
	Challenge     *ChallengeDetection `json:"challenge,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
	Debug         ExtractDebug        `json:"debug"`
}
