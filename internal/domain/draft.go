package domain

import "time"

// DraftStatus enumerates the lifecycle of an article document.
type DraftStatus string

const (
	StatusDraft     DraftStatus = "draft"
	StatusReview    DraftStatus = "review"
	StatusPublished DraftStatus = "published"
)

// DraftVariant is one candidate rewrite of a source article.
type DraftVariant struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt,omitempty"`
	Body    string `json:"body"`
}

// FinalDraft is the single synthesized rewrite chosen for publication.
type FinalDraft struct {
	DraftVariant
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArticleDraft is the content-repository document created from a
// NormalizedItem. Created with status draft, moved to review once the AI
// pipeline fills AIFinal, and to published by the publish gate.
type ArticleDraft struct {
	ID           string         `json:"id"`
	Slug         string         `json:"slug,omitempty"`
	CanonicalURL string         `json:"canonicalUrl"`
	Title        string         `json:"title"`
	Excerpt      string         `json:"excerpt,omitempty"`
	BodyHTML     string         `json:"bodyHtml,omitempty"`
	BodyText     string         `json:"bodyText,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Authors      []string       `json:"authors,omitempty"`
	PublishedAt  *time.Time     `json:"publishedAt,omitempty"`
	Status       DraftStatus    `json:"status"`
	Source       Source         `json:"source"`
	AIFinal      *FinalDraft    `json:"aiFinal,omitempty"`
	AIVariants   []DraftVariant `json:"aiVariants,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// PublishedArticle is the public counterpart of a published draft. It shares
// a derived identity with its draft so republishing replaces, never duplicates.
type PublishedArticle struct {
	ID           string      `json:"id"`
	DraftID      string      `json:"draftId"`
	Slug         string      `json:"slug"`
	CanonicalURL string      `json:"canonicalUrl"`
	Title        string      `json:"title"`
	Excerpt      string      `json:"excerpt,omitempty"`
	Body         string      `json:"body"`
	Tags         []string    `json:"tags,omitempty"`
	Authors      []string    `json:"authors,omitempty"`
	Source       Source      `json:"source"`
	AI           *FinalDraft `json:"ai,omitempty"`
	PublishedAt  time.Time   `json:"publishedAt"`
}

// DraftPatch carries the mutable fields an ingestion refresh or the AI
// pipeline may update. Nil fields are left untouched; a refresh patch never
// carries Status or AI fields.
type DraftPatch struct {
	Title      *string
	Excerpt    *string
	BodyHTML   *string
	BodyText   *string
	Tags       []string
	Authors    []string
	Timestamp  *time.Time
	Status     *DraftStatus
	AIFinal    *FinalDraft
	AIVariants []DraftVariant
}
