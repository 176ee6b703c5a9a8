package domain

import "time"

// LinkReference is an anchor harvested from the original article body. When
// its text appears in a rewritten body it must be linked to the same URL.
type LinkReference struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// MediaType distinguishes the markup a media token resolves back into.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaEmbed MediaType = "embed"
)

// MediaReference is an opaque placeholder for a figure, video or embed that
// must survive rewriting verbatim. The token is substituted into model input
// before any call and resolved back into HTML afterwards; the model never
// regenerates its content.
type MediaReference struct {
	Token       string    `json:"token"`
	Type        MediaType `json:"type"`
	URL         string    `json:"url,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	Description string    `json:"description,omitempty"`
	HTML        string    `json:"html,omitempty"`
}

// ModelUsage is the accounting record of one text-generation call.
type ModelUsage struct {
	DocumentID       string        `json:"documentId,omitempty"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"promptTokens"`
	CompletionTokens int           `json:"completionTokens"`
	TotalTokens      int           `json:"totalTokens"`
	Latency          time.Duration `json:"latency"`
}

// UsageAggregate summarizes model usage per document or per run.
type UsageAggregate struct {
	Requests         int           `json:"requests"`
	PromptTokens     int           `json:"promptTokens"`
	CompletionTokens int           `json:"completionTokens"`
	TotalTokens      int           `json:"totalTokens"`
	AvgLatency       time.Duration `json:"avgLatency"`
}
