package domain

import "time"

// PendingFeedState checkpoints a feed the ingest stage could not drain before
// its budget expired, so a follow-up run can resume where this one stopped.
type PendingFeedState struct {
	Feed             string `json:"feed"`
	ProcessedItems   int    `json:"processedItems"`
	TotalItems       int    `json:"totalItems,omitempty"`
	RemainingItems   int    `json:"remainingItems,omitempty"`
	NextItemURL      string `json:"nextItemUrl,omitempty"`
	LastProcessedURL string `json:"lastProcessedUrl,omitempty"`
}

// IngestSummary reports one ingest stage run.
type IngestSummary struct {
	Feeds     int                `json:"feeds"`
	Created   int                `json:"created"`
	Refreshed int                `json:"refreshed"`
	Skipped   int                `json:"skipped"`
	Blocked   int                `json:"blocked"`
	Failed    int                `json:"failed"`
	Pending   []PendingFeedState `json:"pending,omitempty"`
	TimedOut  bool               `json:"timedOut"`
	Duration  time.Duration      `json:"duration"`
}

// HasPending reports whether any feed was left partially drained.
func (s IngestSummary) HasPending() bool { return len(s.Pending) > 0 }

// BackfillSummary reports one AI backfill stage run.
type BackfillSummary struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Remaining int            `json:"remaining"`
	TimedOut  bool           `json:"timedOut"`
	Duration  time.Duration  `json:"duration"`
	Usage     UsageAggregate `json:"usage"`
}

// PublishSummary reports one publish stage run.
type PublishSummary struct {
	Published int           `json:"published"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	DryRun    bool          `json:"dryRun"`
	Duration  time.Duration `json:"duration"`
}

// CycleSummary is the combined result of one orchestrator invocation.
type CycleSummary struct {
	StartedAt         time.Time       `json:"startedAt"`
	ChainDepth        int             `json:"chainDepth"`
	Ingest            IngestSummary   `json:"ingest"`
	Backfill          BackfillSummary `json:"backfill"`
	Publish           PublishSummary  `json:"publish"`
	FollowUpTriggered bool            `json:"followUpTriggered"`
	Duration          time.Duration   `json:"duration"`
}

// WorkRemains reports whether a follow-up invocation is warranted.
func (s CycleSummary) WorkRemains() bool {
	return s.Backfill.Remaining > 0 || s.Ingest.HasPending()
}
