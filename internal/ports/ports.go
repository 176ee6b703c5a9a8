package ports

import (
	"context"
	"time"

	"tenniswire/internal/domain"
)

// FeedProvider lists candidate articles from one external publisher.
// Implementations never propagate per-source failures as errors that would
// abort a whole ingest run; a broken source yields an empty list.
type FeedProvider interface {
	Name() string
	FetchNewItems(ctx context.Context, since *time.Time) ([]domain.NormalizedItem, error)
}

// Extractor converts one article URL into structured content. A nil result
// with a nil error means the page had nothing usable after all fallbacks.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, articleURL string) (*domain.ExtractedArticle, error)
}

// Ledger is the durable dedup log, independent of the content repository.
type Ledger interface {
	Find(ctx context.Context, sourceKey, externalID string) (*domain.LedgerEntry, error)
	Insert(ctx context.Context, entry domain.LedgerEntry) error
	Update(ctx context.Context, entry domain.LedgerEntry) error
	DeleteBySource(ctx context.Context, sourceKey string) error
}

// ContentRepository is the document store holding drafts and their published
// counterparts, plus source and tag documents.
type ContentRepository interface {
	DraftByID(ctx context.Context, id string) (*domain.ArticleDraft, error)
	DraftBySlug(ctx context.Context, slug string) (*domain.ArticleDraft, error)
	CreateDraftIfAbsent(ctx context.Context, draft domain.ArticleDraft) (bool, error)
	PatchDraft(ctx context.Context, id string, patch domain.DraftPatch) error
	DeleteDraft(ctx context.Context, id string) error
	DraftsNeedingRewrite(ctx context.Context, limit int) ([]domain.ArticleDraft, error)
	CountDraftsNeedingRewrite(ctx context.Context) (int, error)
	DraftsReadyToPublish(ctx context.Context, limit int) ([]domain.ArticleDraft, error)
	ReplacePublished(ctx context.Context, doc domain.PublishedArticle) error
	MarkPublished(ctx context.Context, draftID string, at time.Time) error
	PublishedCanonicalURLs(ctx context.Context) (map[string]struct{}, error)
	UpsertSource(ctx context.Context, source domain.Source) error
	UpsertTags(ctx context.Context, tags []string) error
}

// TextGenerator is the external AI text-generation service.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest is one instruction/document payload for the model.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	JSONMode    bool
	DocumentID  string
}

// GenerateResponse carries the model output and its usage envelope.
type GenerateResponse struct {
	Text  string
	Model string
	Usage domain.ModelUsage
}

// UsageSink observes model-call accounting events. The aggregator subscribes
// here instead of the pipeline reaching into ambient state.
type UsageSink interface {
	Record(usage domain.ModelUsage)
}

// DraftRewriter runs the full AI pipeline for one draft.
type DraftRewriter interface {
	RewriteDraft(ctx context.Context, draft domain.ArticleDraft) error
}

// TriggerClient issues the authenticated follow-up request to the cycle
// endpoint. Fire-and-forget: callers never wait on the follow-up's work.
type TriggerClient interface {
	TriggerCycle(ctx context.Context, chainDepth int, summary domain.CycleSummary) error
}

// Scheduler drives recurring cycle runs for deployments without an external
// cron.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
