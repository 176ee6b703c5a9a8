package contentrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tenniswire/internal/canonical"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// Memory is the in-process repository used by tests and dry runs.
type Memory struct {
	mu        sync.Mutex
	drafts    map[string]domain.ArticleDraft
	published map[string]domain.PublishedArticle
	sources   map[string]domain.Source
	tags      map[string]string
}

var _ ports.ContentRepository = (*Memory)(nil)

// NewMemory returns an empty in-process repository.
func NewMemory() *Memory {
	return &Memory{
		drafts:    map[string]domain.ArticleDraft{},
		published: map[string]domain.PublishedArticle{},
		sources:   map[string]domain.Source{},
		tags:      map[string]string{},
	}
}

// DraftByID loads one draft, or nil when absent.
func (m *Memory) DraftByID(_ context.Context, id string) (*domain.ArticleDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[id]
	if !ok {
		return nil, nil
	}
	return &draft, nil
}

// DraftBySlug loads the draft carrying the given slug, or nil when absent.
func (m *Memory) DraftBySlug(_ context.Context, slug string) (*domain.ArticleDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, draft := range m.drafts {
		if draft.Slug == slug {
			return &draft, nil
		}
	}
	return nil, nil
}

// CreateDraftIfAbsent inserts the draft unless its ID already exists.
func (m *Memory) CreateDraftIfAbsent(_ context.Context, draft domain.ArticleDraft) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.drafts[draft.ID]; exists {
		return false, nil
	}
	m.drafts[draft.ID] = draft
	return true, nil
}

// PatchDraft applies the non-nil patch fields to one draft.
func (m *Memory) PatchDraft(_ context.Context, id string, patch domain.DraftPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[id]
	if !ok {
		return errDraftMissing(id)
	}
	applyPatch(&draft, patch, time.Now().UTC())
	m.drafts[id] = draft
	return nil
}

// DeleteDraft removes a draft and its published counterpart.
func (m *Memory) DeleteDraft(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	delete(m.published, canonical.PublishedID(id))
	return nil
}

// DraftsNeedingRewrite lists drafts without an AI rewrite, oldest first.
func (m *Memory) DraftsNeedingRewrite(_ context.Context, limit int) ([]domain.ArticleDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return selectDrafts(m.drafts, limit, needsRewrite), nil
}

// CountDraftsNeedingRewrite reports the rewrite backlog size.
func (m *Memory) CountDraftsNeedingRewrite(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, draft := range m.drafts {
		if needsRewrite(draft) {
			count++
		}
	}
	return count, nil
}

// DraftsReadyToPublish lists unpublished drafts with a non-empty AI rewrite,
// oldest first.
func (m *Memory) DraftsReadyToPublish(_ context.Context, limit int) ([]domain.ArticleDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return selectDrafts(m.drafts, limit, readyToPublish), nil
}

// ReplacePublished upserts the public counterpart of a draft.
func (m *Memory) ReplacePublished(_ context.Context, doc domain.PublishedArticle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[doc.ID] = doc
	return nil
}

// MarkPublished flips the draft status to published.
func (m *Memory) MarkPublished(_ context.Context, draftID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft, ok := m.drafts[draftID]
	if !ok {
		return errDraftMissing(draftID)
	}
	draft.Status = domain.StatusPublished
	draft.UpdatedAt = at
	m.drafts[draftID] = draft
	return nil
}

// PublishedCanonicalURLs returns the canonical URLs of published documents.
func (m *Memory) PublishedCanonicalURLs(_ context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make(map[string]struct{}, len(m.published))
	for _, doc := range m.published {
		if doc.CanonicalURL != "" {
			urls[doc.CanonicalURL] = struct{}{}
		}
	}
	return urls, nil
}

// UpsertSource maintains the source registry document for one publisher.
func (m *Memory) UpsertSource(_ context.Context, source domain.Source) error {
	if strings.TrimSpace(source.Name) == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[sourceDocID(source.Name)] = source
	return nil
}

// UpsertTags maintains one tag document per distinct tag.
func (m *Memory) UpsertTags(_ context.Context, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			m.tags[tagDocID(tag)] = tag
		}
	}
	return nil
}

// Published returns the published document for an ID, or nil.
func (m *Memory) Published(id string) *domain.PublishedArticle {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.published[id]
	if !ok {
		return nil
	}
	return &doc
}

// Counts reports stored draft, published, source and tag document counts.
func (m *Memory) Counts() (drafts, published, sources, tags int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts), len(m.published), len(m.sources), len(m.tags)
}

func needsRewrite(draft domain.ArticleDraft) bool {
	return draft.Status == domain.StatusDraft && (draft.AIFinal == nil || strings.TrimSpace(draft.AIFinal.Body) == "")
}

func readyToPublish(draft domain.ArticleDraft) bool {
	return draft.Status != domain.StatusPublished && draft.AIFinal != nil && strings.TrimSpace(draft.AIFinal.Body) != ""
}

func selectDrafts(drafts map[string]domain.ArticleDraft, limit int, keep func(domain.ArticleDraft) bool) []domain.ArticleDraft {
	var out []domain.ArticleDraft
	for _, draft := range drafts {
		if keep(draft) {
			out = append(out, draft)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type errDraftMissing string

func (e errDraftMissing) Error() string { return "draft missing: " + string(e) }
