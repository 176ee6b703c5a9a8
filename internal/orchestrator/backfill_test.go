package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenniswire/internal/config"
	"tenniswire/internal/contentrepo"
	"tenniswire/internal/domain"
)

func seedDrafts(t *testing.T, repo *contentrepo.Memory, n int) {
	t.Helper()
	base := time.Date(2026, time.August, 30, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := repo.CreateDraftIfAbsent(context.Background(), domain.ArticleDraft{
			ID:        fmt.Sprintf("article-%03d", i),
			Status:    domain.StatusDraft,
			Title:     fmt.Sprintf("Draft %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
}

// gaugedRewriter tracks how many rewrites run simultaneously.
type gaugedRewriter struct {
	repo *contentrepo.Memory

	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (r *gaugedRewriter) RewriteDraft(ctx context.Context, draft domain.ArticleDraft) error {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
	}
	r.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()

	status := domain.StatusReview
	return r.repo.PatchDraft(ctx, draft.ID, domain.DraftPatch{
		AIFinal: &domain.FinalDraft{DraftVariant: domain.DraftVariant{Title: draft.Title, Body: "<p>done</p>"}},
		Status:  &status,
	})
}

func TestBackfillConcurrencyBound(t *testing.T) {
	t.Parallel()

	repo := contentrepo.NewMemory()
	seedDrafts(t, repo, 10)
	rewriter := &gaugedRewriter{repo: repo}

	cfg := config.BackfillConfig{Concurrency: 3, MaxItems: 10}
	stage := NewBackfill(repo, rewriter, nil, cfg, slog.New(slog.DiscardHandler))

	summary := stage.Run(context.Background(), time.Time{})

	require.Equal(t, 10, summary.Processed)
	require.Equal(t, 10, summary.Succeeded)
	require.Equal(t, 0, summary.Remaining)
	require.False(t, summary.TimedOut)
	require.LessOrEqual(t, rewriter.maxSeen, 3, "more than 3 pipelines were in flight")
	require.Greater(t, rewriter.maxSeen, 1, "pool never ran in parallel")
}

type lockedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *lockedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *lockedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// tickingRewriter advances a fake clock by one second per rewrite.
type tickingRewriter struct {
	clock *lockedClock
	repo  *contentrepo.Memory
}

func (r *tickingRewriter) RewriteDraft(ctx context.Context, draft domain.ArticleDraft) error {
	r.clock.advance(time.Second)
	status := domain.StatusReview
	return r.repo.PatchDraft(ctx, draft.ID, domain.DraftPatch{
		AIFinal: &domain.FinalDraft{DraftVariant: domain.DraftVariant{Title: draft.Title, Body: "<p>done</p>"}},
		Status:  &status,
	})
}

func TestBackfillDeadlineReportsPartialProgress(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	clock := &lockedClock{t: base}

	repo := contentrepo.NewMemory()
	seedDrafts(t, repo, 5)

	cfg := config.BackfillConfig{Concurrency: 1, MaxItems: 5}
	stage := NewBackfill(repo, &tickingRewriter{clock: clock, repo: repo}, nil, cfg, slog.New(slog.DiscardHandler))
	stage.now = clock.now

	// One second per rewrite; the deadline lands between the third and
	// fourth launch.
	summary := stage.Run(context.Background(), base.Add(2500*time.Millisecond))

	require.True(t, summary.TimedOut)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, 2, summary.Remaining)
}

func TestBackfillShutdownIsNotATimeout(t *testing.T) {
	t.Parallel()

	repo := contentrepo.NewMemory()
	seedDrafts(t, repo, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.BackfillConfig{Concurrency: 1, MaxItems: 3}
	summary := NewBackfill(repo, &gaugedRewriter{repo: repo}, nil, cfg, slog.New(slog.DiscardHandler)).
		Run(ctx, time.Time{})

	// Cancellation stops the batch but the budget never expired.
	require.False(t, summary.TimedOut)
	require.Equal(t, 0, summary.Processed)
	require.Equal(t, 3, summary.Remaining)
}

func TestBackfillAbsorbsPerDraftFailures(t *testing.T) {
	t.Parallel()

	repo := contentrepo.NewMemory()
	seedDrafts(t, repo, 4)

	rewriter := &selectiveRewriter{repo: repo, failID: "article-002"}
	cfg := config.BackfillConfig{Concurrency: 2, MaxItems: 4}
	summary := NewBackfill(repo, rewriter, nil, cfg, slog.New(slog.DiscardHandler)).
		Run(context.Background(), time.Time{})

	require.Equal(t, 4, summary.Processed)
	require.Equal(t, 3, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	// The failed draft stays in the backlog for a future pass.
	require.Equal(t, 1, summary.Remaining)
}

type selectiveRewriter struct {
	repo   *contentrepo.Memory
	failID string
}

func (r *selectiveRewriter) RewriteDraft(ctx context.Context, draft domain.ArticleDraft) error {
	if draft.ID == r.failID {
		return fmt.Errorf("model unavailable")
	}
	status := domain.StatusReview
	return r.repo.PatchDraft(ctx, draft.ID, domain.DraftPatch{
		AIFinal: &domain.FinalDraft{DraftVariant: domain.DraftVariant{Title: draft.Title, Body: "<p>done</p>"}},
		Status:  &status,
	})
}
