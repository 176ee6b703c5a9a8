package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenniswire/internal/config"
	"tenniswire/internal/contentrepo"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// scriptedGenerator routes prompts to canned JSON responses by prompt shape.
type scriptedGenerator struct {
	variants    string
	final       string
	expand      func(attempt int) string
	expandCalls int
	calls       int
}

func (g *scriptedGenerator) Generate(_ context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	g.calls++
	usage := domain.ModelUsage{
		DocumentID:       req.DocumentID,
		Model:            "gpt-4o-mini",
		PromptTokens:     100,
		CompletionTokens: 200,
		TotalTokens:      300,
		Latency:          50 * time.Millisecond,
	}

	var text string
	switch {
	case strings.HasPrefix(req.Prompt, "Rewrite the following article"):
		text = g.variants
	case strings.HasPrefix(req.Prompt, "Merge the following"):
		text = g.final
	case strings.HasPrefix(req.Prompt, "Expand and deepen"):
		g.expandCalls++
		text = g.expand(g.expandCalls)
	default:
		return ports.GenerateResponse{}, fmt.Errorf("unexpected prompt: %.40s", req.Prompt)
	}
	return ports.GenerateResponse{Text: text, Model: "gpt-4o-mini", Usage: usage}, nil
}

func variantsJSON(bodies ...string) string {
	var variants []domain.DraftVariant
	for i, body := range bodies {
		variants = append(variants, domain.DraftVariant{
			Title: fmt.Sprintf("Variant %d", i+1),
			Body:  body,
		})
	}
	raw, _ := json.Marshal(map[string]any{"variants": variants})
	return string(raw)
}

func finalJSON(title, body string) string {
	raw, _ := json.Marshal(domain.DraftVariant{Title: title, Excerpt: "excerpt", Body: body})
	return string(raw)
}

func testConfig() config.Config {
	return config.Config{
		Rewrite: config.RewriteConfig{
			DefaultVariants:   2,
			MinLengthRatio:    0.5,
			MinLengthFloor:    2000,
			MaxExpandAttempts: 3,
		},
	}
}

func TestRewriteDraftEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := contentrepo.NewMemory()
	usage := NewAggregator()

	draft := domain.ArticleDraft{
		ID:           "article-abc",
		CanonicalURL: "https://www.atptour.com/en/news/final",
		Title:        "Alcaraz wins the final",
		BodyHTML:     `<p>Alcaraz won 6-4, 7-5 over <a href="https://example.com/sinner">Sinner</a> in the final.</p>`,
		Status:       domain.StatusDraft,
		Source:       domain.Source{Name: "atptour"},
	}
	_, err := repo.CreateDraftIfAbsent(ctx, draft)
	require.NoError(t, err)

	gen := &scriptedGenerator{
		variants: variantsJSON(
			"<p>Carlos Alcaraz defeated Sinner 6-4, 7-5 to take the title.</p>",
			"<p>A 6-4, 7-5 win gave Alcaraz the trophy over Sinner.</p>",
		),
		final: finalJSON("Alcaraz tops Sinner for the title",
			"<p>Carlos Alcaraz beat Sinner 6-4, 7-5 in a tense final to lift the trophy.</p>"),
	}

	pipeline := NewPipeline(gen, repo, testConfig(), usage, slog.New(slog.DiscardHandler))
	require.NoError(t, pipeline.RewriteDraft(ctx, draft))

	stored, err := repo.DraftByID(ctx, "article-abc")
	require.NoError(t, err)
	require.Equal(t, domain.StatusReview, stored.Status)
	require.Len(t, stored.AIVariants, 2)
	require.NotNil(t, stored.AIFinal)

	body := stored.AIFinal.Body
	require.Contains(t, body, "6-4")
	require.Contains(t, body, "7-5")
	require.Contains(t, body, `<a href="https://example.com/sinner">Sinner</a>`)
	require.Equal(t, "openai", stored.AIFinal.Provider)
	require.Equal(t, "gpt-4o-mini", stored.AIFinal.Model)

	// Two calls: one variants batch, one synthesis. No expansion was needed.
	require.Equal(t, 2, gen.calls)
	require.Equal(t, 2, usage.Run().Requests)
	require.Equal(t, 600, usage.Run().TotalTokens)
	require.Equal(t, 2, usage.Document("article-abc").Requests)
}

func TestMediaTokenSurvivesPipeline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := contentrepo.NewMemory()

	figure := `<figure><img src="https://cdn.example.com/trophy.jpg"><figcaption>The trophy</figcaption></figure>`
	draft := domain.ArticleDraft{
		ID:       "article-media",
		Title:    "Trophy shot",
		BodyHTML: "<p>Alcaraz lifted the trophy after the 6-4 win.</p>" + figure,
		Status:   domain.StatusDraft,
		Source:   domain.Source{Name: "atptour"},
	}
	_, err := repo.CreateDraftIfAbsent(ctx, draft)
	require.NoError(t, err)

	gen := &scriptedGenerator{
		variants: variantsJSON("<p>The 6-4 win sealed it.</p><p>[[IMG:1]]</p>"),
		final:    finalJSON("Title", "<p>The 6-4 win sealed it for Alcaraz.</p><p>[[IMG:1]]</p>"),
	}

	pipeline := NewPipeline(gen, repo, testConfig(), nil, slog.New(slog.DiscardHandler))
	require.NoError(t, pipeline.RewriteDraft(ctx, draft))

	stored, _ := repo.DraftByID(ctx, "article-media")
	require.Contains(t, stored.AIFinal.Body, "<figure>")
	require.Contains(t, stored.AIFinal.Body, `src="https://cdn.example.com/trophy.jpg"`)
	require.Contains(t, stored.AIFinal.Body, "The trophy")
	require.NotContains(t, stored.AIFinal.Body, "[[IMG:1]]")
}

func TestVariantExpansionLoopIsBounded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := contentrepo.NewMemory()

	longBody := "<p>" + strings.Repeat("Alcaraz held serve comfortably. ", 40) + "</p>"
	draft := domain.ArticleDraft{
		ID:       "article-short",
		Title:    "Short rewrite",
		BodyText: strings.Repeat("A long source body keeps the floor high. ", 50),
		Status:   domain.StatusDraft,
		Source:   domain.Source{Name: "atptour"},
	}
	_, err := repo.CreateDraftIfAbsent(ctx, draft)
	require.NoError(t, err)

	gen := &scriptedGenerator{
		variants: variantsJSON("<p>Too short.</p>"),
		final:    finalJSON("Title", longBody),
		// Expansions stay below the floor, so every attempt is spent.
		expand: func(int) string { return finalJSON("Title", "<p>Still too short, slightly longer.</p>") },
	}

	cfg := testConfig()
	cfg.Rewrite.MinLengthRatio = 0.6
	cfg.Rewrite.MaxExpandAttempts = 3

	pipeline := NewPipeline(gen, repo, cfg, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, pipeline.RewriteDraft(ctx, draft))

	// The short variant consumed exactly MaxExpandAttempts expansion calls.
	require.Equal(t, 3, gen.expandCalls)
}
