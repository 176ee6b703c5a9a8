// Package rewrite turns extracted article content into AI-rewritten drafts.
// The pipeline generates N independent variants, synthesizes one final
// article, and deterministically restores every link, media and numeric token
// the model was instructed to preserve.
package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tenniswire/internal/config"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

const providerName = "openai"

// Input is the prepared model-facing form of one article.
type Input struct {
	DocumentID string
	Title      string
	Excerpt    string
	Body       string
	Context    string
	Links      []domain.LinkReference
	Media      []domain.MediaReference
	Numerics   []string
}

// Pipeline drives the variant/synthesis calls for one draft at a time.
type Pipeline struct {
	gen    ports.TextGenerator
	repo   ports.ContentRepository
	cfg    config.Config
	sink   ports.UsageSink
	logger *slog.Logger
}

var _ ports.DraftRewriter = (*Pipeline)(nil)

// NewPipeline wires the rewrite pipeline. The usage sink subscribes to every
// model call; pass an Aggregator to collect run totals.
func NewPipeline(gen ports.TextGenerator, repo ports.ContentRepository, cfg config.Config, sink ports.UsageSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{gen: gen, repo: repo, cfg: cfg, sink: sink, logger: logger}
}

// BuildInput prepares the model-facing input for a draft: tokenized body,
// harvested links and media, numeric token list and a short context string.
func BuildInput(draft domain.ArticleDraft) (Input, error) {
	input := Input{
		DocumentID: draft.ID,
		Title:      draft.Title,
		Excerpt:    draft.Excerpt,
		Context:    fmt.Sprintf("Source: %s (%s)", draft.Source.Name, draft.CanonicalURL),
	}

	if strings.TrimSpace(draft.BodyHTML) != "" {
		tokenized, err := HarvestMedia(draft.BodyHTML)
		if err != nil {
			return Input{}, err
		}
		input.Body = tokenized.Text
		input.Media = tokenized.Media
	} else {
		input.Body = draft.BodyText
	}
	if strings.TrimSpace(input.Body) == "" {
		return Input{}, fmt.Errorf("draft %s has no body to rewrite", draft.ID)
	}

	input.Links = harvestLinks(draft.BodyHTML)
	input.Numerics = ExtractNumericTokens(input.Body)
	return input, nil
}

// RewriteDraft runs the full pipeline for one draft and patches the document
// with the variants, the finalized rewrite and status review.
func (p *Pipeline) RewriteDraft(ctx context.Context, draft domain.ArticleDraft) error {
	input, err := BuildInput(draft)
	if err != nil {
		return err
	}

	count := p.cfg.VariantCount(draft.Source.Name)
	variants, err := p.GenerateVariants(ctx, input, count)
	if err != nil {
		return fmt.Errorf("generate variants for %s: %w", draft.ID, err)
	}

	final, err := p.SynthesizeFinal(ctx, variants, input)
	if err != nil {
		return fmt.Errorf("synthesize final for %s: %w", draft.ID, err)
	}
	final.Body = FinalizeDraft(final.Body, input.Media, input.Links)

	status := domain.StatusReview
	patch := domain.DraftPatch{
		AIFinal:    final,
		AIVariants: variants,
		Status:     &status,
	}
	if err := p.repo.PatchDraft(ctx, draft.ID, patch); err != nil {
		return fmt.Errorf("store rewrite for %s: %w", draft.ID, err)
	}

	p.logger.Info("draft rewritten", "draft", draft.ID, "variants", len(variants), "finalLength", len(final.Body))
	return nil
}

// GenerateVariants requests count independent rewrites in one structured call
// and expands any variant that falls short of the length floor.
func (p *Pipeline) GenerateVariants(ctx context.Context, input Input, count int) ([]domain.DraftVariant, error) {
	resp, err := p.call(ctx, ports.GenerateRequest{
		System:     rewriteSystemPrompt,
		Prompt:     variantsPrompt(input, count),
		JSONMode:   true,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Variants []domain.DraftVariant `json:"variants"`
	}
	if err := json.Unmarshal(jsonPayload(resp.Text), &parsed); err != nil {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	if len(parsed.Variants) == 0 {
		return nil, fmt.Errorf("model returned no variants")
	}

	floor := p.lengthFloor(input.Body)
	for i := range parsed.Variants {
		expanded, err := p.expandToFloor(ctx, parsed.Variants[i], input, floor)
		if err != nil {
			// Keep the short variant; synthesis can still use it.
			p.logger.Warn("variant expansion failed", "document", input.DocumentID, "variant", i, "error", err)
			continue
		}
		parsed.Variants[i] = expanded
	}
	return parsed.Variants, nil
}

// SynthesizeFinal merges the variants into one best article under the same
// token-preservation rules, expanding it to the floor as needed.
func (p *Pipeline) SynthesizeFinal(ctx context.Context, variants []domain.DraftVariant, input Input) (*domain.FinalDraft, error) {
	resp, err := p.call(ctx, ports.GenerateRequest{
		System:     rewriteSystemPrompt,
		Prompt:     synthesisPrompt(input, variants),
		JSONMode:   true,
		DocumentID: input.DocumentID,
	})
	if err != nil {
		return nil, err
	}

	var merged domain.DraftVariant
	if err := json.Unmarshal(jsonPayload(resp.Text), &merged); err != nil {
		return nil, fmt.Errorf("decode final: %w", err)
	}
	if strings.TrimSpace(merged.Body) == "" {
		return nil, fmt.Errorf("model returned empty final body")
	}

	expanded, err := p.expandToFloor(ctx, merged, input, p.lengthFloor(input.Body))
	if err != nil {
		p.logger.Warn("final expansion failed", "document", input.DocumentID, "error", err)
		expanded = merged
	}

	return &domain.FinalDraft{
		DraftVariant: expanded,
		Provider:     providerName,
		Model:        resp.Model,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// expandToFloor issues up to MaxExpandAttempts "expand and deepen" calls
// against one variant until it meets the floor.
func (p *Pipeline) expandToFloor(ctx context.Context, variant domain.DraftVariant, input Input, floor int) (domain.DraftVariant, error) {
	attempts := p.cfg.Rewrite.MaxExpandAttempts
	if attempts <= 0 {
		attempts = 3
	}

	for i := 0; i < attempts && len(variant.Body) < floor; i++ {
		resp, err := p.call(ctx, ports.GenerateRequest{
			System:     rewriteSystemPrompt,
			Prompt:     expandPrompt(input, variant, floor),
			JSONMode:   true,
			DocumentID: input.DocumentID,
		})
		if err != nil {
			return variant, err
		}

		var expanded domain.DraftVariant
		if err := json.Unmarshal(jsonPayload(resp.Text), &expanded); err != nil {
			return variant, fmt.Errorf("decode expansion: %w", err)
		}
		// Never shrink; a bad expansion keeps the prior text.
		if len(expanded.Body) > len(variant.Body) {
			variant = expanded
		}
	}
	return variant, nil
}

// call routes one model call through the generator and reports its usage.
func (p *Pipeline) call(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	resp, err := p.gen.Generate(ctx, req)
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	if p.sink != nil {
		p.sink.Record(resp.Usage)
	}
	return resp, nil
}

// lengthFloor derives the minimum acceptable body length from the source
// length, capped by the configured floor.
func (p *Pipeline) lengthFloor(sourceBody string) int {
	ratio := p.cfg.Rewrite.MinLengthRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	floor := int(ratio * float64(len(sourceBody)))
	if limit := p.cfg.Rewrite.MinLengthFloor; limit > 0 && floor > limit {
		floor = limit
	}
	return floor
}

// jsonPayload strips code fences some model families wrap around JSON.
func jsonPayload(text string) []byte {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return []byte(strings.TrimSpace(text))
}
