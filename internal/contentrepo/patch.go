package contentrepo

import (
	"time"

	"tenniswire/internal/domain"
)

// applyPatch folds non-nil patch fields into the draft. A refresh never
// reverts a published status and never clears an existing AI rewrite; those
// transitions go through explicit patch fields.
func applyPatch(draft *domain.ArticleDraft, patch domain.DraftPatch, now time.Time) {
	if patch.Title != nil {
		draft.Title = *patch.Title
	}
	if patch.Excerpt != nil {
		draft.Excerpt = *patch.Excerpt
	}
	if patch.BodyHTML != nil {
		draft.BodyHTML = *patch.BodyHTML
	}
	if patch.BodyText != nil {
		draft.BodyText = *patch.BodyText
	}
	if patch.Tags != nil {
		draft.Tags = patch.Tags
	}
	if patch.Authors != nil {
		draft.Authors = patch.Authors
	}
	if patch.Timestamp != nil {
		draft.PublishedAt = patch.Timestamp
	}
	if patch.Status != nil {
		// Published is sticky; only another publish touches it.
		if draft.Status != domain.StatusPublished || *patch.Status == domain.StatusPublished {
			draft.Status = *patch.Status
		}
	}
	if patch.AIFinal != nil {
		draft.AIFinal = patch.AIFinal
	}
	if patch.AIVariants != nil {
		draft.AIVariants = patch.AIVariants
	}
	draft.UpdatedAt = now
}
