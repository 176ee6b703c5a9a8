// Package contentrepo stores article documents. Drafts and their published
// counterparts live in one documents table as JSONB bodies under derived IDs,
// so every write with the same canonical URL lands on the same pair of rows.
package contentrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tenniswire/internal/canonical"
	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

const (
	docTypeArticle   = "article"
	docTypePublished = "published"
	docTypeSource    = "source"
	docTypeTag       = "tag"
)

// Postgres is the documents-table implementation.
type Postgres struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.ContentRepository = (*Postgres)(nil)

// NewPostgres wires a sql.DB implementation.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the documents table when it does not exist yet.
func (r *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		doc_type   TEXT NOT NULL,
		body       JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS documents_type_status_idx
		ON documents (doc_type, (body->>'status'))`

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

// DraftByID loads one draft document, or nil when absent.
func (r *Postgres) DraftByID(ctx context.Context, id string) (*domain.ArticleDraft, error) {
	row := r.sb.
		Select("body").
		From("documents").
		Where(sq.Eq{"id": id, "doc_type": docTypeArticle}).
		RunWith(r.db).
		QueryRowContext(ctx)

	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}

	var draft domain.ArticleDraft
	if err := json.Unmarshal(body, &draft); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return &draft, nil
}

// DraftBySlug loads the draft carrying the given slug, or nil when absent.
func (r *Postgres) DraftBySlug(ctx context.Context, slug string) (*domain.ArticleDraft, error) {
	row := r.sb.
		Select("body").
		From("documents").
		Where(sq.Eq{"doc_type": docTypeArticle}).
		Where(sq.Expr("body->>'slug' = ?", slug)).
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx)

	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load draft by slug %s: %w", slug, err)
	}

	var draft domain.ArticleDraft
	if err := json.Unmarshal(body, &draft); err != nil {
		return nil, fmt.Errorf("decode draft by slug %s: %w", slug, err)
	}
	return &draft, nil
}

// CreateDraftIfAbsent inserts the draft only when its ID is unused. It returns
// true when the insert happened, false when the document already existed.
func (r *Postgres) CreateDraftIfAbsent(ctx context.Context, draft domain.ArticleDraft) (bool, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return false, fmt.Errorf("encode draft %s: %w", draft.ID, err)
	}

	res, err := r.sb.
		Insert("documents").
		Columns("id", "doc_type", "body", "created_at", "updated_at").
		Values(draft.ID, docTypeArticle, body, draft.CreatedAt, draft.UpdatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("insert draft %s: %w", draft.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert draft %s: %w", draft.ID, err)
	}
	return affected > 0, nil
}

// PatchDraft applies the non-nil patch fields to one draft inside a
// transaction, so concurrent refresh and rewrite never clobber each other.
func (r *Postgres) PatchDraft(ctx context.Context, id string, patch domain.DraftPatch) error {
	return r.patchAt(ctx, id, patch, time.Now().UTC())
}

func (r *Postgres) patchAt(ctx context.Context, id string, patch domain.DraftPatch, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("patch draft %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := r.sb.
		Select("body").
		From("documents").
		Where(sq.Eq{"id": id, "doc_type": docTypeArticle}).
		Suffix("FOR UPDATE").
		RunWith(tx).
		QueryRowContext(ctx)

	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("patch draft %s: document missing", id)
		}
		return fmt.Errorf("patch draft %s: %w", id, err)
	}

	var draft domain.ArticleDraft
	if err := json.Unmarshal(body, &draft); err != nil {
		return fmt.Errorf("patch draft %s: %w", id, err)
	}

	applyPatch(&draft, patch, now)

	updated, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("patch draft %s: %w", id, err)
	}

	if _, err := r.sb.
		Update("documents").
		Set("body", updated).
		Set("updated_at", draft.UpdatedAt).
		Where(sq.Eq{"id": id}).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("patch draft %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("patch draft %s: %w", id, err)
	}
	return nil
}

// DeleteDraft removes a draft and its published counterpart. Used by
// maintenance flows, never by the stages.
func (r *Postgres) DeleteDraft(ctx context.Context, id string) error {
	_, err := r.sb.
		Delete("documents").
		Where(sq.Eq{"id": []string{id, canonical.PublishedID(id)}}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	return nil
}

// DraftsNeedingRewrite lists drafts without an AI rewrite, oldest first.
func (r *Postgres) DraftsNeedingRewrite(ctx context.Context, limit int) ([]domain.ArticleDraft, error) {
	builder := r.sb.
		Select("body").
		From("documents").
		Where(sq.Eq{"doc_type": docTypeArticle}).
		Where(sq.Expr("body->>'status' = ?", string(domain.StatusDraft))).
		Where(sq.Expr("COALESCE(body->'aiFinal'->>'body', '') = ''")).
		OrderBy("created_at ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return r.queryDrafts(ctx, builder, "drafts needing rewrite")
}

// CountDraftsNeedingRewrite reports the rewrite backlog size.
func (r *Postgres) CountDraftsNeedingRewrite(ctx context.Context) (int, error) {
	row := r.sb.
		Select("COUNT(*)").
		From("documents").
		Where(sq.Eq{"doc_type": docTypeArticle}).
		Where(sq.Expr("body->>'status' = ?", string(domain.StatusDraft))).
		Where(sq.Expr("COALESCE(body->'aiFinal'->>'body', '') = ''")).
		RunWith(r.db).
		QueryRowContext(ctx)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count rewrite backlog: %w", err)
	}
	return count, nil
}

// DraftsReadyToPublish lists drafts carrying a non-empty AI rewrite that are
// not yet published, oldest first.
func (r *Postgres) DraftsReadyToPublish(ctx context.Context, limit int) ([]domain.ArticleDraft, error) {
	builder := r.sb.
		Select("body").
		From("documents").
		Where(sq.Eq{"doc_type": docTypeArticle}).
		Where(sq.Expr("body->>'status' <> ?", string(domain.StatusPublished))).
		Where(sq.Expr("COALESCE(body->'aiFinal'->>'body', '') <> ''")).
		OrderBy("created_at ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return r.queryDrafts(ctx, builder, "drafts ready to publish")
}

// ReplacePublished upserts the public counterpart of a draft. Republishing the
// same draft replaces the prior document in place.
func (r *Postgres) ReplacePublished(ctx context.Context, doc domain.PublishedArticle) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode published %s: %w", doc.ID, err)
	}

	_, err = r.sb.
		Insert("documents").
		Columns("id", "doc_type", "body", "created_at", "updated_at").
		Values(doc.ID, docTypePublished, body, doc.PublishedAt, doc.PublishedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("replace published %s: %w", doc.ID, err)
	}
	return nil
}

// MarkPublished flips the draft status to published, stamping the draft with
// the publish time.
func (r *Postgres) MarkPublished(ctx context.Context, draftID string, at time.Time) error {
	status := domain.StatusPublished
	return r.patchAt(ctx, draftID, domain.DraftPatch{Status: &status}, at)
}

// PublishedCanonicalURLs returns the canonical URLs of every published
// document; ingest consults this set before touching the ledger.
func (r *Postgres) PublishedCanonicalURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.sb.
		Select("body->>'canonicalUrl'").
		From("documents").
		Where(sq.Eq{"doc_type": docTypePublished}).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query published urls: %w", err)
	}
	defer rows.Close()

	urls := map[string]struct{}{}
	for rows.Next() {
		var u sql.NullString
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan published url: %w", err)
		}
		if u.Valid && u.String != "" {
			urls[u.String] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate published urls: %w", err)
	}
	return urls, nil
}

// UpsertSource maintains the source registry document for one publisher.
func (r *Postgres) UpsertSource(ctx context.Context, source domain.Source) error {
	if strings.TrimSpace(source.Name) == "" {
		return nil
	}
	return r.upsertDoc(ctx, sourceDocID(source.Name), docTypeSource, source)
}

// UpsertTags maintains one tag document per distinct tag.
func (r *Postgres) UpsertTags(ctx context.Context, tags []string) error {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		doc := map[string]string{"name": tag, "slug": canonical.Slug(tag, 60)}
		if err := r.upsertDoc(ctx, tagDocID(tag), docTypeTag, doc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Postgres) upsertDoc(ctx context.Context, id, docType string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", docType, id, err)
	}

	_, err = r.sb.
		Insert("documents").
		Columns("id", "doc_type", "body").
		Values(id, docType, body).
		Suffix("ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", docType, id, err)
	}
	return nil
}

func (r *Postgres) queryDrafts(ctx context.Context, builder sq.SelectBuilder, op string) ([]domain.ArticleDraft, error) {
	rows, err := builder.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var drafts []domain.ArticleDraft
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		var draft domain.ArticleDraft
		if err := json.Unmarshal(body, &draft); err != nil {
			return nil, fmt.Errorf("decode %s: %w", op, err)
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return drafts, nil
}

func sourceDocID(name string) string { return "source-" + canonical.Slug(name, 60) }

func tagDocID(tag string) string { return "tag-" + canonical.Slug(tag, 60) }
