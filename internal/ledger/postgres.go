// Package ledger persists the durable ingestion log. The ledger is the dedup
// authority: an entry for (source, external id) means the item was ingested,
// regardless of what later happened to its draft.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// Postgres stores ledger entries in the ingest_ledger table.
type Postgres struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Ledger = (*Postgres)(nil)

// NewPostgres wires a sql.DB implementation.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the ledger table when it does not exist yet.
func (l *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS ingest_ledger (
		source_key         TEXT NOT NULL,
		external_id        TEXT NOT NULL,
		raw_payload        JSONB,
		normalized_payload JSONB,
		status             TEXT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (source_key, external_id)
	)`

	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Find returns the entry for (sourceKey, externalID), or nil when absent.
func (l *Postgres) Find(ctx context.Context, sourceKey, externalID string) (*domain.LedgerEntry, error) {
	row := l.sb.
		Select("source_key", "external_id", "raw_payload", "normalized_payload", "status", "created_at").
		From("ingest_ledger").
		Where(sq.Eq{"source_key": sourceKey, "external_id": externalID}).
		RunWith(l.db).
		QueryRowContext(ctx)

	var entry domain.LedgerEntry
	var raw, normalized []byte
	err := row.Scan(&entry.SourceKey, &entry.ExternalID, &raw, &normalized, &entry.Status, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	entry.RawPayload = raw
	entry.NormalizedPayload = normalized
	return &entry, nil
}

// Insert writes a new entry. Inserting an existing key is an error; callers
// are expected to Find first and Update on refresh.
func (l *Postgres) Insert(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := l.sb.
		Insert("ingest_ledger").
		Columns("source_key", "external_id", "raw_payload", "normalized_payload", "status", "created_at").
		Values(entry.SourceKey, entry.ExternalID, payload(entry.RawPayload), payload(entry.NormalizedPayload), entry.Status, entry.CreatedAt).
		RunWith(l.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Update overwrites the payloads and status of an existing entry.
func (l *Postgres) Update(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := l.sb.
		Update("ingest_ledger").
		Set("raw_payload", payload(entry.RawPayload)).
		Set("normalized_payload", payload(entry.NormalizedPayload)).
		Set("status", entry.Status).
		Where(sq.Eq{"source_key": entry.SourceKey, "external_id": entry.ExternalID}).
		RunWith(l.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	return nil
}

// DeleteBySource drops every entry for one source, forcing full re-ingestion
// of that source on the next run.
func (l *Postgres) DeleteBySource(ctx context.Context, sourceKey string) error {
	_, err := l.sb.
		Delete("ingest_ledger").
		Where(sq.Eq{"source_key": sourceKey}).
		RunWith(l.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete ledger source: %w", err)
	}
	return nil
}

// payload maps empty byte slices to SQL NULL so JSONB columns stay clean.
func payload(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
