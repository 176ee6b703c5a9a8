package ledger

import (
	"context"
	"testing"
	"time"

	"tenniswire/internal/domain"
)

func TestMemoryLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory()

	entry := domain.LedgerEntry{
		SourceKey:  "atptour",
		ExternalID: "abc123",
		Status:     domain.LedgerNew,
		CreatedAt:  time.Now().UTC(),
	}

	if found, err := store.Find(ctx, "atptour", "abc123"); err != nil || found != nil {
		t.Fatalf("empty ledger must miss, got %v / %v", found, err)
	}
	if err := store.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.Insert(ctx, entry); err == nil {
		t.Fatal("duplicate insert must fail")
	}

	entry.Status = domain.LedgerRefreshed
	if err := store.Update(ctx, entry); err != nil {
		t.Fatalf("Update: %v", err)
	}
	found, err := store.Find(ctx, "atptour", "abc123")
	if err != nil || found == nil {
		t.Fatalf("Find after update: %v / %v", found, err)
	}
	if found.Status != domain.LedgerRefreshed {
		t.Fatalf("status not updated: %s", found.Status)
	}

	if err := store.DeleteBySource(ctx, "atptour"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d entries", store.Len())
	}
}
