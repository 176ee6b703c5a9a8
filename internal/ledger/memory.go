package ledger

import (
	"context"
	"fmt"
	"sync"

	"tenniswire/internal/domain"
	"tenniswire/internal/ports"
)

// Memory is the in-process ledger used by tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string]domain.LedgerEntry
}

var _ ports.Ledger = (*Memory)(nil)

// NewMemory returns an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{entries: map[string]domain.LedgerEntry{}}
}

func memKey(sourceKey, externalID string) string { return sourceKey + "\x00" + externalID }

// Find returns the entry for (sourceKey, externalID), or nil when absent.
func (m *Memory) Find(_ context.Context, sourceKey, externalID string) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[memKey(sourceKey, externalID)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Insert writes a new entry; an existing key is an error.
func (m *Memory) Insert(_ context.Context, entry domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(entry.SourceKey, entry.ExternalID)
	if _, exists := m.entries[key]; exists {
		return fmt.Errorf("ledger entry exists: %s/%s", entry.SourceKey, entry.ExternalID)
	}
	m.entries[key] = entry
	return nil
}

// Update overwrites an existing entry.
func (m *Memory) Update(_ context.Context, entry domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(entry.SourceKey, entry.ExternalID)
	if _, exists := m.entries[key]; !exists {
		return fmt.Errorf("ledger entry missing: %s/%s", entry.SourceKey, entry.ExternalID)
	}
	m.entries[key] = entry
	return nil
}

// DeleteBySource drops every entry for one source.
func (m *Memory) DeleteBySource(_ context.Context, sourceKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if entry.SourceKey == sourceKey {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
