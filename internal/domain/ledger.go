package domain

import "time"

// LedgerStatus marks whether a ledger entry is first-seen or refreshed.
type LedgerStatus string

const (
	LedgerNew       LedgerStatus = "new"
	LedgerRefreshed LedgerStatus = "refreshed"
)

// LedgerEntry is the durable record that a canonical URL has been ingested.
// Keyed by (SourceKey, ExternalID); existence prevents re-creation unless a
// refresh policy explicitly allows an overwrite.
type LedgerEntry struct {
	SourceKey         string       `json:"sourceKey"`
	ExternalID        string       `json:"externalId"`
	RawPayload        []byte       `json:"rawPayload,omitempty"`
	NormalizedPayload []byte       `json:"normalizedPayload,omitempty"`
	Status            LedgerStatus `json:"status"`
	CreatedAt         time.Time    `json:"createdAt"`
}
