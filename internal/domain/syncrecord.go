package domain

import (
	"time"
)

// Sync record states. queued and processing are transient; completed and
// failed are terminal.
const (
	SyncStateQueued     = "queued"
	SyncStateProcessing = "processing"
	SyncStateCompleted  = "completed"
	SyncStateFailed     = "failed"
)

// SyncRecord tracks one ingestion attempt from enqueue to terminal state.
type SyncRecord struct {
	ID                     string        `json:"id"`
	SourceURL              string        `json:"source_url"`
	State                  string        `json:"state"`
	StartedAt              *time.Time    `json:"started_at,omitempty"`
	CompletedAt            *time.Time    `json:"completed_at,omitempty"`
	Added                  int           `json:"added"`
	Updated                int           `json:"updated"`
	Deleted                int           `json:"deleted"`
	CompatibilitiesUpdated int           `json:"compatibilities_updated"`
	ErrorMessage           *string       `json:"error_message,omitempty"`
	ChangeDetails          ChangeDetails `json:"change_details,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
}

// IsTerminal reports whether the record has reached a final state.
func (r *SyncRecord) IsTerminal() bool {
	return r.State == SyncStateCompleted || r.State == SyncStateFailed
}

// ValidSyncStates returns the set of valid sync record states.
func ValidSyncStates() []string {
	return []string{SyncStateQueued, SyncStateProcessing, SyncStateCompleted, SyncStateFailed}
}

// IsValidSyncState checks whether the given state string is a valid sync state.
func IsValidSyncState(state string) bool {
	for _, s := range ValidSyncStates() {
		if s == state {
			return true
		}
	}
	return false
}

// SyncCounts aggregates what one ingestion run changed.
type SyncCounts struct {
	Added                  int `json:"added"`
	Updated                int `json:"updated"`
	Deleted                int `json:"deleted"`
	CompatibilitiesUpdated int `json:"compatibilities_updated"`
}

// ChangeDetails records, per category, which SKUs a sync added, updated, or
// deleted. It is persisted as JSON alongside the record.
type ChangeDetails map[string]*CategoryChanges

// CategoryChanges lists the SKUs a sync touched inside one category.
type CategoryChanges struct {
	Added   []string         `json:"added,omitempty"`
	Updated []UpdatedProduct `json:"updated,omitempty"`
	Deleted []string         `json:"deleted,omitempty"`
}

// UpdatedProduct pairs an updated SKU with its per-field old/new values.
type UpdatedProduct struct {
	SKU     string                 `json:"sku"`
	Changes map[string]FieldChange `json:"changes"`
}

// FieldChange holds the previous and new value of one changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}
