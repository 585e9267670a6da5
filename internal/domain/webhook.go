package domain

import (
	"time"
)

// WebhookJob is the single pending ingestion job persisted to disk. It is
// written before its SyncRecord turns processing and removed only after the
// record reaches a terminal state, so a crash between the two leaves the job
// on disk for the next startup to retry.
type WebhookJob struct {
	SyncID     string    `json:"sync_id"`
	SourceURL  string    `json:"source_url"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
