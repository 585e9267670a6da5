package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/queue"
	"github.com/baignoire/fitmatch/internal/repository"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// Intake is the single entry point for feed notifications: the webhook
// handler and the poll trigger both enqueue through it, so every run gets a
// SyncRecord and the on-disk queue keeps its at-most-one-pending invariant.
type Intake struct {
	syncs  repository.SyncRepository
	queue  *queue.Queue
	logger *slog.Logger
}

// NewIntake creates the shared intake path.
func NewIntake(syncs repository.SyncRepository, q *queue.Queue, logger *slog.Logger) *Intake {
	return &Intake{syncs: syncs, queue: q, logger: logger}
}

// Enqueue records a queued sync and persists its job file, replacing any
// pending job. A displaced job that never started processing has its record
// failed as superseded; one already processing is left to finish.
func (i *Intake) Enqueue(ctx context.Context, sourceURL string) (*domain.SyncRecord, error) {
	record := &domain.SyncRecord{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		State:     domain.SyncStateQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := i.syncs.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create sync record: %w", err)
	}

	job := &domain.WebhookJob{
		SyncID:     record.ID,
		SourceURL:  sourceURL,
		EnqueuedAt: record.CreatedAt,
	}
	displaced, err := i.queue.Enqueue(job)
	if err != nil {
		if markErr := i.syncs.MarkFailed(ctx, record.ID, "enqueue job: "+err.Error()); markErr != nil {
			i.logger.ErrorContext(ctx, "could not record enqueue failure",
				"sync_id", record.ID, "error", markErr)
		}
		return nil, fmt.Errorf("enqueue webhook job: %w", err)
	}

	if displaced != nil && displaced.SyncID != record.ID {
		i.markSuperseded(ctx, displaced.SyncID)
	}

	i.logger.InfoContext(ctx, "sync enqueued",
		"sync_id", record.ID,
		"source_url", sourceURL,
	)

	return record, nil
}

// markSuperseded fails a displaced sync that never left the queued state. A
// displaced job whose record is already processing belongs to the worker and
// keeps its outcome.
func (i *Intake) markSuperseded(ctx context.Context, syncID string) {
	rec, err := i.syncs.GetByID(ctx, syncID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			i.logger.WarnContext(ctx, "could not inspect displaced sync", "sync_id", syncID, "error", err)
		}
		return
	}
	if rec.State != domain.SyncStateQueued {
		return
	}

	if err := i.syncs.MarkFailed(ctx, syncID, "superseded by a newer feed notification"); err != nil {
		i.logger.WarnContext(ctx, "could not mark displaced sync failed", "sync_id", syncID, "error", err)
		return
	}

	i.logger.InfoContext(ctx, "queued sync superseded", "sync_id", syncID)
}
