// Package worker drives the background ingestion loop. One goroutine, one
// iteration at a bounded cadence: fail over sync records a crash left in
// processing, drain the webhook queue, then back-fill edges for products
// that have none. Shutdown is observed between iterations; work in flight
// runs to completion under its own timeouts.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/queue"
	"github.com/baignoire/fitmatch/internal/repository"
	"github.com/baignoire/fitmatch/internal/sync"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
	"github.com/baignoire/fitmatch/pkg/tracing"
)

// SyncRunner is the slice of the sync service the worker drives.
type SyncRunner interface {
	Run(ctx context.Context, feedPath string, opts sync.Options) (*sync.Result, error)
	Backfill(ctx context.Context, exclude []string, limit int) (*sync.MaterializeResult, []string, error)
}

// FeedFetcher downloads a feed export URL to a local path.
type FeedFetcher interface {
	Fetch(ctx context.Context, url, destPath string) (int64, error)
}

// EventPublisher publishes sync lifecycle events. Publication is always
// non-fatal to the pipeline.
type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, record *domain.SyncRecord) error
	PublishSyncFailed(ctx context.Context, record *domain.SyncRecord, message string) error
	PublishCompatibilityUpdated(ctx context.Context, syncID string, anchorCount, edgesWritten int) error
}

// Config tunes the worker loop.
type Config struct {
	// StartupDelay postpones the first iteration so the HTTP surface is up
	// before any heavy ingestion work starts.
	StartupDelay time.Duration

	// Interval is the cadence between iterations.
	Interval time.Duration

	// FeedPath is the canonical on-disk location of the current feed.
	FeedPath string

	// BackfillLimit caps how many edge-less products one iteration rebuilds.
	BackfillLimit int

	// DeferCompatibilities leaves edge recomputation to back-fill.
	DeferCompatibilities bool
}

// Worker is the single background ingestion loop.
type Worker struct {
	cfg     Config
	queue   *queue.Queue
	syncs   repository.SyncRepository
	syncer  SyncRunner
	fetcher FeedFetcher
	events  EventPublisher
	logger  *slog.Logger

	// Anchors that legitimately produced zero edges; excluded from later
	// back-fill queries so the batch window advances. Process lifetime only.
	skip map[string]struct{}
}

// New creates a worker. events may be nil when Kafka is not configured.
func New(
	cfg Config,
	q *queue.Queue,
	syncs repository.SyncRepository,
	syncer SyncRunner,
	fetcher FeedFetcher,
	events EventPublisher,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		cfg:     cfg,
		queue:   q,
		syncs:   syncs,
		syncer:  syncer,
		fetcher: fetcher,
		events:  events,
		logger:  logger,
		skip:    make(map[string]struct{}),
	}
}

// Run blocks until ctx is canceled, iterating at the configured cadence.
func (w *Worker) Run(ctx context.Context) {
	if w.cfg.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.StartupDelay):
		}
	}

	w.recoverInterrupted(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.iterate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.iterate(ctx)
		}
	}
}

// iterate runs one worker pass: the pending job, if any, then a back-fill
// batch.
func (w *Worker) iterate(ctx context.Context) {
	w.processPending(ctx)
	w.backfill(ctx)
}

// recoverInterrupted fails over records a previous process left in the
// processing state. Their job file, if still present, is reprocessed by the
// normal iteration that follows.
func (w *Worker) recoverInterrupted(ctx context.Context) {
	n, err := w.syncs.FailInterrupted(ctx, apperrors.InterruptedRun().Message)
	if err != nil {
		w.logger.WarnContext(ctx, "recover interrupted sync records", "error", err)
		return
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "interrupted sync records failed over", "count", n)
	}
}

// processPending loads the queued job, runs the pipeline, and persists the
// record's terminal state before removing the job file. A crash anywhere
// before that removal leaves the job on disk for the next iteration.
func (w *Worker) processPending(ctx context.Context) {
	job, err := w.queue.Pending()
	if err != nil {
		w.logger.WarnContext(ctx, "read webhook queue", "error", err)
		return
	}
	if job == nil {
		return
	}

	logger := w.logger.With(slog.String("sync_id", job.SyncID))

	// Shutdown must not sever a run already started; the download carries
	// its own deadline and the remaining stages are local or transactional.
	runCtx := context.WithoutCancel(ctx)

	// Root span for the run, so query and publish spans nest under one trace.
	runCtx, span := tracing.Tracer("worker").Start(runCtx, "sync.run",
		trace.WithAttributes(attribute.String("sync.id", job.SyncID)))
	defer span.End()

	if err := w.syncs.MarkProcessing(runCtx, job.SyncID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// The record is gone; the job can never report a result.
			logger.WarnContext(ctx, "dropping job without sync record")
			if err := w.queue.Complete(job); err != nil {
				logger.ErrorContext(ctx, "remove orphaned job", "error", err)
			}
			return
		}
		logger.WarnContext(ctx, "mark sync record processing", "error", err)
		return
	}

	logger.InfoContext(ctx, "processing feed notification", slog.String("source_url", job.SourceURL))

	result, runErr := w.runJob(runCtx, job)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "sync run failed")
		logger.ErrorContext(ctx, "sync run failed", "error", runErr)
		if err := w.syncs.MarkFailed(runCtx, job.SyncID, runErr.Error()); err != nil {
			logger.ErrorContext(ctx, "persist sync failure", "error", err)
			return
		}
		w.publishFailed(runCtx, job, runErr.Error())
	} else {
		if err := w.syncs.MarkCompleted(runCtx, job.SyncID, result.Counts, result.Details); err != nil {
			logger.ErrorContext(ctx, "persist sync completion", "error", err)
			return
		}
		w.publishCompleted(runCtx, job, result)
	}

	if err := w.queue.Complete(job); err != nil {
		logger.ErrorContext(ctx, "remove completed job", "error", err)
	}
}

// runJob downloads the feed and runs the sync pipeline against it.
func (w *Worker) runJob(ctx context.Context, job *domain.WebhookJob) (*sync.Result, error) {
	if _, err := w.fetcher.Fetch(ctx, job.SourceURL, w.cfg.FeedPath); err != nil {
		return nil, err
	}
	return w.syncer.Run(ctx, w.cfg.FeedPath, sync.Options{
		DeferCompatibilities: w.cfg.DeferCompatibilities,
	})
}

// backfill rebuilds edges for one batch of products that have none, and
// remembers the ones that legitimately produce nothing.
func (w *Worker) backfill(ctx context.Context) {
	exclude := make([]string, 0, len(w.skip))
	for sku := range w.skip {
		exclude = append(exclude, sku)
	}
	sort.Strings(exclude)

	result, attempted, err := w.syncer.Backfill(ctx, exclude, w.cfg.BackfillLimit)
	if err != nil {
		w.logger.WarnContext(ctx, "back-fill failed", "error", err)
		return
	}
	if len(attempted) == 0 {
		return
	}

	for _, sku := range attempted {
		if result.ForwardBySKU[sku] == 0 {
			w.skip[sku] = struct{}{}
		}
	}

	w.logger.InfoContext(ctx, "back-fill batch done",
		slog.Int("attempted", len(attempted)),
		slog.Int("edges_written", result.EdgesWritten),
	)
}

func (w *Worker) publishCompleted(ctx context.Context, job *domain.WebhookJob, result *sync.Result) {
	if w.events == nil {
		return
	}

	record := &domain.SyncRecord{
		ID:                     job.SyncID,
		SourceURL:              job.SourceURL,
		State:                  domain.SyncStateCompleted,
		Added:                  result.Counts.Added,
		Updated:                result.Counts.Updated,
		Deleted:                result.Counts.Deleted,
		CompatibilitiesUpdated: result.Counts.CompatibilitiesUpdated,
	}
	if err := w.events.PublishSyncCompleted(ctx, record); err != nil {
		w.logger.WarnContext(ctx, "publish sync.completed", "error", err)
	}

	if result.Materialized == nil {
		return
	}
	err := w.events.PublishCompatibilityUpdated(ctx, job.SyncID,
		len(result.Materialized.ForwardBySKU), result.Materialized.EdgesWritten)
	if err != nil {
		w.logger.WarnContext(ctx, "publish compatibility.updated", "error", err)
	}
}

func (w *Worker) publishFailed(ctx context.Context, job *domain.WebhookJob, message string) {
	if w.events == nil {
		return
	}

	record := &domain.SyncRecord{
		ID:        job.SyncID,
		SourceURL: job.SourceURL,
		State:     domain.SyncStateFailed,
	}
	if err := w.events.PublishSyncFailed(ctx, record, message); err != nil {
		w.logger.WarnContext(ctx, "publish sync.failed", "error", err)
	}
}
