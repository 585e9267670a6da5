package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/queue"
	"github.com/baignoire/fitmatch/internal/sync"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock SyncRepository ---

type mockSyncRepository struct {
	mock.Mock
}

func (m *mockSyncRepository) Create(ctx context.Context, record *domain.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockSyncRepository) GetByID(ctx context.Context, id string) (*domain.SyncRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRecord), args.Error(1)
}

func (m *mockSyncRepository) ListRecent(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRecord), args.Error(1)
}

func (m *mockSyncRepository) MarkProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSyncRepository) MarkCompleted(ctx context.Context, id string, counts domain.SyncCounts, details domain.ChangeDetails) error {
	args := m.Called(ctx, id, counts, details)
	return args.Error(0)
}

func (m *mockSyncRepository) MarkFailed(ctx context.Context, id string, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

func (m *mockSyncRepository) FailInterrupted(ctx context.Context, message string) (int, error) {
	args := m.Called(ctx, message)
	return args.Int(0), args.Error(1)
}

// --- Mock SyncRunner ---

type mockSyncRunner struct {
	mock.Mock
}

func (m *mockSyncRunner) Run(ctx context.Context, feedPath string, opts sync.Options) (*sync.Result, error) {
	args := m.Called(ctx, feedPath, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.Result), args.Error(1)
}

func (m *mockSyncRunner) Backfill(ctx context.Context, exclude []string, limit int) (*sync.MaterializeResult, []string, error) {
	args := m.Called(ctx, exclude, limit)
	var result *sync.MaterializeResult
	if args.Get(0) != nil {
		result = args.Get(0).(*sync.MaterializeResult)
	}
	var attempted []string
	if args.Get(1) != nil {
		attempted = args.Get(1).([]string)
	}
	return result, attempted, args.Error(2)
}

// --- Mock FeedFetcher ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url, destPath string) (int64, error) {
	args := m.Called(ctx, url, destPath)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock EventPublisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishSyncCompleted(ctx context.Context, record *domain.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockEvents) PublishSyncFailed(ctx context.Context, record *domain.SyncRecord, message string) error {
	args := m.Called(ctx, record, message)
	return args.Error(0)
}

func (m *mockEvents) PublishCompatibilityUpdated(ctx context.Context, syncID string, anchorCount, edgesWritten int) error {
	args := m.Called(ctx, syncID, anchorCount, edgesWritten)
	return args.Error(0)
}

// --- Fixtures ---

const feedURL = "https://vendor.example.com/exports/feed.xlsx"

func testConfig() Config {
	return Config{
		Interval:      time.Minute,
		FeedPath:      filepath.Join("data", "Product Data.xlsx"),
		BackfillLimit: 50,
	}
}

func newTestWorker(t *testing.T, cfg Config, syncs *mockSyncRepository, runner *mockSyncRunner, fetcher *mockFetcher, events EventPublisher) (*Worker, *queue.Queue) {
	t.Helper()
	q := queue.New(filepath.Join(t.TempDir(), "webhook_queue.json"), testLogger())
	return New(cfg, q, syncs, runner, fetcher, events, testLogger()), q
}

func enqueueJob(t *testing.T, q *queue.Queue, syncID string) *domain.WebhookJob {
	t.Helper()
	job := &domain.WebhookJob{SyncID: syncID, SourceURL: feedURL, EnqueuedAt: time.Now().UTC()}
	_, err := q.Enqueue(job)
	require.NoError(t, err)
	return job
}

func syncResult() *sync.Result {
	return &sync.Result{
		Counts:      domain.SyncCounts{Added: 2, Updated: 1, CompatibilitiesUpdated: 4},
		ChangedSKUs: []string{"DR1", "FB1"},
		Materialized: &sync.MaterializeResult{
			EdgesWritten: 4,
			ForwardBySKU: map[string]int{"DR1": 1, "FB1": 1},
		},
	}
}

// --- processPending ---

func TestWorker_ProcessPending_CompletesJob(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	events := new(mockEvents)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, events)
	enqueueJob(t, q, "sync-1")

	syncs.On("MarkProcessing", mock.Anything, "sync-1").Return(nil)
	fetcher.On("Fetch", mock.Anything, feedURL, cfg.FeedPath).Return(int64(2048), nil)
	runner.On("Run", mock.Anything, cfg.FeedPath, sync.Options{}).Return(syncResult(), nil)
	syncs.On("MarkCompleted", mock.Anything, "sync-1",
		domain.SyncCounts{Added: 2, Updated: 1, CompatibilitiesUpdated: 4},
		domain.ChangeDetails(nil)).Return(nil)
	events.On("PublishSyncCompleted", mock.Anything, mock.MatchedBy(func(r *domain.SyncRecord) bool {
		return r.ID == "sync-1" && r.State == domain.SyncStateCompleted && r.Added == 2
	})).Return(nil)
	events.On("PublishCompatibilityUpdated", mock.Anything, "sync-1", 2, 4).Return(nil)

	w.processPending(ctx)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
	syncs.AssertExpectations(t)
	runner.AssertExpectations(t)
	fetcher.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestWorker_ProcessPending_EmptyQueueIsNoop(t *testing.T) {
	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, _ := newTestWorker(t, testConfig(), syncs, runner, fetcher, nil)

	w.processPending(context.Background())

	syncs.AssertExpectations(t)
	runner.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestWorker_ProcessPending_RunFailureMarksRecordFailed(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	events := new(mockEvents)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, events)
	enqueueJob(t, q, "sync-1")

	syncs.On("MarkProcessing", mock.Anything, "sync-1").Return(nil)
	fetcher.On("Fetch", mock.Anything, feedURL, cfg.FeedPath).Return(int64(2048), nil)
	runner.On("Run", mock.Anything, cfg.FeedPath, sync.Options{}).
		Return(nil, errors.New("invalid feed: missing sheet Shower Bases"))
	syncs.On("MarkFailed", mock.Anything, "sync-1", "invalid feed: missing sheet Shower Bases").Return(nil)
	events.On("PublishSyncFailed", mock.Anything, mock.MatchedBy(func(r *domain.SyncRecord) bool {
		return r.ID == "sync-1" && r.State == domain.SyncStateFailed
	}), "invalid feed: missing sheet Shower Bases").Return(nil)

	w.processPending(ctx)

	// The failure is terminal and persisted, so the job is gone.
	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
	syncs.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestWorker_ProcessPending_DownloadFailureSkipsRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, nil)
	enqueueJob(t, q, "sync-1")

	syncs.On("MarkProcessing", mock.Anything, "sync-1").Return(nil)
	fetcher.On("Fetch", mock.Anything, feedURL, cfg.FeedPath).
		Return(int64(0), errors.New("download feed: unexpected status 503"))
	syncs.On("MarkFailed", mock.Anything, "sync-1", "download feed: unexpected status 503").Return(nil)

	w.processPending(ctx)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
	runner.AssertExpectations(t)
	syncs.AssertExpectations(t)
}

func TestWorker_ProcessPending_KeepsJobWhenTerminalPersistFails(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, nil)
	enqueueJob(t, q, "sync-1")

	syncs.On("MarkProcessing", mock.Anything, "sync-1").Return(nil).Twice()
	fetcher.On("Fetch", mock.Anything, feedURL, cfg.FeedPath).Return(int64(2048), nil).Twice()
	runner.On("Run", mock.Anything, cfg.FeedPath, sync.Options{}).Return(syncResult(), nil).Twice()
	syncs.On("MarkCompleted", mock.Anything, "sync-1", mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).Once()
	syncs.On("MarkCompleted", mock.Anything, "sync-1", mock.Anything, mock.Anything).
		Return(nil).Once()

	w.processPending(ctx)

	// Terminal state was not persisted, so the job survives for a retry.
	pending, err := q.Pending()
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "sync-1", pending.SyncID)

	w.processPending(ctx)

	pending, err = q.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
	syncs.AssertExpectations(t)
}

func TestWorker_ProcessPending_DropsJobWithoutSyncRecord(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, nil)
	enqueueJob(t, q, "sync-gone")

	syncs.On("MarkProcessing", mock.Anything, "sync-gone").Return(apperrors.ErrNotFound)

	w.processPending(ctx)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
	runner.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestWorker_ProcessPending_DeferredRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.DeferCompatibilities = true

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	events := new(mockEvents)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, events)
	enqueueJob(t, q, "sync-1")

	deferred := &sync.Result{
		Counts:      domain.SyncCounts{Added: 2},
		ChangedSKUs: []string{"DR1", "FB1"},
	}
	syncs.On("MarkProcessing", mock.Anything, "sync-1").Return(nil)
	fetcher.On("Fetch", mock.Anything, feedURL, cfg.FeedPath).Return(int64(2048), nil)
	runner.On("Run", mock.Anything, cfg.FeedPath, sync.Options{DeferCompatibilities: true}).
		Return(deferred, nil)
	syncs.On("MarkCompleted", mock.Anything, "sync-1", domain.SyncCounts{Added: 2},
		domain.ChangeDetails(nil)).Return(nil)
	// No materialization happened, so no compatibility.updated event.
	events.On("PublishSyncCompleted", mock.Anything, mock.Anything).Return(nil)

	w.processPending(ctx)

	runner.AssertExpectations(t)
	events.AssertExpectations(t)
}

// --- back-fill ---

func TestWorker_Backfill_RemembersBarrenAnchors(t *testing.T) {
	ctx := context.Background()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, _ := newTestWorker(t, testConfig(), syncs, runner, fetcher, nil)

	runner.On("Backfill", ctx, []string{}, 50).Return(&sync.MaterializeResult{
		EdgesWritten: 2,
		ForwardBySKU: map[string]int{"FB1": 1, "RP1": 0},
	}, []string{"FB1", "RP1"}, nil).Once()
	// The barren anchor is excluded so the next batch window advances.
	runner.On("Backfill", ctx, []string{"RP1"}, 50).Return(&sync.MaterializeResult{
		ForwardBySKU: map[string]int{},
	}, nil, nil).Once()

	w.backfill(ctx)
	w.backfill(ctx)

	runner.AssertExpectations(t)
}

func TestWorker_Backfill_FailureIsNonFatal(t *testing.T) {
	ctx := context.Background()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, _ := newTestWorker(t, testConfig(), syncs, runner, fetcher, nil)

	runner.On("Backfill", ctx, []string{}, 50).Return(nil, nil, errors.New("connection refused"))

	w.backfill(ctx)

	runner.AssertExpectations(t)
}

// --- startup recovery ---

func TestWorker_RecoverInterrupted(t *testing.T) {
	ctx := context.Background()

	syncs := new(mockSyncRepository)
	w, _ := newTestWorker(t, testConfig(), syncs, new(mockSyncRunner), new(mockFetcher), nil)

	syncs.On("FailInterrupted", ctx, "sync interrupted by restart").Return(2, nil)

	w.recoverInterrupted(ctx)

	syncs.AssertExpectations(t)
}

func TestWorker_RestartReprocessesPersistedJob(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	syncs := new(mockSyncRepository)
	runner := new(mockSyncRunner)
	fetcher := new(mockFetcher)
	w, q := newTestWorker(t, cfg, syncs, runner, fetcher, nil)

	// The previous process crashed mid-download: its record is stuck in
	// processing and its job file is still on disk.
	enqueueJob(t, q, "sync-1")

	syncs.On("FailInterrupted", ctx, "sync interrupted by restart").Return(1, nil)
	syncs.On("MarkProcessing", mock.Anything, "sync-1").Return(nil)
	fetcher.On("Fetch", mock.Anything, feedURL, cfg.FeedPath).Return(int64(2048), nil)
	runner.On("Run", mock.Anything, cfg.FeedPath, sync.Options{}).Return(syncResult(), nil)
	syncs.On("MarkCompleted", mock.Anything, "sync-1", mock.Anything, mock.Anything).Return(nil)
	runner.On("Backfill", ctx, []string{}, 50).Return(&sync.MaterializeResult{
		ForwardBySKU: map[string]int{},
	}, nil, nil)

	w.recoverInterrupted(ctx)
	w.iterate(ctx)

	pending, err := q.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
	syncs.AssertExpectations(t)
	runner.AssertExpectations(t)
}

// --- lifecycle ---

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.StartupDelay = time.Hour

	w, _ := newTestWorker(t, cfg, new(mockSyncRepository), new(mockSyncRunner), new(mockFetcher), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
