package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/queue"
)

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	return queue.New(filepath.Join(t.TempDir(), "webhook_queue.json"), testLogger())
}

func TestIntake_Enqueue_RecordsAndPersistsJob(t *testing.T) {
	syncs := new(mockSyncRepository)
	q := newTestQueue(t)
	intake := NewIntake(syncs, q, testLogger())
	ctx := context.Background()

	syncs.On("Create", ctx, mock.AnythingOfType("*domain.SyncRecord")).Return(nil)

	record, err := intake.Enqueue(ctx, "https://vendor.example.com/feed.xlsx")

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, domain.SyncStateQueued, record.State)
	assert.Equal(t, "https://vendor.example.com/feed.xlsx", record.SourceURL)
	assert.False(t, record.CreatedAt.IsZero())

	job, err := q.Pending()
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, record.ID, job.SyncID)
	assert.Equal(t, record.SourceURL, job.SourceURL)

	syncs.AssertExpectations(t)
}

func TestIntake_Enqueue_SupersedesQueuedPredecessor(t *testing.T) {
	syncs := new(mockSyncRepository)
	q := newTestQueue(t)
	intake := NewIntake(syncs, q, testLogger())
	ctx := context.Background()

	syncs.On("Create", ctx, mock.AnythingOfType("*domain.SyncRecord")).Return(nil)

	first, err := intake.Enqueue(ctx, "https://vendor.example.com/feed-1.xlsx")
	require.NoError(t, err)

	syncs.On("GetByID", ctx, first.ID).
		Return(&domain.SyncRecord{ID: first.ID, State: domain.SyncStateQueued}, nil)
	syncs.On("MarkFailed", ctx, first.ID, "superseded by a newer feed notification").Return(nil)

	second, err := intake.Enqueue(ctx, "https://vendor.example.com/feed-2.xlsx")
	require.NoError(t, err)

	job, err := q.Pending()
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, second.ID, job.SyncID)

	syncs.AssertExpectations(t)
}

// A displaced job whose record already moved to processing belongs to the
// worker; its outcome must not be overwritten.
func TestIntake_Enqueue_LeavesProcessingPredecessorAlone(t *testing.T) {
	syncs := new(mockSyncRepository)
	q := newTestQueue(t)
	intake := NewIntake(syncs, q, testLogger())
	ctx := context.Background()

	syncs.On("Create", ctx, mock.AnythingOfType("*domain.SyncRecord")).Return(nil)

	first, err := intake.Enqueue(ctx, "https://vendor.example.com/feed-1.xlsx")
	require.NoError(t, err)

	syncs.On("GetByID", ctx, first.ID).
		Return(&domain.SyncRecord{ID: first.ID, State: domain.SyncStateProcessing}, nil)

	_, err = intake.Enqueue(ctx, "https://vendor.example.com/feed-2.xlsx")
	require.NoError(t, err)

	syncs.AssertNotCalled(t, "MarkFailed", ctx, first.ID, "superseded by a newer feed notification")
	syncs.AssertExpectations(t)
}

func TestIntake_Enqueue_CreateFailure(t *testing.T) {
	syncs := new(mockSyncRepository)
	q := newTestQueue(t)
	intake := NewIntake(syncs, q, testLogger())
	ctx := context.Background()

	syncs.On("Create", ctx, mock.Anything).Return(errors.New("connection refused"))

	record, err := intake.Enqueue(ctx, "https://vendor.example.com/feed.xlsx")

	assert.Nil(t, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create sync record")

	job, err := q.Pending()
	require.NoError(t, err)
	assert.Nil(t, job)

	syncs.AssertExpectations(t)
}

func TestIntake_Enqueue_QueueFailureMarksRecordFailed(t *testing.T) {
	syncs := new(mockSyncRepository)

	// A regular file where the queue directory should go makes persistence fail.
	dir := t.TempDir()
	blocked := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
	q := queue.New(filepath.Join(blocked, "webhook_queue.json"), testLogger())

	intake := NewIntake(syncs, q, testLogger())
	ctx := context.Background()

	syncs.On("Create", ctx, mock.Anything).Return(nil)
	syncs.On("MarkFailed", ctx, mock.Anything, mock.MatchedBy(func(msg string) bool {
		return strings.HasPrefix(msg, "enqueue job: ")
	})).Return(nil)

	record, err := intake.Enqueue(ctx, "https://vendor.example.com/feed.xlsx")

	assert.Nil(t, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enqueue webhook job")

	syncs.AssertExpectations(t)
}
