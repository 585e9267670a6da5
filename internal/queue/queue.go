// Package queue persists the single pending ingestion job as one JSON file
// on disk. The file is the crash boundary of the webhook pipeline: it is
// written before the sync turns processing and removed only after the run
// reaches a terminal state, so a restart can always resume from it.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/baignoire/fitmatch/internal/domain"
)

// Queue holds at most one pending job. Writes go through a temp file and an
// atomic rename so a reader never observes a partial job. Enqueueing while a
// job is pending overwrites it: the latest feed wins.
type Queue struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a queue backed by the given file path.
func New(path string, logger *slog.Logger) *Queue {
	return &Queue{path: path, logger: logger}
}

// Path returns the queue file location.
func (q *Queue) Path() string {
	return q.path
}

// Enqueue persists the job, replacing any pending one. It returns the job it
// displaced, or nil when the queue was empty.
func (q *Queue) Enqueue(job *domain.WebhookJob) (*domain.WebhookJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	displaced, err := q.read()
	if err != nil {
		// A pending job we cannot parse is still replaced; the new feed
		// supersedes whatever it described.
		q.logger.Warn("replacing unreadable queue file", "path", q.path, "error", err)
		displaced = nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook job: %w", err)
	}

	dir := filepath.Dir(q.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".webhook_queue-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("write temp queue file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("sync temp queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("close temp queue file: %w", err)
	}

	if err := os.Rename(tmpName, q.path); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("rename queue file into place: %w", err)
	}

	return displaced, nil
}

// Pending returns the queued job, or nil when the queue is empty.
func (q *Queue) Pending() (*domain.WebhookJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.read()
}

// Complete removes the queue file if it still holds the given job. A job
// enqueued after this one started processing stays in place for the next
// iteration.
func (q *Queue) Complete(job *domain.WebhookJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.read()
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	if current.SyncID != job.SyncID {
		q.logger.Info("queue holds a newer job, leaving it in place",
			"completed_sync_id", job.SyncID,
			"pending_sync_id", current.SyncID,
		)
		return nil
	}

	if err := os.Remove(q.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove queue file: %w", err)
	}

	return nil
}

func (q *Queue) read() (*domain.WebhookJob, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue file: %w", err)
	}

	var job domain.WebhookJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode queue file: %w", err)
	}

	return &job, nil
}
