package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/database"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

const syncRecordColumns = `id, source_url, state, started_at, completed_at,
	added, updated, deleted, compatibilities_updated, error_message, change_details, created_at`

// SyncRecordRepository implements repository.SyncRepository using PostgreSQL.
type SyncRecordRepository struct {
	pool database.DBTX
}

// NewSyncRecordRepository creates a new PostgreSQL-backed sync history repository.
func NewSyncRecordRepository(pool database.DBTX) *SyncRecordRepository {
	return &SyncRecordRepository{pool: pool}
}

func syncRecordScanDests(rec *domain.SyncRecord) []any {
	return []any{
		&rec.ID, &rec.SourceURL, &rec.State, &rec.StartedAt, &rec.CompletedAt,
		&rec.Added, &rec.Updated, &rec.Deleted, &rec.CompatibilitiesUpdated,
		&rec.ErrorMessage, &rec.ChangeDetails, &rec.CreatedAt,
	}
}

// Create inserts a new record in the queued state.
func (r *SyncRecordRepository) Create(ctx context.Context, record *domain.SyncRecord) error {
	query := `
		INSERT INTO sync_records (id, source_url, state, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, record.ID, record.SourceURL, record.State, record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("create sync record: %w", err)
	}

	return nil
}

// GetByID returns one record by its identifier.
func (r *SyncRecordRepository) GetByID(ctx context.Context, id string) (*domain.SyncRecord, error) {
	query := `
		SELECT ` + syncRecordColumns + `
		FROM sync_records
		WHERE id = $1`

	var rec domain.SyncRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(syncRecordScanDests(&rec)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get sync record: %w", err)
	}

	return &rec, nil
}

// ListRecent returns the most recent records, newest first.
func (r *SyncRecordRepository) ListRecent(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + syncRecordColumns + `
		FROM sync_records
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}
	defer rows.Close()

	records := []domain.SyncRecord{}
	for rows.Next() {
		var rec domain.SyncRecord
		if err := rows.Scan(syncRecordScanDests(&rec)...); err != nil {
			return nil, fmt.Errorf("scan sync record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync record rows: %w", err)
	}

	return records, nil
}

// MarkProcessing moves a record to processing and stamps started_at. A
// record recovered from a crash passes through here again on retry.
func (r *SyncRecordRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE sync_records
		SET state = $2, started_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, domain.SyncStateProcessing)
	if err != nil {
		return fmt.Errorf("mark sync record processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// MarkCompleted moves a record to completed with its result counts and
// per-category change details.
func (r *SyncRecordRepository) MarkCompleted(ctx context.Context, id string, counts domain.SyncCounts, details domain.ChangeDetails) error {
	query := `
		UPDATE sync_records
		SET state = $2, completed_at = now(),
			added = $3, updated = $4, deleted = $5, compatibilities_updated = $6,
			change_details = $7
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, domain.SyncStateCompleted,
		counts.Added, counts.Updated, counts.Deleted, counts.CompatibilitiesUpdated, details)
	if err != nil {
		return fmt.Errorf("mark sync record completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// MarkFailed moves a record to failed with the given message.
func (r *SyncRecordRepository) MarkFailed(ctx context.Context, id string, message string) error {
	query := `
		UPDATE sync_records
		SET state = $2, completed_at = now(), error_message = $3
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, domain.SyncStateFailed, message)
	if err != nil {
		return fmt.Errorf("mark sync record failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// FailInterrupted fails every record still in processing and returns how many
// it touched. Runs once at worker startup; a record stuck in processing can
// only mean the previous process died mid-sync.
func (r *SyncRecordRepository) FailInterrupted(ctx context.Context, message string) (int, error) {
	query := `
		UPDATE sync_records
		SET state = $2, completed_at = now(), error_message = $1
		WHERE state = $3`

	tag, err := r.pool.Exec(ctx, query, message, domain.SyncStateFailed, domain.SyncStateProcessing)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted sync records: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
