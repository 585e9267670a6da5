package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/pkg/database"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

const (
	// edgeInsertChunkSize bounds the rows per multi-row edge INSERT.
	edgeInsertChunkSize = 500

	// maxInsertAttempts and insertRetryDelay bound the retry loop around
	// bulk edge inserts. Only connection-class failures are retried; the
	// inserts are conflict-tolerant, so a retried chunk never duplicates
	// rows that already landed.
	maxInsertAttempts = 3
	insertRetryDelay  = 250 * time.Millisecond
)

// edgesTouchingPredicate matches every edge whose base or partner names one
// of the SKUs in $1, either directly or as a component of a compound
// door|panel key.
const edgesTouchingPredicate = `
		WHERE base_sku = ANY($1)
		   OR partner_sku = ANY($1)
		   OR string_to_array(base_sku, '|') && $1
		   OR string_to_array(partner_sku, '|') && $1`

// skipConflicts makes an edge insert tolerate rows that already exist. Mirror
// batches legitimately collide with rows from earlier rebuilds.
const skipConflicts = `
		ON CONFLICT (base_sku, partner_sku) DO NOTHING`

// EdgeRepository implements repository.EdgeRepository using PostgreSQL.
type EdgeRepository struct {
	pool database.DBTX
}

// NewEdgeRepository creates a new PostgreSQL-backed edge repository.
func NewEdgeRepository(pool database.DBTX) *EdgeRepository {
	return &EdgeRepository{pool: pool}
}

// ListEdgesFrom returns every outgoing edge of baseSKU, best score first.
func (r *EdgeRepository) ListEdgesFrom(ctx context.Context, baseSKU string) ([]domain.CompatibilityEdge, error) {
	query := `
		SELECT base_sku, partner_sku, partner_category, score, match_reason, incompatibility_reason, created_at
		FROM compatibility_edges
		WHERE base_sku = $1
		ORDER BY score DESC, partner_sku ASC`

	rows, err := r.pool.Query(ctx, query, baseSKU)
	if err != nil {
		return nil, fmt.Errorf("list edges from %s: %w", baseSKU, err)
	}
	defer rows.Close()

	var edges []domain.CompatibilityEdge
	for rows.Next() {
		var e domain.CompatibilityEdge
		if err := rows.Scan(
			&e.BaseSKU,
			&e.PartnerSKU,
			&e.PartnerCategory,
			&e.Score,
			&e.MatchReason,
			&e.IncompatibilityReason,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edge rows: %w", err)
	}

	return edges, nil
}

// ReplaceEdgesFrom swaps every outgoing edge of baseSKU for the given set in
// one transaction, so concurrent readers see either the old graph or the new
// one, never a half-rebuilt base. The insert is strict: a unique violation
// means another rebuild mirrored a row into this base mid-swap, and surfaces
// as ErrDuplicateEdge for the caller to absorb.
func (r *EdgeRepository) ReplaceEdgesFrom(ctx context.Context, baseSKU string, edges []domain.CompatibilityEdge) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleteQuery := `DELETE FROM compatibility_edges WHERE base_sku = $1`

	if _, err := tx.Exec(ctx, deleteQuery, baseSKU); err != nil {
		return fmt.Errorf("delete edges from %s: %w", baseSKU, err)
	}

	if len(edges) > 0 {
		query, args := buildEdgeInsert(edges)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return apperrors.DuplicateEdge(baseSKU, err)
			}
			return fmt.Errorf("insert edges from %s: %w", baseSKU, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteEdgesTouching removes every edge involving any of the given SKUs in
// either direction, compound partners included.
func (r *EdgeRepository) DeleteEdgesTouching(ctx context.Context, skus []string) error {
	if len(skus) == 0 {
		return nil
	}

	query := `DELETE FROM compatibility_edges` + edgesTouchingPredicate

	ctx, end := database.TraceQuery(ctx, "edges.DeleteTouching", query)
	_, err := r.pool.Exec(ctx, query, skus)
	end(err)
	if err != nil {
		return fmt.Errorf("delete edges touching skus: %w", err)
	}

	return nil
}

// BulkInsertEdges writes edges in chunks, skipping rows that already exist.
// Each chunk is retried a bounded number of times so one transient failure
// does not abort a whole materialization run. Returns the rows written.
func (r *EdgeRepository) BulkInsertEdges(ctx context.Context, edges []domain.CompatibilityEdge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	inserted := 0
	for start := 0; start < len(edges); start += edgeInsertChunkSize {
		end := start + edgeInsertChunkSize
		if end > len(edges) {
			end = len(edges)
		}

		n, err := r.insertChunk(ctx, edges[start:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
	}

	return inserted, nil
}

func (r *EdgeRepository) insertChunk(ctx context.Context, edges []domain.CompatibilityEdge) (int, error) {
	query, args := buildEdgeInsert(edges)
	query += skipConflicts

	ctx, end := database.TraceQuery(ctx, "edges.BulkInsert", "INSERT INTO compatibility_edges ... ON CONFLICT DO NOTHING")

	var lastErr error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		tag, err := r.pool.Exec(ctx, query, args...)
		if err == nil {
			end(nil)
			return int(tag.RowsAffected()), nil
		}
		if !database.IsConnectionError(err) {
			end(err)
			return 0, fmt.Errorf("bulk insert edges: %w", err)
		}
		lastErr = err
		if attempt < maxInsertAttempts {
			time.Sleep(database.Backoff(insertRetryDelay, attempt-1))
		}
	}
	end(lastErr)

	return 0, apperrors.TransientStorage(
		fmt.Errorf("bulk insert edges after %d attempts: %w", maxInsertAttempts, lastErr))
}

// buildEdgeInsert renders a multi-row INSERT for the given edges. Empty
// reasons are stored as empty strings, not NULLs. Callers that tolerate
// duplicates append skipConflicts.
func buildEdgeInsert(edges []domain.CompatibilityEdge) (string, []any) {
	const cols = 6

	valueClauses := make([]string, 0, len(edges))
	args := make([]any, 0, len(edges)*cols)
	for i, e := range edges {
		base := i * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = "$" + strconv.Itoa(base+j+1)
		}
		valueClauses = append(valueClauses, "("+strings.Join(placeholders, ",")+")")
		args = append(args, e.BaseSKU, e.PartnerSKU, e.PartnerCategory, e.Score, e.MatchReason, e.IncompatibilityReason)
	}

	query := `
		INSERT INTO compatibility_edges (base_sku, partner_sku, partner_category, score, match_reason, incompatibility_reason)
		VALUES ` + strings.Join(valueClauses, ", ")

	return query, args
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

// ListSKUsWithoutEdges returns up to limit SKUs in the given categories that
// have no outgoing edges, skipping excluded SKUs. Ordering by SKU keeps
// back-fill batches deterministic across runs.
func (r *EdgeRepository) ListSKUsWithoutEdges(ctx context.Context, categories []string, exclude []string, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	if exclude == nil {
		exclude = []string{}
	}

	query := `
		SELECT p.sku
		FROM products p
		WHERE p.category = ANY($1)
		  AND p.sku <> ALL($2)
		  AND NOT EXISTS (
			SELECT 1 FROM compatibility_edges e WHERE e.base_sku = p.sku
		  )
		ORDER BY p.sku ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, categories, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("list skus without edges: %w", err)
	}
	defer rows.Close()

	skus := []string{}
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan sku row: %w", err)
		}
		skus = append(skus, sku)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sku rows: %w", err)
	}

	return skus, nil
}
