// Package repository defines the storage interfaces for the catalog, the
// materialized compatibility graph, and the sync history.
package repository

import (
	"context"

	"github.com/baignoire/fitmatch/internal/domain"
)

// ProductRepository persists catalog rows keyed by canonical SKU.
type ProductRepository interface {
	// GetBySKU returns the product with the given canonical SKU, or
	// apperrors.ErrNotFound when the catalog has no such row.
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)

	// GetBySKUs returns the products for the given canonical SKUs, keyed by
	// SKU. SKUs without a catalog row are absent from the result.
	GetBySKUs(ctx context.Context, skus []string) (map[string]domain.Product, error)

	// ListByCategory returns one page of a category's products ordered by
	// ranking then SKU, plus the category's total row count.
	ListByCategory(ctx context.Context, category string, limit, offset int) ([]domain.Product, int, error)

	// ListAll returns every catalog row.
	ListAll(ctx context.Context) ([]domain.Product, error)

	// ListAllSKUs returns every stored SKU mapped to its category.
	ListAllSKUs(ctx context.Context) (map[string]string, error)

	// UpsertBatch inserts or updates the given products in one statement.
	UpsertBatch(ctx context.Context, products []domain.Product) error

	// DeleteBatch removes the given SKUs and every compatibility edge that
	// touches them, in one transaction.
	DeleteBatch(ctx context.Context, skus []string) error
}

// EdgeRepository persists the directed compatibility graph.
type EdgeRepository interface {
	// ListEdgesFrom returns every edge whose base is the given SKU, ordered
	// by score descending then partner SKU.
	ListEdgesFrom(ctx context.Context, baseSKU string) ([]domain.CompatibilityEdge, error)

	// ReplaceEdgesFrom atomically swaps every outgoing edge of baseSKU for
	// the given set. Readers never observe the base partially rebuilt.
	ReplaceEdgesFrom(ctx context.Context, baseSKU string, edges []domain.CompatibilityEdge) error

	// DeleteEdgesTouching removes every edge whose base or partner involves
	// any of the given SKUs, including compound partners that contain one of
	// them as a component.
	DeleteEdgesTouching(ctx context.Context, skus []string) error

	// BulkInsertEdges inserts edges in chunks, skipping rows that already
	// exist, and returns the number actually written.
	BulkInsertEdges(ctx context.Context, edges []domain.CompatibilityEdge) (int, error)

	// ListSKUsWithoutEdges returns up to limit SKUs from the given categories
	// that have no outgoing edges, skipping the excluded SKUs, ordered by SKU.
	ListSKUsWithoutEdges(ctx context.Context, categories []string, exclude []string, limit int) ([]string, error)
}

// SyncRepository persists ingestion run records.
type SyncRepository interface {
	// Create inserts a new record in the queued state.
	Create(ctx context.Context, record *domain.SyncRecord) error

	// GetByID returns one record, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.SyncRecord, error)

	// ListRecent returns the most recent records, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.SyncRecord, error)

	// MarkProcessing moves a record to processing and stamps started_at.
	MarkProcessing(ctx context.Context, id string) error

	// MarkCompleted moves a record to completed with its result counts and
	// per-category change details.
	MarkCompleted(ctx context.Context, id string, counts domain.SyncCounts, details domain.ChangeDetails) error

	// MarkFailed moves a record to failed with the given message.
	MarkFailed(ctx context.Context, id string, message string) error

	// FailInterrupted marks every record still in processing as failed with
	// the given message and returns how many it touched. Called once at
	// startup to account for runs a crash cut short.
	FailInterrupted(ctx context.Context, message string) (int, error)
}
