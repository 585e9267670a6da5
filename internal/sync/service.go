package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/feed"
	"github.com/baignoire/fitmatch/internal/repository"
)

// Options tune one sync run.
type Options struct {
	// DeferCompatibilities applies the catalog diff but leaves edge
	// recomputation to the back-fill loop. Stale edges around changed SKUs
	// are still dropped so back-fill picks them up.
	DeferCompatibilities bool
}

// Result is the outcome of one completed sync run.
type Result struct {
	Counts       domain.SyncCounts
	Details      domain.ChangeDetails
	ChangedSKUs  []string
	Materialized *MaterializeResult
}

// Service runs the full ingestion pipeline: load the feed workbook, publish
// it as the live snapshot, reconcile the store, and rebuild the
// compatibility graph around whatever changed.
type Service struct {
	loader       *feed.Loader
	holder       *feed.Holder
	differ       *Differ
	materializer *Materializer
	products     repository.ProductRepository
	edges        repository.EdgeRepository
	logger       *slog.Logger
}

// NewService wires the pipeline stages together.
func NewService(
	loader *feed.Loader,
	holder *feed.Holder,
	differ *Differ,
	materializer *Materializer,
	products repository.ProductRepository,
	edges repository.EdgeRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		loader:       loader,
		holder:       holder,
		differ:       differ,
		materializer: materializer,
		products:     products,
		edges:        edges,
		logger:       logger,
	}
}

// Run ingests the feed file at feedPath. The snapshot is published before
// the store reconciles so lookups see the new catalog immediately; batches
// committed before an abort remain applied.
func (s *Service) Run(ctx context.Context, feedPath string, opts Options) (*Result, error) {
	started := time.Now()

	snap, err := s.loader.LoadFile(feedPath)
	if err != nil {
		syncRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	s.holder.Swap(snap)
	s.logger.InfoContext(ctx, "feed snapshot loaded", "products", snap.Len())

	report, err := s.differ.Apply(ctx, snap)
	if err != nil {
		syncRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	result := &Result{
		Counts:      report.Counts(),
		Details:     report.Details,
		ChangedSKUs: report.ChangedSKUs(),
	}
	productsChangedTotal.WithLabelValues("added").Add(float64(result.Counts.Added))
	productsChangedTotal.WithLabelValues("updated").Add(float64(result.Counts.Updated))
	productsChangedTotal.WithLabelValues("deleted").Add(float64(result.Counts.Deleted))

	if opts.DeferCompatibilities {
		if err := s.materializer.Invalidate(ctx, result.ChangedSKUs); err != nil {
			syncRunsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		s.logger.InfoContext(ctx, "edge recomputation deferred to back-fill",
			"changed", len(result.ChangedSKUs))
	} else {
		materialized, err := s.materializer.Rebuild(ctx, result.ChangedSKUs, NewCatalog(snap))
		if err != nil {
			syncRunsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		result.Materialized = materialized
		result.Counts.CompatibilitiesUpdated = materialized.EdgesWritten
		edgesWrittenTotal.Add(float64(materialized.EdgesWritten))
	}

	syncRunsTotal.WithLabelValues("completed").Inc()
	syncDuration.Observe(time.Since(started).Seconds())

	s.logger.InfoContext(ctx, "catalog sync applied",
		"added", result.Counts.Added,
		"updated", result.Counts.Updated,
		"deleted", result.Counts.Deleted,
		"compatibilities_updated", result.Counts.CompatibilitiesUpdated,
		"duration", time.Since(started),
	)

	return result, nil
}

// Backfill materializes edges for up to limit products that have none,
// skipping SKUs in exclude. It returns the rebuild result and the SKUs it
// attempted, so the caller can remember anchors that produced nothing.
func (s *Service) Backfill(ctx context.Context, exclude []string, limit int) (*MaterializeResult, []string, error) {
	skus, err := s.edges.ListSKUsWithoutEdges(ctx, s.materializer.registry.Categories(), exclude, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("select back-fill candidates: %w", err)
	}
	if len(skus) == 0 {
		return &MaterializeResult{ForwardBySKU: map[string]int{}}, nil, nil
	}

	catalog, err := s.currentCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.materializer.Rebuild(ctx, skus, catalog)
	if err != nil {
		return nil, skus, err
	}

	backfillProductsTotal.Add(float64(len(skus)))
	edgesWrittenTotal.Add(float64(result.EdgesWritten))

	return result, skus, nil
}

// currentCatalog prefers the live feed snapshot and falls back to the store
// when nothing has been loaded since startup.
func (s *Service) currentCatalog(ctx context.Context) (*Catalog, error) {
	if snap := s.holder.Current(); snap != nil {
		return NewCatalog(snap), nil
	}

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from store: %w", err)
	}
	return NewCatalog(feed.SnapshotFromProducts(products, time.Now().UTC())), nil
}
