package sync

import (
	"context"
	"log/slog"
	"sort"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/feed"
	"github.com/baignoire/fitmatch/internal/repository"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// DiffReport lists what one sync changed: added and updated SKUs feed the
// materializer, deleted SKUs are already gone from the store, and Details
// carries the per-category breakdown persisted on the SyncRecord.
type DiffReport struct {
	Added   []string
	Updated []string
	Deleted []string
	Details domain.ChangeDetails
}

// ChangedSKUs returns added ∪ updated, sorted.
func (r *DiffReport) ChangedSKUs() []string {
	out := make([]string, 0, len(r.Added)+len(r.Updated))
	out = append(out, r.Added...)
	out = append(out, r.Updated...)
	sort.Strings(out)
	return out
}

// Counts folds the report into SyncRecord counters. CompatibilitiesUpdated
// is filled in later by the materializer.
func (r *DiffReport) Counts() domain.SyncCounts {
	return domain.SyncCounts{
		Added:   len(r.Added),
		Updated: len(r.Updated),
		Deleted: len(r.Deleted),
	}
}

// Differ reconciles a feed snapshot against the stored catalog.
type Differ struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewDiffer creates a differ over the given product store.
func NewDiffer(products repository.ProductRepository, logger *slog.Logger) *Differ {
	return &Differ{products: products, logger: logger}
}

// Apply upserts added and changed products category by category, then removes
// SKUs the feed no longer carries. Each category batch commits on its own, so
// an abort leaves earlier batches applied; the returned error wraps the stage
// that failed.
func (d *Differ) Apply(ctx context.Context, snap *feed.Snapshot) (*DiffReport, error) {
	existing, err := d.products.ListAll(ctx)
	if err != nil {
		return nil, apperrors.SyncAborted("load existing catalog", err)
	}

	current := make(map[string]*domain.Product, len(existing))
	for i := range existing {
		current[existing[i].SKU] = &existing[i]
	}

	report := &DiffReport{Details: domain.ChangeDetails{}}
	seen := make(map[string]struct{}, snap.Len())

	for _, category := range domain.ValidCategories() {
		rows := snap.ListByCategory(category)
		if len(rows) == 0 {
			continue
		}

		batch := make([]domain.Product, 0, len(rows))
		changes := &domain.CategoryChanges{}

		for _, p := range rows {
			if _, dup := seen[p.SKU]; dup {
				d.logger.WarnContext(ctx, "duplicate sku in feed, keeping first occurrence",
					"sku", p.SKU, "category", category)
				continue
			}
			seen[p.SKU] = struct{}{}

			old, ok := current[p.SKU]
			if !ok {
				batch = append(batch, p)
				changes.Added = append(changes.Added, p.SKU)
				report.Added = append(report.Added, p.SKU)
				continue
			}

			diffs := diffProducts(old, &p)
			if len(diffs) == 0 {
				continue
			}
			batch = append(batch, p)
			changes.Updated = append(changes.Updated, domain.UpdatedProduct{SKU: p.SKU, Changes: diffs})
			report.Updated = append(report.Updated, p.SKU)
		}

		if len(batch) > 0 {
			if err := d.products.UpsertBatch(ctx, batch); err != nil {
				return nil, apperrors.SyncAborted("apply "+category+" batch", err)
			}
		}
		if len(changes.Added) > 0 || len(changes.Updated) > 0 {
			report.Details[category] = changes
		}

		d.logger.DebugContext(ctx, "category batch applied",
			"category", category,
			"added", len(changes.Added),
			"updated", len(changes.Updated),
		)
	}

	if err := d.removeMissing(ctx, current, seen, report); err != nil {
		return nil, err
	}

	return report, nil
}

// removeMissing deletes every stored SKU the feed no longer carries, one
// category batch at a time.
func (d *Differ) removeMissing(ctx context.Context, current map[string]*domain.Product, seen map[string]struct{}, report *DiffReport) error {
	missing := make(map[string][]string)
	for sku, p := range current {
		if _, ok := seen[sku]; !ok {
			missing[p.Category] = append(missing[p.Category], sku)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	categories := make([]string, 0, len(missing))
	for category := range missing {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		skus := missing[category]
		sort.Strings(skus)

		if err := d.products.DeleteBatch(ctx, skus); err != nil {
			return apperrors.SyncAborted("delete removed "+category+" products", err)
		}

		changes, ok := report.Details[category]
		if !ok {
			changes = &domain.CategoryChanges{}
			report.Details[category] = changes
		}
		changes.Deleted = append(changes.Deleted, skus...)
		report.Deleted = append(report.Deleted, skus...)

		d.logger.InfoContext(ctx, "removed products absent from feed",
			"category", category,
			"deleted", len(skus),
		)
	}

	return nil
}
