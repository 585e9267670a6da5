package feed

import (
	"sync/atomic"
	"time"

	"github.com/baignoire/fitmatch/internal/domain"
)

// Snapshot is one immutable load of the vendor feed: every recognized sheet's
// rows mapped to products, keyed by category. Snapshots are never mutated
// after the loader returns them, so matchers and the sync pipeline can hold
// one across a whole run.
type Snapshot struct {
	Categories map[string][]domain.Product
	LoadedAt   time.Time
}

// ListByCategory returns the products of one category, or nil when the feed
// had no such sheet.
func (s *Snapshot) ListByCategory(category string) []domain.Product {
	return s.Categories[category]
}

// All returns every product in the snapshot, grouped by category in the
// canonical category order so two loads of the same feed enumerate
// identically.
func (s *Snapshot) All() []domain.Product {
	out := make([]domain.Product, 0, s.Len())
	for _, category := range domain.ValidCategories() {
		out = append(out, s.Categories[category]...)
	}
	return out
}

// Len returns the total product count across categories.
func (s *Snapshot) Len() int {
	n := 0
	for _, products := range s.Categories {
		n += len(products)
	}
	return n
}

// SnapshotFromProducts groups stored catalog rows into a snapshot, so rule
// evaluation can run against the store when no feed file has been loaded.
// Callers pass rows in a deterministic order; grouping preserves it.
func SnapshotFromProducts(products []domain.Product, loadedAt time.Time) *Snapshot {
	categories := make(map[string][]domain.Product)
	for _, p := range products {
		categories[p.Category] = append(categories[p.Category], p)
	}
	return &Snapshot{Categories: categories, LoadedAt: loadedAt}
}

// Holder publishes the process-wide current snapshot. Swap is an atomic
// pointer replacement: readers that already acquired a snapshot keep reading
// the one they got while new readers see the replacement.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates an empty holder. Current returns nil until the first Swap.
func NewHolder() *Holder {
	return &Holder{}
}

// Swap publishes a new snapshot as the current one.
func (h *Holder) Swap(s *Snapshot) {
	h.current.Store(s)
}

// Current returns the published snapshot, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Loaded reports whether any snapshot has been published yet.
func (h *Holder) Loaded() bool {
	return h.current.Load() != nil
}
