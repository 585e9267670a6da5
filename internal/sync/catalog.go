// Package sync implements the ingestion pipeline: differential catalog sync
// against the store, compatibility graph materialization, and the shared
// intake path that turns a webhook or poll trigger into a queued run.
package sync

import (
	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/feed"
)

// Catalog is the product universe one materialization run evaluates against:
// category enumeration for the matchers plus direct SKU resolution. The SKU
// index is built once per run.
type Catalog struct {
	snap  *feed.Snapshot
	bySKU map[string]domain.Product
}

// NewCatalog indexes a snapshot for materialization.
func NewCatalog(snap *feed.Snapshot) *Catalog {
	c := &Catalog{
		snap:  snap,
		bySKU: make(map[string]domain.Product, snap.Len()),
	}
	for _, p := range snap.All() {
		c.bySKU[p.SKU] = p
	}
	return c
}

// ListByCategory returns the category's products in snapshot order.
func (c *Catalog) ListByCategory(category string) []domain.Product {
	return c.snap.ListByCategory(category)
}

// GetBySKU resolves one product by canonical SKU.
func (c *Catalog) GetBySKU(sku string) (domain.Product, bool) {
	p, ok := c.bySKU[sku]
	return p, ok
}
