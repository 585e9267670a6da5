// Package lookup answers compatibility queries: given a SKU, the product
// record and its compatible partners grouped by category, with the manual
// overrides applied on top of the rule output.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/feed"
	"github.com/baignoire/fitmatch/internal/overrides"
	"github.com/baignoire/fitmatch/internal/repository"
	"github.com/baignoire/fitmatch/internal/rules"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// Service resolves compatibility lookups. Anchor products are matched live
// against the current catalog snapshot so a fresh feed is visible before the
// graph finishes materializing; every other product reads its stored edges.
type Service struct {
	products  repository.ProductRepository
	edges     repository.EdgeRepository
	registry  *rules.Registry
	holder    *feed.Holder
	overrides *overrides.Store
	cache     *Cache
	logger    *slog.Logger
}

// NewService wires the lookup path. cache may be nil when no Redis is
// configured; lookups then always resolve.
func NewService(
	products repository.ProductRepository,
	edges repository.EdgeRepository,
	registry *rules.Registry,
	holder *feed.Holder,
	ov *overrides.Store,
	cache *Cache,
	logger *slog.Logger,
) *Service {
	return &Service{
		products:  products,
		edges:     edges,
		registry:  registry,
		holder:    holder,
		overrides: ov,
		cache:     cache,
		logger:    logger,
	}
}

// Lookup resolves one SKU to its compatibility result. The SKU is
// canonicalized first; an unknown SKU returns apperrors.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, rawSKU string) (*domain.LookupResult, error) {
	sku := domain.CanonicalSKU(rawSKU)
	if sku == "" {
		return nil, apperrors.InvalidInput("sku is required")
	}

	if s.cache != nil {
		if result, ok := s.cache.Get(ctx, sku); ok {
			cacheHitsTotal.Inc()
			return result, nil
		}
		cacheMissesTotal.Inc()
	}

	product, err := s.products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	var groups []domain.CompatibleGroup
	if product.IsAnchor() {
		lookupsTotal.WithLabelValues("live").Inc()
		groups, err = s.matchLive(ctx, product)
	} else {
		lookupsTotal.WithLabelValues("edges").Inc()
		groups, err = s.fromStoredEdges(ctx, product)
	}
	if err != nil {
		return nil, err
	}

	groups, err = s.applyWhitelist(ctx, sku, groups)
	if err != nil {
		return nil, err
	}

	result := &domain.LookupResult{Product: product, Compatibles: groups}
	for _, g := range groups {
		if g.IncompatibilityReason == "" {
			continue
		}
		if result.IncompatibilityReasons == nil {
			result.IncompatibilityReasons = make(map[string]string)
		}
		result.IncompatibilityReasons[g.Category] = g.IncompatibilityReason
	}

	if s.cache != nil {
		s.cache.Set(ctx, sku, result)
	}

	return result, nil
}

// matchLive runs the anchor's matcher against the current snapshot and
// converts its groups, dropping blacklisted and self partners.
func (s *Service) matchLive(ctx context.Context, product *domain.Product) ([]domain.CompatibleGroup, error) {
	matcher, ok := s.registry.For(product.Category)
	if !ok {
		return s.fromStoredEdges(ctx, product)
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.CompatibleGroup, 0)
	for _, g := range matcher.Match(*product, snap) {
		if g.IncompatibilityReason != "" {
			groups = append(groups, domain.CompatibleGroup{
				Category:              g.Category,
				IncompatibilityReason: g.IncompatibilityReason,
			})
			continue
		}

		partners := make([]domain.Product, 0, len(g.Partners))
		for _, match := range g.Partners {
			if match.SKU == product.SKU || s.blacklisted(product.SKU, match.SKU) {
				continue
			}
			partners = append(partners, match.Product)
		}
		if len(partners) > 0 {
			groups = append(groups, domain.CompatibleGroup{Category: g.Category, Products: partners})
		}
	}
	return groups, nil
}

// fromStoredEdges answers from the materialized graph, grouping edges by
// partner category in canonical category order. Edges arrive score
// descending, so within a category partners keep their ranking order.
func (s *Service) fromStoredEdges(ctx context.Context, product *domain.Product) ([]domain.CompatibleGroup, error) {
	edges, err := s.edges.ListEdgesFrom(ctx, product.SKU)
	if err != nil {
		return nil, fmt.Errorf("list edges for %s: %w", product.SKU, err)
	}
	if len(edges) == 0 {
		return []domain.CompatibleGroup{}, nil
	}

	records, err := s.partnerRecords(ctx, edges)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]domain.Product)
	reasons := make(map[string]string)
	for _, e := range edges {
		if e.IsIncompatibility() {
			if _, dup := reasons[e.PartnerCategory]; !dup {
				reasons[e.PartnerCategory] = e.IncompatibilityReason
			}
			continue
		}
		if e.PartnerSKU == product.SKU || s.blacklisted(product.SKU, e.PartnerSKU) {
			continue
		}

		partner, ok := records[domain.SplitCompoundSKU(e.PartnerSKU)[0]]
		if ok {
			partner.SKU = e.PartnerSKU
		} else {
			// The edge outlived its partner row; keep the reference minimal.
			partner = domain.Product{SKU: e.PartnerSKU, Category: e.PartnerCategory}
		}
		byCategory[e.PartnerCategory] = append(byCategory[e.PartnerCategory], partner)
	}

	groups := make([]domain.CompatibleGroup, 0, len(byCategory)+len(reasons))
	for _, category := range domain.ValidCategories() {
		if partners, ok := byCategory[category]; ok {
			groups = append(groups, domain.CompatibleGroup{Category: category, Products: partners})
			continue
		}
		if reason, ok := reasons[category]; ok {
			groups = append(groups, domain.CompatibleGroup{Category: category, IncompatibilityReason: reason})
		}
	}
	return groups, nil
}

// partnerRecords fetches the catalog rows behind a set of edges. A compound
// door|panel partner resolves through its door component; the combined SKU
// is restored by the caller.
func (s *Service) partnerRecords(ctx context.Context, edges []domain.CompatibilityEdge) (map[string]domain.Product, error) {
	fetch := make([]string, 0, len(edges))
	seen := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if e.IsIncompatibility() {
			continue
		}
		component := domain.SplitCompoundSKU(e.PartnerSKU)[0]
		if _, dup := seen[component]; dup {
			continue
		}
		seen[component] = struct{}{}
		fetch = append(fetch, component)
	}
	if len(fetch) == 0 {
		return map[string]domain.Product{}, nil
	}

	records, err := s.products.GetBySKUs(ctx, fetch)
	if err != nil {
		return nil, fmt.Errorf("resolve partner products: %w", err)
	}
	return records, nil
}

// applyWhitelist overlays forced pairs: a whitelisted partner replaces its
// category's incompatibility annotation, otherwise appends to its native
// category, creating the group when absent. Whitelisted SKUs missing from
// the catalog are skipped.
func (s *Service) applyWhitelist(ctx context.Context, sku string, groups []domain.CompatibleGroup) ([]domain.CompatibleGroup, error) {
	partners := s.overrides.WhitelistedPartnersOf(sku)
	if len(partners) == 0 {
		return groups, nil
	}

	records, err := s.products.GetBySKUs(ctx, partners)
	if err != nil {
		return nil, fmt.Errorf("resolve whitelist partners: %w", err)
	}

	byCategory := make(map[string][]domain.Product)
	order := make([]string, 0, len(partners))
	for _, p := range partners {
		record, ok := records[p]
		if !ok {
			s.logger.DebugContext(ctx, "whitelisted partner not in catalog", "sku", p)
			continue
		}
		if record.SKU == sku {
			continue
		}
		if _, exists := byCategory[record.Category]; !exists {
			order = append(order, record.Category)
		}
		byCategory[record.Category] = append(byCategory[record.Category], record)
	}

	for i := range groups {
		additions, ok := byCategory[groups[i].Category]
		if !ok {
			continue
		}
		if groups[i].IncompatibilityReason != "" {
			groups[i].IncompatibilityReason = ""
			groups[i].Products = additions
		} else {
			groups[i].Products = appendNewPartners(groups[i].Products, additions)
		}
		delete(byCategory, groups[i].Category)
	}

	for _, category := range order {
		additions, ok := byCategory[category]
		if !ok {
			continue
		}
		groups = append(groups, domain.CompatibleGroup{Category: category, Products: additions})
	}

	return groups, nil
}

// appendNewPartners appends additions whose SKU is not already present.
func appendNewPartners(existing, additions []domain.Product) []domain.Product {
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[p.SKU] = struct{}{}
	}
	for _, p := range additions {
		if _, dup := seen[p.SKU]; dup {
			continue
		}
		seen[p.SKU] = struct{}{}
		existing = append(existing, p)
	}
	return existing
}

// blacklisted applies the manual blacklist to a candidate pair. A compound
// partner is blocked when any of its components pairs with the query SKU.
func (s *Service) blacklisted(sku, partnerSKU string) bool {
	for _, component := range domain.SplitCompoundSKU(partnerSKU) {
		if s.overrides.IsBlacklisted(sku, component) {
			return true
		}
	}
	return false
}

// snapshot returns the live catalog snapshot, loading one from the store on
// a cold start and publishing it for subsequent lookups.
func (s *Service) snapshot(ctx context.Context) (rules.Snapshot, error) {
	if snap := s.holder.Current(); snap != nil {
		return snap, nil
	}

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}

	snap := feed.SnapshotFromProducts(products, time.Now().UTC())
	s.holder.Swap(snap)
	s.logger.InfoContext(ctx, "catalog snapshot loaded from store", "products", snap.Len())
	return snap, nil
}
