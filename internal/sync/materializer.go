package sync

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/baignoire/fitmatch/internal/domain"
	"github.com/baignoire/fitmatch/internal/repository"
	"github.com/baignoire/fitmatch/internal/rules"
	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// maxEdgeScore anchors the ranking-to-score mapping: score = maxEdgeScore −
// effective ranking, so reading edges score-descending reproduces the rule
// engine's ranking-ascending order. Incompatibility rows score 0.
const maxEdgeScore = 1000

// reverseReasonPrefix marks a mirrored edge's reason.
const reverseReasonPrefix = "Reverse: "

// CacheInvalidator drops cached lookup results after the graph changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// MaterializeResult reports what one rebuild wrote. ForwardBySKU lets the
// back-fill loop remember anchors that legitimately produce nothing.
type MaterializeResult struct {
	EdgesWritten int
	ForwardBySKU map[string]int
}

// Materializer turns rule engine output into stored graph edges.
type Materializer struct {
	edges    repository.EdgeRepository
	registry *rules.Registry
	cache    CacheInvalidator
	logger   *slog.Logger
}

// NewMaterializer creates a materializer. cache may be nil when no lookup
// cache is configured.
func NewMaterializer(edges repository.EdgeRepository, registry *rules.Registry, cache CacheInvalidator, logger *slog.Logger) *Materializer {
	return &Materializer{edges: edges, registry: registry, cache: cache, logger: logger}
}

// Rebuild recomputes the graph around the given SKUs: stale edges touching
// them are dropped, each SKU whose category has a matcher gets its outgoing
// edges swapped for fresh rule output, and every forward match is mirrored
// from the partner side. SKUs are processed in sorted order so collisions
// between two regenerated endpoints resolve the same way on every run.
func (m *Materializer) Rebuild(ctx context.Context, skus []string, catalog *Catalog) (*MaterializeResult, error) {
	result := &MaterializeResult{ForwardBySKU: make(map[string]int, len(skus))}
	if len(skus) == 0 {
		return result, nil
	}

	sorted := append([]string(nil), skus...)
	sort.Strings(sorted)

	if err := m.edges.DeleteEdgesTouching(ctx, sorted); err != nil {
		return nil, apperrors.SyncAborted("clear stale edges", err)
	}

	var reverses []domain.CompatibilityEdge
	written := make(map[[2]string]struct{})
	for _, sku := range sorted {
		product, ok := catalog.GetBySKU(sku)
		if !ok {
			// Gone from the catalog between diff and rebuild.
			continue
		}
		matcher, ok := m.registry.For(product.Category)
		if !ok {
			continue
		}

		forward := buildForwardEdges(&product, matcher.Match(product, catalog))
		result.ForwardBySKU[sku] = len(forward)

		// When both endpoints of a pair regenerate in the same run, the
		// first writer's forward row and its mirror carry the pair's score
		// in both directions. The later endpoint drops its own row for
		// that pair; keeping it would rescore one direction by the other
		// partner's ranking and break score symmetry.
		kept := make([]domain.CompatibilityEdge, 0, len(forward))
		for _, e := range forward {
			if !e.IsIncompatibility() {
				if _, covered := written[[2]string{e.PartnerSKU, e.BaseSKU}]; covered {
					continue
				}
			}
			kept = append(kept, e)
		}

		if err := m.edges.ReplaceEdgesFrom(ctx, sku, kept); err != nil {
			if errors.Is(err, apperrors.ErrDuplicateEdge) {
				// Another rebuild landed rows for this base mid-swap. Its
				// rows stand; the next sync converges anything missing.
				m.logger.InfoContext(ctx, "edge rebuild lost a write race", "sku", sku)
				continue
			}
			return nil, apperrors.SyncAborted("rebuild edges for "+sku, err)
		}
		for _, e := range kept {
			if !e.IsIncompatibility() {
				written[[2]string{e.BaseSKU, e.PartnerSKU}] = struct{}{}
			}
		}
		result.EdgesWritten += len(kept)

		reverses = append(reverses, mirrorEdges(&product, kept)...)
	}

	inserted, err := m.edges.BulkInsertEdges(ctx, reverses)
	if err != nil {
		return nil, apperrors.SyncAborted("insert mirrored edges", err)
	}
	result.EdgesWritten += inserted

	m.invalidateCache(ctx)

	m.logger.InfoContext(ctx, "compatibility graph rebuilt",
		"skus", len(sorted),
		"edges_written", result.EdgesWritten,
	)

	return result, nil
}

// Invalidate drops stale edges around the given SKUs without recomputing
// them, leaving regeneration to the back-fill loop. Used when a sync runs
// with deferred compatibilities.
func (m *Materializer) Invalidate(ctx context.Context, skus []string) error {
	if len(skus) == 0 {
		return nil
	}

	sorted := append([]string(nil), skus...)
	sort.Strings(sorted)

	if err := m.edges.DeleteEdgesTouching(ctx, sorted); err != nil {
		return apperrors.SyncAborted("clear stale edges", err)
	}

	m.invalidateCache(ctx)

	return nil
}

func (m *Materializer) invalidateCache(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx); err != nil {
		// Stale cache entries age out by TTL; not worth failing the run.
		m.logger.WarnContext(ctx, "lookup cache invalidation failed", "error", err)
	}
}

// buildForwardEdges flattens matcher output into stored rows. Matches to the
// same partner key collapse to the first one encountered; self references are
// dropped. Incompatibility annotations become forward-only rows carrying the
// partner category name as the partner key.
func buildForwardEdges(anchor *domain.Product, groups []rules.PartnerGroup) []domain.CompatibilityEdge {
	edges := make([]domain.CompatibilityEdge, 0)
	seen := make(map[string]struct{})

	for _, group := range groups {
		if group.IncompatibilityReason != "" {
			if _, dup := seen[group.Category]; dup {
				continue
			}
			seen[group.Category] = struct{}{}
			edges = append(edges, domain.CompatibilityEdge{
				BaseSKU:               anchor.SKU,
				PartnerSKU:            group.Category,
				PartnerCategory:       group.Category,
				Score:                 0,
				IncompatibilityReason: group.IncompatibilityReason,
			})
			continue
		}

		for _, match := range group.Partners {
			if match.SKU == anchor.SKU {
				continue
			}
			if _, dup := seen[match.SKU]; dup {
				continue
			}
			seen[match.SKU] = struct{}{}
			edges = append(edges, domain.CompatibilityEdge{
				BaseSKU:         anchor.SKU,
				PartnerSKU:      match.SKU,
				PartnerCategory: group.Category,
				Score:           maxEdgeScore - match.Rank(),
				MatchReason:     matchReason(anchor.Category),
			})
		}
	}

	return edges
}

// mirrorEdges emits the reverse direction of every real match, same score,
// reason prefixed. Incompatibility rows have no reverse.
func mirrorEdges(anchor *domain.Product, forward []domain.CompatibilityEdge) []domain.CompatibilityEdge {
	mirrors := make([]domain.CompatibilityEdge, 0, len(forward))
	for _, e := range forward {
		if e.IsIncompatibility() {
			continue
		}
		mirrors = append(mirrors, domain.CompatibilityEdge{
			BaseSKU:         e.PartnerSKU,
			PartnerSKU:      e.BaseSKU,
			PartnerCategory: anchor.Category,
			Score:           e.Score,
			MatchReason:     reverseReasonPrefix + e.MatchReason,
		})
	}
	return mirrors
}

// matchReason labels an edge with the rule set that produced it.
func matchReason(anchorCategory string) string {
	return "matched by " + anchorCategory + " rules"
}
