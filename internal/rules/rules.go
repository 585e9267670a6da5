package rules

import (
	"sort"

	"github.com/baignoire/fitmatch/internal/domain"
)

// Snapshot is a stable, read-only view of the catalog. Matchers enumerate
// candidate partners through it; implementations must return products in a
// deterministic order so ranking ties stay reproducible.
type Snapshot interface {
	ListByCategory(category string) []domain.Product
}

// PartnerMatch is one qualifying partner: the product record plus the rank
// used for ordering. The rank is internal and never serialized; compound
// door+panel matches carry the combined SKU on the embedded product.
type PartnerMatch struct {
	domain.Product
	rank int
}

// NewPartnerMatch builds a match ranked by the product's effective ranking.
func NewPartnerMatch(p domain.Product) PartnerMatch {
	return PartnerMatch{Product: p, rank: p.EffectiveRanking()}
}

// Rank returns the ordering rank (lower sorts first).
func (m PartnerMatch) Rank() int {
	return m.rank
}

// PartnerGroup is one partner category of a match result. Either Partners is
// populated, or IncompatibilityReason carries the anchor's annotation and the
// category has no partners.
type PartnerGroup struct {
	Category              string
	Partners              []PartnerMatch
	IncompatibilityReason string
}

// Matcher produces the compatible partners of one product against a catalog
// snapshot. Matchers never fail: a rule mismatch is an empty result and a
// missing category in the snapshot is skipped.
type Matcher interface {
	Match(anchor domain.Product, snap Snapshot) []PartnerGroup
}

// Registry resolves the matcher for a product category. Anchor categories
// get full matchers; partner categories get reverse matchers that evaluate
// the same pair predicates from the partner side. Categories that no rule
// references (Shower Screens, Return Panels) have no matcher and resolve by
// stored edges only.
type Registry struct {
	matchers map[string]Matcher
}

// NewRegistry builds the registry with every known matcher installed.
func NewRegistry() *Registry {
	return &Registry{
		matchers: map[string]Matcher{
			domain.CategoryShowerBases: &ShowerBaseMatcher{},
			domain.CategoryBathtubs:    &BathtubMatcher{},
			domain.CategoryShowers:     &ShowerMatcher{},
			domain.CategoryTubShowers:  &TubShowerMatcher{},
			domain.CategoryShowerDoors: &ShowerDoorReverseMatcher{},
			domain.CategoryTubDoors:    &TubDoorReverseMatcher{},
			domain.CategoryTubScreens:  &TubScreenReverseMatcher{},
			domain.CategoryEnclosures:  &EnclosureReverseMatcher{},
			domain.CategoryWalls:       &WallReverseMatcher{},
		},
	}
}

// For returns the matcher for a category, or false when the category has none.
func (r *Registry) For(category string) (Matcher, bool) {
	m, ok := r.matchers[category]
	return m, ok
}

// Has reports whether the category has a matcher.
func (r *Registry) Has(category string) bool {
	_, ok := r.matchers[category]
	return ok
}

// Categories returns every category with a matcher, sorted. The back-fill
// query is restricted to this set so matcher-less products are never
// re-selected for edge generation.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.matchers))
	for c := range r.matchers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// sortByRank orders matches ascending by rank, keeping enumeration order on
// ties.
func sortByRank(matches []PartnerMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].rank < matches[j].rank
	})
}
