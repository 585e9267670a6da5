package rules

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// Reverse matchers evaluate the same pair predicates as the anchor matchers
// but from the partner's side: given a door, wall, screen, or enclosure,
// they enumerate the anchors whose forward matching would include it. They
// exist so an update to a partner product materializes edges without
// re-running every anchor, and so either endpoint of a pair resolves to the
// same relation.
//
// Anchors carrying an incompatibility annotation for the partner's category
// never match, mirroring the forward suppression.

// ShowerDoorReverseMatcher resolves a shower door to the bases and showers
// that take it.
type ShowerDoorReverseMatcher struct{}

func (m *ShowerDoorReverseMatcher) Match(door domain.Product, snap Snapshot) []PartnerGroup {
	groups := make([]PartnerGroup, 0, 2)
	panels := snap.ListByCategory(domain.CategoryReturnPanels)

	bases := make([]PartnerMatch, 0)
	for _, base := range snap.ListByCategory(domain.CategoryShowerBases) {
		if reasonText(base.ReasonDoorsCantFit) != "" {
			continue
		}
		if baseDoorAlcoveFit(&base, &door) || cornerPairExists(&base, &door, panels) {
			bases = append(bases, NewPartnerMatch(base))
		}
	}
	if len(bases) > 0 {
		sortByRank(bases)
		groups = append(groups, PartnerGroup{Category: domain.CategoryShowerBases, Partners: bases})
	}

	showers := make([]PartnerMatch, 0)
	for _, shower := range snap.ListByCategory(domain.CategoryShowers) {
		if showerDoorFit(&shower, &door) {
			showers = append(showers, NewPartnerMatch(shower))
		}
	}
	if len(showers) > 0 {
		sortByRank(showers)
		groups = append(groups, PartnerGroup{Category: domain.CategoryShowers, Partners: showers})
	}

	return groups
}

// cornerPairExists reports whether any return panel completes the corner
// base and door pair. The reverse direction emits the plain anchor, never a
// compound SKU; compounds belong to the anchor-side result.
func cornerPairExists(base, door *domain.Product, panels []domain.Product) bool {
	if !baseDoorCornerEligible(base, door) {
		return false
	}
	for _, panel := range panels {
		if panelCompletesCorner(base, door, &panel) {
			return true
		}
	}
	return false
}

// TubDoorReverseMatcher resolves a tub door to the bathtubs and tub showers
// that take it.
type TubDoorReverseMatcher struct{}

func (m *TubDoorReverseMatcher) Match(door domain.Product, snap Snapshot) []PartnerGroup {
	groups := make([]PartnerGroup, 0, 2)

	tubs := make([]PartnerMatch, 0)
	for _, tub := range snap.ListByCategory(domain.CategoryBathtubs) {
		if reasonText(tub.ReasonDoorsCantFit) != "" {
			continue
		}
		if tubDoorFit(&tub, &door) {
			tubs = append(tubs, NewPartnerMatch(tub))
		}
	}
	if len(tubs) > 0 {
		sortByRank(tubs)
		groups = append(groups, PartnerGroup{Category: domain.CategoryBathtubs, Partners: tubs})
	}

	tubShowers := make([]PartnerMatch, 0)
	for _, ts := range snap.ListByCategory(domain.CategoryTubShowers) {
		if tubShowerDoorFit(&ts, &door) {
			tubShowers = append(tubShowers, NewPartnerMatch(ts))
		}
	}
	if len(tubShowers) > 0 {
		sortByRank(tubShowers)
		groups = append(groups, PartnerGroup{Category: domain.CategoryTubShowers, Partners: tubShowers})
	}

	return groups
}

// TubScreenReverseMatcher resolves a tub screen to the bathtubs that take
// it. A doors-can't-fit annotation suppresses screens forward, so it
// suppresses the reverse too.
type TubScreenReverseMatcher struct{}

func (m *TubScreenReverseMatcher) Match(screen domain.Product, snap Snapshot) []PartnerGroup {
	tubs := make([]PartnerMatch, 0)
	for _, tub := range snap.ListByCategory(domain.CategoryBathtubs) {
		if reasonText(tub.ReasonDoorsCantFit) != "" {
			continue
		}
		if tubScreenFit(&tub, &screen) {
			tubs = append(tubs, NewPartnerMatch(tub))
		}
	}

	if len(tubs) == 0 {
		return nil
	}
	sortByRank(tubs)
	return []PartnerGroup{{Category: domain.CategoryBathtubs, Partners: tubs}}
}

// EnclosureReverseMatcher resolves an enclosure to the corner bases that
// take it.
type EnclosureReverseMatcher struct{}

func (m *EnclosureReverseMatcher) Match(enc domain.Product, snap Snapshot) []PartnerGroup {
	bases := make([]PartnerMatch, 0)
	for _, base := range snap.ListByCategory(domain.CategoryShowerBases) {
		if baseEnclosureFit(&base, &enc) {
			bases = append(bases, NewPartnerMatch(base))
		}
	}

	if len(bases) == 0 {
		return nil
	}
	sortByRank(bases)
	return []PartnerGroup{{Category: domain.CategoryShowerBases, Partners: bases}}
}

// WallReverseMatcher resolves a wall to the shower bases and bathtubs that
// take it. The closest-cut selections depend on the whole wall set, so each
// anchor's wall list is recomputed and tested for membership; this keeps the
// reverse result identical to the forward one.
type WallReverseMatcher struct{}

func (m *WallReverseMatcher) Match(wall domain.Product, snap Snapshot) []PartnerGroup {
	groups := make([]PartnerGroup, 0, 2)
	walls := snap.ListByCategory(domain.CategoryWalls)

	bases := make([]PartnerMatch, 0)
	for _, base := range snap.ListByCategory(domain.CategoryShowerBases) {
		if reasonText(base.ReasonWallsCantFit) != "" {
			continue
		}
		if containsSKU(baseWallPartners(&base, walls), wall.SKU) {
			bases = append(bases, NewPartnerMatch(base))
		}
	}
	if len(bases) > 0 {
		sortByRank(bases)
		groups = append(groups, PartnerGroup{Category: domain.CategoryShowerBases, Partners: bases})
	}

	tubs := make([]PartnerMatch, 0)
	for _, tub := range snap.ListByCategory(domain.CategoryBathtubs) {
		if reasonText(tub.ReasonWallsCantFit) != "" {
			continue
		}
		if containsSKU(tubWallPartners(&tub, walls), wall.SKU) {
			tubs = append(tubs, NewPartnerMatch(tub))
		}
	}
	if len(tubs) > 0 {
		sortByRank(tubs)
		groups = append(groups, PartnerGroup{Category: domain.CategoryBathtubs, Partners: tubs})
	}

	return groups
}
