package rules

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// BathtubMatcher matches a bathtub against tub doors, tub screens, and
// walls. The bathtub rules deliberately skip the series matrix on every
// partner category.
type BathtubMatcher struct{}

// Match produces the tub's partner groups in the fixed order Tub Doors,
// Tub Screens, Walls, omitting empty groups. A doors-can't-fit annotation
// also suppresses the Tub Screens group entirely.
func (m *BathtubMatcher) Match(tub domain.Product, snap Snapshot) []PartnerGroup {
	groups := make([]PartnerGroup, 0, 3)

	doorsReason := reasonText(tub.ReasonDoorsCantFit)
	if doorsReason != "" {
		groups = append(groups, PartnerGroup{Category: domain.CategoryTubDoors, IncompatibilityReason: doorsReason})
	} else if doors := m.matchDoors(tub, snap); len(doors) > 0 {
		groups = append(groups, PartnerGroup{Category: domain.CategoryTubDoors, Partners: doors})
	}

	if doorsReason == "" {
		if screens := m.matchScreens(tub, snap); len(screens) > 0 {
			groups = append(groups, PartnerGroup{Category: domain.CategoryTubScreens, Partners: screens})
		}
	}

	if reason := reasonText(tub.ReasonWallsCantFit); reason != "" {
		groups = append(groups, PartnerGroup{Category: domain.CategoryWalls, IncompatibilityReason: reason})
	} else if walls := m.matchWalls(tub, snap); len(walls) > 0 {
		groups = append(groups, PartnerGroup{Category: domain.CategoryWalls, Partners: walls})
	}

	return groups
}

func (m *BathtubMatcher) matchDoors(tub domain.Product, snap Snapshot) []PartnerMatch {
	matches := make([]PartnerMatch, 0)
	for _, door := range snap.ListByCategory(domain.CategoryTubDoors) {
		if tubDoorFit(&tub, &door) {
			matches = append(matches, NewPartnerMatch(door))
		}
	}

	sortByRank(matches)
	return matches
}

func (m *BathtubMatcher) matchScreens(tub domain.Product, snap Snapshot) []PartnerMatch {
	matches := make([]PartnerMatch, 0)
	for _, screen := range snap.ListByCategory(domain.CategoryTubScreens) {
		if tubScreenFit(&tub, &screen) {
			matches = append(matches, NewPartnerMatch(screen))
		}
	}

	sortByRank(matches)
	return matches
}

// matchWalls collects nominal-size walls followed by the per-family closest
// cut-to-size candidates.
func (m *BathtubMatcher) matchWalls(tub domain.Product, snap Snapshot) []PartnerMatch {
	walls := tubWallPartners(&tub, snap.ListByCategory(domain.CategoryWalls))

	matches := make([]PartnerMatch, 0, len(walls))
	for _, wall := range walls {
		matches = append(matches, NewPartnerMatch(wall))
	}

	sortByRank(matches)
	return matches
}
