package rules

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// ShowerBaseMatcher matches a shower base against shower doors (alone or
// combined with a return panel), enclosures, and walls.
type ShowerBaseMatcher struct{}

// Match produces the base's partner groups in the order Shower Doors,
// Enclosures, Walls. An incompatibility annotation on the base replaces the
// corresponding group's partners with the annotation text; empty groups are
// omitted.
func (m *ShowerBaseMatcher) Match(base domain.Product, snap Snapshot) []PartnerGroup {
	groups := make([]PartnerGroup, 0, 3)

	if reason := reasonText(base.ReasonDoorsCantFit); reason != "" {
		groups = append(groups, PartnerGroup{Category: domain.CategoryShowerDoors, IncompatibilityReason: reason})
	} else if doors := m.matchDoors(base, snap); len(doors) > 0 {
		groups = append(groups, PartnerGroup{Category: domain.CategoryShowerDoors, Partners: doors})
	}

	if enclosures := m.matchEnclosures(base, snap); len(enclosures) > 0 {
		groups = append(groups, PartnerGroup{Category: domain.CategoryEnclosures, Partners: enclosures})
	}

	if reason := reasonText(base.ReasonWallsCantFit); reason != "" {
		groups = append(groups, PartnerGroup{Category: domain.CategoryWalls, IncompatibilityReason: reason})
	} else if walls := m.matchWalls(base, snap); len(walls) > 0 {
		groups = append(groups, PartnerGroup{Category: domain.CategoryWalls, Partners: walls})
	}

	return groups
}

// matchDoors collects alcove doors and, for corner bases, corner doors
// completed by a return panel. A door qualifying through a panel is emitted
// once per qualifying panel, under the combined door|panel SKU.
func (m *ShowerBaseMatcher) matchDoors(base domain.Product, snap Snapshot) []PartnerMatch {
	matches := make([]PartnerMatch, 0)
	panels := snap.ListByCategory(domain.CategoryReturnPanels)

	for _, door := range snap.ListByCategory(domain.CategoryShowerDoors) {
		if baseDoorAlcoveFit(&base, &door) {
			matches = append(matches, NewPartnerMatch(door))
		}
		if !baseDoorCornerEligible(&base, &door) {
			continue
		}
		for _, panel := range panels {
			if !panelCompletesCorner(&base, &door, &panel) {
				continue
			}
			combined := door
			combined.SKU = domain.CompoundSKU(door.SKU, panel.SKU)
			matches = append(matches, NewPartnerMatch(combined))
		}
	}

	sortByRank(matches)
	return matches
}

// matchEnclosures collects enclosures for corner bases.
func (m *ShowerBaseMatcher) matchEnclosures(base domain.Product, snap Snapshot) []PartnerMatch {
	if !installationContains(base.Installation, "corner") {
		return nil
	}

	matches := make([]PartnerMatch, 0)
	for _, enc := range snap.ListByCategory(domain.CategoryEnclosures) {
		if baseEnclosureFit(&base, &enc) {
			matches = append(matches, NewPartnerMatch(enc))
		}
	}

	sortByRank(matches)
	return matches
}

// matchWalls collects nominal-size walls followed by the closest
// cut-to-size candidates.
func (m *ShowerBaseMatcher) matchWalls(base domain.Product, snap Snapshot) []PartnerMatch {
	walls := baseWallPartners(&base, snap.ListByCategory(domain.CategoryWalls))

	matches := make([]PartnerMatch, 0, len(walls))
	for _, wall := range walls {
		matches = append(matches, NewPartnerMatch(wall))
	}

	sortByRank(matches)
	return matches
}
