package rules

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// ShowerMatcher matches a shower against shower doors.
type ShowerMatcher struct{}

// Match produces at most one group, Shower Doors. Doors only qualify for
// alcove showers.
func (m *ShowerMatcher) Match(shower domain.Product, snap Snapshot) []PartnerGroup {
	matches := make([]PartnerMatch, 0)
	for _, door := range snap.ListByCategory(domain.CategoryShowerDoors) {
		if showerDoorFit(&shower, &door) {
			matches = append(matches, NewPartnerMatch(door))
		}
	}

	if len(matches) == 0 {
		return nil
	}
	sortByRank(matches)
	return []PartnerGroup{{Category: domain.CategoryShowerDoors, Partners: matches}}
}

// TubShowerMatcher matches a tub shower against tub doors.
type TubShowerMatcher struct{}

// Match produces at most one group, Tub Doors.
func (m *TubShowerMatcher) Match(tubShower domain.Product, snap Snapshot) []PartnerGroup {
	matches := make([]PartnerMatch, 0)
	for _, door := range snap.ListByCategory(domain.CategoryTubDoors) {
		if tubShowerDoorFit(&tubShower, &door) {
			matches = append(matches, NewPartnerMatch(door))
		}
	}

	if len(matches) == 0 {
		return nil
	}
	sortByRank(matches)
	return []PartnerGroup{{Category: domain.CategoryTubDoors, Partners: matches}}
}
