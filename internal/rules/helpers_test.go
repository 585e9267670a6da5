package rules

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// testSnapshot backs matcher tests with a fixed category map. Slice order is
// the enumeration order, matching the feed snapshot's behavior.
type testSnapshot map[string][]domain.Product

func (s testSnapshot) ListByCategory(category string) []domain.Product {
	return s[category]
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}

// groupFor returns the group of the given category, or nil when absent.
func groupFor(groups []PartnerGroup, category string) *PartnerGroup {
	for i := range groups {
		if groups[i].Category == category {
			return &groups[i]
		}
	}
	return nil
}

// partnerSKUs flattens a group's partners to their SKUs, in order.
func partnerSKUs(g *PartnerGroup) []string {
	if g == nil {
		return nil
	}
	skus := make([]string, 0, len(g.Partners))
	for _, p := range g.Partners {
		skus = append(skus, p.SKU)
	}
	return skus
}
