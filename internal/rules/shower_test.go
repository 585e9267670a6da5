package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baignoire/fitmatch/internal/domain"
)

func alcoveShower(sku string) domain.Product {
	return domain.Product{
		SKU:           sku,
		Category:      domain.CategoryShowers,
		Series:        strPtr("MAAX"),
		Installation:  strPtr("Alcove"),
		MaxDoorWidth:  floatPtr(45),
		MaxDoorHeight: floatPtr(76),
	}
}

func showerDoor(sku string, height float64) domain.Product {
	return domain.Product{
		SKU:           sku,
		Category:      domain.CategoryShowerDoors,
		Series:        strPtr("Collection"),
		Installation:  strPtr("Alcove"),
		MinimumWidth:  floatPtr(42),
		MaximumWidth:  floatPtr(48),
		MaximumHeight: floatPtr(height),
	}
}

func tubShower(sku string) domain.Product {
	return domain.Product{
		SKU:           sku,
		Category:      domain.CategoryTubShowers,
		Series:        strPtr("MAAX"),
		MaxDoorWidth:  floatPtr(58),
		MaxDoorHeight: floatPtr(60),
	}
}

// ============================================================================
// Shower Tests
// ============================================================================

func TestShower_DoorMatch(t *testing.T) {
	shower := alcoveShower("S1")
	snap := testSnapshot{domain.CategoryShowerDoors: {showerDoor("SD1", 74)}}

	groups := (&ShowerMatcher{}).Match(shower, snap)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.CategoryShowerDoors, groups[0].Category)
	assert.Equal(t, []string{"SD1"}, partnerSKUs(&groups[0]))
}

func TestShower_RequiresAlcoveInstallation(t *testing.T) {
	shower := alcoveShower("S1")
	shower.Installation = strPtr("Corner")
	snap := testSnapshot{domain.CategoryShowerDoors: {showerDoor("SD1", 74)}}

	assert.Empty(t, (&ShowerMatcher{}).Match(shower, snap))
}

func TestShower_DoorHeightBoundary(t *testing.T) {
	shower := alcoveShower("S1") // maxDoorHeight 76

	tests := []struct {
		name   string
		height float64
		want   bool
	}{
		{"door shorter than limit", 74, true},
		{"door exactly at limit", 76, true},
		{"door taller than limit", 76.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot{domain.CategoryShowerDoors: {showerDoor("SD1", tt.height)}}
			groups := (&ShowerMatcher{}).Match(shower, snap)
			if tt.want {
				require.Len(t, groups, 1)
				assert.Equal(t, []string{"SD1"}, partnerSKUs(&groups[0]))
			} else {
				assert.Empty(t, groups)
			}
		})
	}
}

func TestShower_DoorMissingHeightFails(t *testing.T) {
	shower := alcoveShower("S1")
	door := showerDoor("SD1", 74)
	door.MaximumHeight = nil
	snap := testSnapshot{domain.CategoryShowerDoors: {door}}

	assert.Empty(t, (&ShowerMatcher{}).Match(shower, snap))
}

func TestShower_DoorWidthOutOfRange(t *testing.T) {
	shower := alcoveShower("S1")
	shower.MaxDoorWidth = floatPtr(41.99)
	snap := testSnapshot{domain.CategoryShowerDoors: {showerDoor("SD1", 74)}}

	assert.Empty(t, (&ShowerMatcher{}).Match(shower, snap))
}

func TestShower_DoorSeriesMismatch(t *testing.T) {
	shower := alcoveShower("S1")
	shower.Series = strPtr("Retail")
	snap := testSnapshot{domain.CategoryShowerDoors: {showerDoor("SD1", 74)}} // Collection

	assert.Empty(t, (&ShowerMatcher{}).Match(shower, snap))
}

func TestShower_DoorRankingOrder(t *testing.T) {
	shower := alcoveShower("S1")
	first := showerDoor("SD-FIRST", 74)
	first.Ranking = intPtr(5)
	last := showerDoor("SD-LAST", 74)
	snap := testSnapshot{domain.CategoryShowerDoors: {last, first}}

	groups := (&ShowerMatcher{}).Match(shower, snap)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"SD-FIRST", "SD-LAST"}, partnerSKUs(&groups[0]))
}

// ============================================================================
// Tub Shower Tests
// ============================================================================

func TestTubShower_DoorMatch(t *testing.T) {
	ts := tubShower("TS1")
	door := domain.Product{
		SKU:           "TD1",
		Category:      domain.CategoryTubDoors,
		Series:        strPtr("MAAX"),
		MinimumWidth:  floatPtr(55),
		MaximumWidth:  floatPtr(60),
		MaximumHeight: floatPtr(58),
	}
	snap := testSnapshot{domain.CategoryTubDoors: {door}}

	groups := (&TubShowerMatcher{}).Match(ts, snap)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.CategoryTubDoors, groups[0].Category)
	assert.Equal(t, []string{"TD1"}, partnerSKUs(&groups[0]))
}

func TestTubShower_NoInstallationGate(t *testing.T) {
	// Unlike showers, a tub shower matches regardless of its installation
	// string, including when it is absent.
	ts := tubShower("TS1")
	ts.Installation = strPtr("Corner")
	door := domain.Product{
		SKU:           "TD1",
		Category:      domain.CategoryTubDoors,
		Series:        strPtr("MAAX"),
		Installation:  strPtr("Corner"),
		MinimumWidth:  floatPtr(55),
		MaximumWidth:  floatPtr(60),
		MaximumHeight: floatPtr(58),
	}
	snap := testSnapshot{domain.CategoryTubDoors: {door}}

	groups := (&TubShowerMatcher{}).Match(ts, snap)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"TD1"}, partnerSKUs(&groups[0]))
}

func TestTubShower_DoorHeightAndSeriesEnforced(t *testing.T) {
	ts := tubShower("TS1") // maxDoorHeight 60, MAAX

	tall := domain.Product{
		SKU:           "TD-TALL",
		Category:      domain.CategoryTubDoors,
		Series:        strPtr("MAAX"),
		MinimumWidth:  floatPtr(55),
		MaximumWidth:  floatPtr(60),
		MaximumHeight: floatPtr(60.5),
	}
	snap := testSnapshot{domain.CategoryTubDoors: {tall}}
	assert.Empty(t, (&TubShowerMatcher{}).Match(ts, snap))

	ts.Series = strPtr("Retail")
	door := domain.Product{
		SKU:           "TD1",
		Category:      domain.CategoryTubDoors,
		Series:        strPtr("Professional"),
		MinimumWidth:  floatPtr(55),
		MaximumWidth:  floatPtr(60),
		MaximumHeight: floatPtr(58),
	}
	snap = testSnapshot{domain.CategoryTubDoors: {door}}
	assert.Empty(t, (&TubShowerMatcher{}).Match(ts, snap))
}
