package domain

import (
	"strings"
	"time"
)

// Product categories as they appear on the vendor feed sheets.
const (
	CategoryShowerBases   = "Shower Bases"
	CategoryBathtubs      = "Bathtubs"
	CategoryShowers       = "Showers"
	CategoryTubShowers    = "Tub Showers"
	CategoryShowerDoors   = "Shower Doors"
	CategoryTubDoors      = "Tub Doors"
	CategoryShowerScreens = "Shower Screens"
	CategoryTubScreens    = "Tub Screens"
	CategoryWalls         = "Walls"
	CategoryReturnPanels  = "Return Panels"
	CategoryEnclosures    = "Enclosures"
)

// DefaultRanking orders products that carry no explicit ranking after every
// ranked product in the same category.
const DefaultRanking = 999

// Product is one catalog row. Optional attributes are pointers so an absent
// feed cell is distinguishable from a zero value.
type Product struct {
	SKU                 string            `json:"sku"`
	Name                string            `json:"name"`
	Category            string            `json:"category"`
	Brand               *string           `json:"brand,omitempty"`
	Series              *string           `json:"series,omitempty"`
	Family              *string           `json:"family,omitempty"`
	Length              *float64          `json:"length,omitempty"`
	Width               *float64          `json:"width,omitempty"`
	Height              *float64          `json:"height,omitempty"`
	NominalDimensions   *string           `json:"nominal_dimensions,omitempty"`
	Installation        *string           `json:"installation,omitempty"`
	MaxDoorWidth        *float64          `json:"max_door_width,omitempty"`
	MaxDoorHeight       *float64          `json:"max_door_height,omitempty"`
	MinimumWidth        *float64          `json:"minimum_width,omitempty"`
	MaximumWidth        *float64          `json:"maximum_width,omitempty"`
	MaximumHeight       *float64          `json:"maximum_height,omitempty"`
	HasReturnPanel      *string           `json:"has_return_panel,omitempty"`
	FitsReturnPanelSize *string           `json:"fits_return_panel_size,omitempty"`
	ReturnPanelSize     *string           `json:"return_panel_size,omitempty"`
	DoorWidth           *float64          `json:"door_width,omitempty"`
	ReturnPanelWidth    *float64          `json:"return_panel_width,omitempty"`
	FixedPanelWidth     *float64          `json:"fixed_panel_width,omitempty"`
	CutToSize           *string           `json:"cut_to_size,omitempty"`
	GlassThickness      *string           `json:"glass_thickness,omitempty"`
	DoorType            *string           `json:"door_type,omitempty"`
	Material            *string           `json:"material,omitempty"`
	Type                *string           `json:"type,omitempty"`
	ReasonDoorsCantFit  *string           `json:"reason_doors_cant_fit,omitempty"`
	ReasonWallsCantFit  *string           `json:"reason_walls_cant_fit,omitempty"`
	Ranking             *int              `json:"ranking,omitempty"`
	ImageURL            *string           `json:"image_url,omitempty"`
	ProductPageURL      *string           `json:"product_page_url,omitempty"`
	Attributes          map[string]string `json:"attributes,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// CanonicalSKU normalizes a raw SKU for storage and comparison: SKUs are
// case-insensitive, canonicalized upper-case, surrounding whitespace dropped.
func CanonicalSKU(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// EffectiveRanking returns the product's ranking, or DefaultRanking when the
// feed carried none. Lower values sort first.
func (p *Product) EffectiveRanking() int {
	if p.Ranking == nil {
		return DefaultRanking
	}
	return *p.Ranking
}

// IsAnchor reports whether the product belongs to one of the four categories
// the rule engine matches from.
func (p *Product) IsAnchor() bool {
	return IsAnchorCategory(p.Category)
}

// ValidCategories returns every recognized category, in feed sheet order.
func ValidCategories() []string {
	return []string{
		CategoryShowerBases,
		CategoryBathtubs,
		CategoryShowers,
		CategoryTubShowers,
		CategoryShowerDoors,
		CategoryTubDoors,
		CategoryShowerScreens,
		CategoryTubScreens,
		CategoryWalls,
		CategoryReturnPanels,
		CategoryEnclosures,
	}
}

// IsValidCategory checks whether the given category string is recognized.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// AnchorCategories returns the categories whose products act as installation
// anchors: matching always starts from a base, bathtub, shower, or tub shower.
func AnchorCategories() []string {
	return []string{CategoryShowerBases, CategoryBathtubs, CategoryShowers, CategoryTubShowers}
}

// IsAnchorCategory checks whether the category is one of the four anchor kinds.
func IsAnchorCategory(category string) bool {
	for _, c := range AnchorCategories() {
		if c == category {
			return true
		}
	}
	return false
}
