package sync

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// diffField names one comparable product field and extracts its value as a
// comparable any (nil for absent optionals).
type diffField struct {
	name string
	get  func(*domain.Product) any
}

// diffFields covers every feed-controlled column. SKU is the identity and
// timestamps are store-managed, so neither is diffed.
var diffFields = []diffField{
	{"name", func(p *domain.Product) any { return p.Name }},
	{"category", func(p *domain.Product) any { return p.Category }},
	{"brand", func(p *domain.Product) any { return strVal(p.Brand) }},
	{"series", func(p *domain.Product) any { return strVal(p.Series) }},
	{"family", func(p *domain.Product) any { return strVal(p.Family) }},
	{"length", func(p *domain.Product) any { return floatVal(p.Length) }},
	{"width", func(p *domain.Product) any { return floatVal(p.Width) }},
	{"height", func(p *domain.Product) any { return floatVal(p.Height) }},
	{"nominal_dimensions", func(p *domain.Product) any { return strVal(p.NominalDimensions) }},
	{"installation", func(p *domain.Product) any { return strVal(p.Installation) }},
	{"max_door_width", func(p *domain.Product) any { return floatVal(p.MaxDoorWidth) }},
	{"max_door_height", func(p *domain.Product) any { return floatVal(p.MaxDoorHeight) }},
	{"minimum_width", func(p *domain.Product) any { return floatVal(p.MinimumWidth) }},
	{"maximum_width", func(p *domain.Product) any { return floatVal(p.MaximumWidth) }},
	{"maximum_height", func(p *domain.Product) any { return floatVal(p.MaximumHeight) }},
	{"has_return_panel", func(p *domain.Product) any { return strVal(p.HasReturnPanel) }},
	{"fits_return_panel_size", func(p *domain.Product) any { return strVal(p.FitsReturnPanelSize) }},
	{"return_panel_size", func(p *domain.Product) any { return strVal(p.ReturnPanelSize) }},
	{"door_width", func(p *domain.Product) any { return floatVal(p.DoorWidth) }},
	{"return_panel_width", func(p *domain.Product) any { return floatVal(p.ReturnPanelWidth) }},
	{"fixed_panel_width", func(p *domain.Product) any { return floatVal(p.FixedPanelWidth) }},
	{"cut_to_size", func(p *domain.Product) any { return strVal(p.CutToSize) }},
	{"glass_thickness", func(p *domain.Product) any { return strVal(p.GlassThickness) }},
	{"door_type", func(p *domain.Product) any { return strVal(p.DoorType) }},
	{"material", func(p *domain.Product) any { return strVal(p.Material) }},
	{"type", func(p *domain.Product) any { return strVal(p.Type) }},
	{"reason_doors_cant_fit", func(p *domain.Product) any { return strVal(p.ReasonDoorsCantFit) }},
	{"reason_walls_cant_fit", func(p *domain.Product) any { return strVal(p.ReasonWallsCantFit) }},
	{"ranking", func(p *domain.Product) any { return intVal(p.Ranking) }},
	{"image_url", func(p *domain.Product) any { return strVal(p.ImageURL) }},
	{"product_page_url", func(p *domain.Product) any { return strVal(p.ProductPageURL) }},
}

func strVal(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatVal(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intVal(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// diffProducts returns the per-field old/new values that differ between the
// stored row and the feed row, including individual attribute-bag keys. An
// unchanged product yields an empty map.
func diffProducts(old, new *domain.Product) map[string]domain.FieldChange {
	changes := make(map[string]domain.FieldChange)

	for _, f := range diffFields {
		before, after := f.get(old), f.get(new)
		if before != after {
			changes[f.name] = domain.FieldChange{Old: before, New: after}
		}
	}

	for key, after := range new.Attributes {
		before, ok := old.Attributes[key]
		if !ok {
			changes["attributes."+key] = domain.FieldChange{Old: nil, New: after}
			continue
		}
		if before != after {
			changes["attributes."+key] = domain.FieldChange{Old: before, New: after}
		}
	}
	for key, before := range old.Attributes {
		if _, ok := new.Attributes[key]; !ok {
			changes["attributes."+key] = domain.FieldChange{Old: before, New: nil}
		}
	}

	return changes
}
