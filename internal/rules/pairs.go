package rules

import (
	"github.com/baignoire/fitmatch/internal/domain"
)

// Pair predicates shared by the forward matchers and their reverse
// counterparts. Keeping both directions on the same functions is what makes
// a lookup from either endpoint agree.

// baseDoorAlcoveFit decides whether a shower door fits a base in an alcove
// installation: both sides install in an alcove, the door's width range
// covers the base's opening, and the series pair.
func baseDoorAlcoveFit(base, door *domain.Product) bool {
	return installationContains(base.Installation, "alcove") &&
		installationContains(door.Installation, "alcove") &&
		widthRangeContains(door, base.MaxDoorWidth) &&
		seriesCompatible(base.Series, door.Series)
}

// baseDoorCornerEligible decides whether a corner door is a candidate for a
// corner base, before return panel pairing.
func baseDoorCornerEligible(base, door *domain.Product) bool {
	return installationContains(base.Installation, "corner") &&
		installationContains(door.Installation, "corner") &&
		isYes(door.HasReturnPanel) &&
		widthRangeContains(door, base.MaxDoorWidth) &&
		seriesCompatible(base.Series, door.Series)
}

// panelCompletesCorner decides whether a return panel completes a corner
// base and door pair: the panel's size equals the size the base takes and
// the panel shares the door's family.
func panelCompletesCorner(base, door, panel *domain.Product) bool {
	size := norm(base.FitsReturnPanelSize)
	return size != "" && norm(panel.ReturnPanelSize) == size && sameFamily(door, panel)
}

// baseEnclosureFit decides whether an enclosure fits a corner base: series
// and brand pair, and either the nominal dimensions agree or the base's
// footprint covers the enclosure panels with at most 2 inches of slack per
// side.
func baseEnclosureFit(base, enc *domain.Product) bool {
	if !installationContains(base.Installation, "corner") {
		return false
	}
	if !seriesCompatible(base.Series, enc.Series) || !baseDoorBrandMatch(base, enc) {
		return false
	}
	return nominalEqual(base.NominalDimensions, enc.NominalDimensions) || enclosurePanelsFit(base, enc)
}

// enclosurePanelsFit checks the dimensional window: the base must be at
// least as large as each enclosure panel and exceed it by no more than 2
// inches.
func enclosurePanelsFit(base, enc *domain.Product) bool {
	if base.Length == nil || base.Width == nil || enc.DoorWidth == nil || enc.ReturnPanelWidth == nil {
		return false
	}
	lengthSlack := *base.Length - *enc.DoorWidth
	widthSlack := *base.Width - *enc.ReturnPanelWidth
	return lengthSlack >= 0 && lengthSlack <= 2 && widthSlack >= 0 && widthSlack <= 2
}

// baseWallEligible gates a wall for a shower base: the wall's type must name
// a shower configuration the base installs in, the series pair, and the
// brand/family rule holds. Dimensions are checked separately.
func baseWallEligible(base, wall *domain.Product) bool {
	alcoveOK := installationContains(base.Installation, "alcove") && typeContains(wall.Type, "alcove shower")
	cornerOK := installationContains(base.Installation, "corner") && typeContains(wall.Type, "corner shower")
	if !alcoveOK && !cornerOK {
		return false
	}
	return seriesCompatible(base.Series, wall.Series) && baseWallMatch(base, wall)
}

// baseWallPartners returns the walls a shower base takes, in result order:
// exact nominal matches first, then the closest cut-to-size candidates.
// The closest-cut selection needs the whole wall set, so reverse matching
// re-runs this per anchor and tests membership.
func baseWallPartners(base *domain.Product, walls []domain.Product) []domain.Product {
	nominal := make([]domain.Product, 0)
	cuts := make([]domain.Product, 0)
	for _, wall := range walls {
		if !baseWallEligible(base, &wall) {
			continue
		}
		if !isYes(wall.CutToSize) {
			if nominalEqual(base.NominalDimensions, wall.NominalDimensions) {
				nominal = append(nominal, wall)
			}
			continue
		}
		if cutCoversBase(base, &wall) {
			cuts = append(cuts, wall)
		}
	}
	return append(nominal, closestCutsLexicographic(cuts)...)
}

// cutCoversBase checks the cut-to-size window for bases: the wall must cover
// the base in both dimensions with at most 3 inches to trim per dimension.
func cutCoversBase(base, wall *domain.Product) bool {
	if base.Length == nil || base.Width == nil || wall.Length == nil || wall.Width == nil {
		return false
	}
	return *wall.Length >= *base.Length && *wall.Length <= *base.Length+3 &&
		*wall.Width >= *base.Width && *wall.Width <= *base.Width+3
}

// closestCutsLexicographic keeps only the cut candidates at minimum
// (length, width), compared lexicographically: smallest length wins, width
// breaks length ties. Exact ties all survive.
func closestCutsLexicographic(cuts []domain.Product) []domain.Product {
	if len(cuts) == 0 {
		return cuts
	}
	best := cuts[0]
	for _, w := range cuts[1:] {
		if *w.Length < *best.Length || (*w.Length == *best.Length && *w.Width < *best.Width) {
			best = w
		}
	}
	kept := make([]domain.Product, 0, 1)
	for _, w := range cuts {
		if *w.Length == *best.Length && *w.Width == *best.Width {
			kept = append(kept, w)
		}
	}
	return kept
}

// tubDoorFit decides whether a tub door fits a bathtub: the door installs in
// an alcove and its width range covers the tub's opening. Series is
// deliberately not checked on the bathtub side.
func tubDoorFit(tub, door *domain.Product) bool {
	return installationContains(door.Installation, "alcove") &&
		widthRangeContains(door, tub.MaxDoorWidth)
}

// tubScreenFit decides whether a tub screen fits a bathtub: the screen
// installs in an alcove and the opening left of the fixed panel exceeds 22
// inches, strictly.
func tubScreenFit(tub, screen *domain.Product) bool {
	if !installationContains(screen.Installation, "alcove") {
		return false
	}
	if tub.MaxDoorWidth == nil || screen.FixedPanelWidth == nil {
		return false
	}
	return *tub.MaxDoorWidth-*screen.FixedPanelWidth > 22
}

// tubWallEligible gates a wall for a bathtub: the wall's type names a tub
// configuration and the family rule holds. Series is deliberately not
// checked on the bathtub side.
func tubWallEligible(tub, wall *domain.Product) bool {
	return typeContains(wall.Type, "tub") && tubWallMatch(tub, wall)
}

// tubWallPartners returns the walls a bathtub takes, in result order: exact
// nominal matches first, then per-family closest cut-to-size candidates.
func tubWallPartners(tub *domain.Product, walls []domain.Product) []domain.Product {
	nominal := make([]domain.Product, 0)
	cuts := make([]domain.Product, 0)
	for _, wall := range walls {
		if !tubWallEligible(tub, &wall) {
			continue
		}
		if !isYes(wall.CutToSize) {
			if nominalEqual(tub.NominalDimensions, wall.NominalDimensions) {
				nominal = append(nominal, wall)
			}
			continue
		}
		if cutCoversTub(tub, &wall) {
			cuts = append(cuts, wall)
		}
	}
	return append(nominal, closestCutsPerFamily(tub, cuts)...)
}

// cutCoversTub checks the cut-to-size qualification for bathtubs: the wall
// must cover the tub in both dimensions. No upper trim bound applies; the
// per-family closest-cut selection bounds the excess instead.
func cutCoversTub(tub, wall *domain.Product) bool {
	if tub.Length == nil || tub.Width == nil || wall.Length == nil || wall.Width == nil {
		return false
	}
	return *wall.Length >= *tub.Length && *wall.Width >= *tub.Width
}

// closestCutsPerFamily groups cut candidates by wall family and keeps, per
// family, the walls at minimum Manhattan distance from the tub's dimensions.
// Distance ties within a family all survive.
func closestCutsPerFamily(tub *domain.Product, cuts []domain.Product) []domain.Product {
	if len(cuts) == 0 {
		return cuts
	}
	bestByFamily := make(map[string]float64, len(cuts))
	for _, w := range cuts {
		d := manhattanExcess(tub, &w)
		family := norm(w.Family)
		if cur, ok := bestByFamily[family]; !ok || d < cur {
			bestByFamily[family] = d
		}
	}
	kept := make([]domain.Product, 0, len(cuts))
	for _, w := range cuts {
		if manhattanExcess(tub, &w) == bestByFamily[norm(w.Family)] {
			kept = append(kept, w)
		}
	}
	return kept
}

// manhattanExcess measures how much a qualifying wall exceeds the tub. Both
// terms are non-negative because cutCoversTub already held.
func manhattanExcess(tub, wall *domain.Product) float64 {
	return (*wall.Length - *tub.Length) + (*wall.Width - *tub.Width)
}

// showerDoorFit decides whether a shower door fits a shower: the shower
// installs in an alcove, the door is no taller than the shower's door
// height limit, its width range covers the opening, and the series pair.
func showerDoorFit(shower, door *domain.Product) bool {
	return installationContains(shower.Installation, "alcove") &&
		maxHeightFits(door, shower) &&
		widthRangeContains(door, shower.MaxDoorWidth) &&
		seriesCompatible(shower.Series, door.Series)
}

// tubShowerDoorFit decides whether a tub door fits a tub shower: height and
// width limits plus the series matrix. No installation gate applies.
func tubShowerDoorFit(tubShower, door *domain.Product) bool {
	return widthRangeContains(door, tubShower.MaxDoorWidth) &&
		maxHeightFits(door, tubShower) &&
		seriesCompatible(tubShower.Series, door.Series)
}

// containsSKU reports whether any product in the list carries the SKU.
func containsSKU(products []domain.Product, sku string) bool {
	for i := range products {
		if products[i].SKU == sku {
			return true
		}
	}
	return false
}
