package rules

import (
	"strconv"
	"strings"

	"github.com/baignoire/fitmatch/internal/domain"
)

// norm lowercases and trims an optional string; nil becomes "".
func norm(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

// isYes reports whether an optional flag field reads as an affirmative.
func isYes(s *string) bool {
	return norm(s) == "yes"
}

// reasonText returns an incompatibility annotation with surrounding
// whitespace dropped but original casing kept, or "" when absent. Reasons
// are surfaced to callers verbatim.
func reasonText(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// seriesMatrix lists, per series, the partner series it pairs with. The
// relation is symmetric by construction.
var seriesMatrix = map[string][]string{
	"retail":       {"retail", "maax"},
	"maax":         {"retail", "maax", "collection", "professional"},
	"collection":   {"maax", "collection", "professional"},
	"professional": {"maax", "collection", "professional"},
}

// seriesCompatible applies the series matrix. Missing series on either side
// fails; identical series always pass, even for series the matrix does not
// know about.
func seriesCompatible(a, b *string) bool {
	sa, sb := norm(a), norm(b)
	if sa == "" || sb == "" {
		return false
	}
	if sa == sb {
		return true
	}
	for _, s := range seriesMatrix[sa] {
		if s == sb {
			return true
		}
	}
	return false
}

// nominalEqual compares two nominal-dimension strings such as "48 x 32" as
// token sequences. Separators x, X, ×, and * are interchangeable, whitespace
// and case are ignored, and numeric tokens match within ±0.5.
func nominalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := nominalTokens(*a), nominalTokens(*b)
	if len(ta) == 0 || len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		na, errA := strconv.ParseFloat(ta[i], 64)
		nb, errB := strconv.ParseFloat(tb[i], 64)
		if errA == nil && errB == nil {
			if diff := na - nb; diff < -0.5 || diff > 0.5 {
				return false
			}
			continue
		}
		if !strings.EqualFold(ta[i], tb[i]) {
			return false
		}
	}
	return true
}

// nominalTokens splits a dimension string on the separator characters and
// strips whitespace from each token.
func nominalTokens(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == 'x' || r == 'X' || r == '×' || r == '*'
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// installationContains reports whether the installation string mentions the
// given mode. Matching is case-insensitive so "Alcove or Corner" satisfies
// both "alcove" and "corner".
func installationContains(installation *string, mode string) bool {
	return strings.Contains(norm(installation), mode)
}

// typeContains reports whether the descriptive type field mentions the given
// phrase, case-insensitively.
func typeContains(t *string, phrase string) bool {
	return strings.Contains(norm(t), phrase)
}

// widthRangeContains reports whether the door's [minimumWidth, maximumWidth]
// range covers the anchor's opening width. Any missing operand fails.
func widthRangeContains(door *domain.Product, width *float64) bool {
	if door.MinimumWidth == nil || door.MaximumWidth == nil || width == nil {
		return false
	}
	return *door.MinimumWidth <= *width && *width <= *door.MaximumWidth
}

// maxHeightFits reports whether the door's maximum height fits under the
// anchor's door-height limit. Any missing operand fails.
func maxHeightFits(door, anchor *domain.Product) bool {
	if door.MaximumHeight == nil || anchor.MaxDoorHeight == nil {
		return false
	}
	return *door.MaximumHeight <= *anchor.MaxDoorHeight
}

// Base families whose anchors accept the generic cut-to-size wall families.
var baseCompoundFamilies = map[string]bool{
	"b3":       true,
	"finesse":  true,
	"distinct": true,
	"zone":     true,
	"olympia":  true,
	"icon":     true,
	"roka":     true,
}

// Wall families accepted by the base compound allowance.
var wallCompoundFamilies = map[string]bool{
	"utile":     true,
	"nextile":   true,
	"denso":     true,
	"versaline": true,
}

// baseWallMatch is the brand/family rule between a shower base and a wall.
// A maax-branded base only ever takes maax walls. Other bases match on a
// fixed brand pair list, same-family equality, or the compound family
// allowance.
func baseWallMatch(base, wall *domain.Product) bool {
	baseBrand, wallBrand := norm(base.Brand), norm(wall.Brand)
	if baseBrand == "maax" {
		return wallBrand == "maax"
	}
	switch {
	case baseBrand == "aker" && (wallBrand == "aker" || wallBrand == "maax"):
		return true
	case baseBrand == "neptune" && wallBrand == "neptune":
		return true
	}
	baseFamily, wallFamily := norm(base.Family), norm(wall.Family)
	if baseFamily != "" && baseFamily == wallFamily {
		return true
	}
	return baseCompoundFamilies[baseFamily] && wallCompoundFamilies[wallFamily]
}

// Wall families that pair only with the same bathtub family.
var strictTubWallFamilies = map[string]bool{
	"olio":     true,
	"vellamo":  true,
	"interflo": true,
}

// Bathtub families allowed to take Utile or Nextile walls.
var utileNextileTubFamilies = map[string]bool{
	"bosca":     true,
	"pose":      true,
	"rubix":     true,
	"exhibit":   true,
	"corinthia": true,
	"new town":  true,
}

// tubWallMatch is the family rule between a bathtub and a wall. Olio,
// Vellamo, and Interflo are strict both ways; Utile and Nextile walls are
// restricted to a fixed bathtub family set; everything else is permissive.
func tubWallMatch(tub, wall *domain.Product) bool {
	tubFamily, wallFamily := norm(tub.Family), norm(wall.Family)
	if strictTubWallFamilies[tubFamily] || strictTubWallFamilies[wallFamily] {
		return tubFamily == wallFamily
	}
	if wallFamily == "utile" || wallFamily == "nextile" {
		return utileNextileTubFamilies[tubFamily]
	}
	return true
}

// baseDoorBrandMatch is the brand rule between a base and a door-like
// partner: exact equality for Maax and Neptune, with Aker accepted against
// Maax in either direction.
func baseDoorBrandMatch(base, door *domain.Product) bool {
	bb, db := norm(base.Brand), norm(door.Brand)
	switch {
	case bb == "maax" && db == "maax":
		return true
	case bb == "neptune" && db == "neptune":
		return true
	case bb == "aker" && db == "maax":
		return true
	case bb == "maax" && db == "aker":
		return true
	}
	return false
}

// sameFamily reports whether two products share a non-empty family.
func sameFamily(a, b *domain.Product) bool {
	fa := norm(a.Family)
	return fa != "" && fa == norm(b.Family)
}
