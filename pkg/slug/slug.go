// Package slug derives URL path segments from product names.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// accents folds the Latin accents that appear in vendor product and
	// series names to their ASCII base letters.
	accents = strings.NewReplacer(
		"à", "a", "â", "a", "ä", "a",
		"ç", "c",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"î", "i", "ï", "i",
		"ô", "o", "ö", "o",
		"ù", "u", "û", "u", "ü", "u",
	)
)

// Generate creates a URL-friendly slug from the given product name.
// Accented Latin characters fold to their ASCII base letters, and every
// run of other non-alphanumeric characters becomes a single hyphen.
//
// Examples:
//   - "Néo-Angle Shower Base 38 x 38" → "neo-angle-shower-base-38-x-38"
//   - "Halo Pivot Door, 44-47" → "halo-pivot-door-44-47"
func Generate(name string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
