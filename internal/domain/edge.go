package domain

import (
	"strings"
	"time"
)

// CompoundSKUSeparator joins a door SKU and its return panel SKU when a
// corner configuration only fits as a pair. Compound partners never exist as
// catalog rows of their own.
const CompoundSKUSeparator = "|"

// CompatibilityEdge is one directed row of the materialized graph. Forward
// edges point from an installation anchor to a partner; the materializer
// writes a mirrored reverse edge for every forward one so the relation can be
// read from either endpoint.
//
// An edge with a non-empty IncompatibilityReason records a known negative
// match: PartnerSKU then holds the partner category name instead of a SKU,
// and no reverse edge exists.
type CompatibilityEdge struct {
	BaseSKU               string    `json:"base_sku"`
	PartnerSKU            string    `json:"partner_sku"`
	PartnerCategory       string    `json:"partner_category"`
	Score                 int       `json:"score"`
	MatchReason           string    `json:"match_reason,omitempty"`
	IncompatibilityReason string    `json:"incompatibility_reason,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// IsIncompatibility reports whether the edge is a negative-match annotation
// rather than a real partner link.
func (e *CompatibilityEdge) IsIncompatibility() bool {
	return e.IncompatibilityReason != ""
}

// IsCompoundSKU reports whether the SKU names a door+panel pair.
func IsCompoundSKU(sku string) bool {
	return strings.Contains(sku, CompoundSKUSeparator)
}

// CompoundSKU builds the combined key for a door that only installs together
// with a return panel.
func CompoundSKU(doorSKU, panelSKU string) string {
	return doorSKU + CompoundSKUSeparator + panelSKU
}

// SplitCompoundSKU returns the component SKUs of a compound key. A plain SKU
// comes back as a single-element slice.
func SplitCompoundSKU(sku string) []string {
	return strings.Split(sku, CompoundSKUSeparator)
}
