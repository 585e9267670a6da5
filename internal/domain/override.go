package domain

// Override kinds.
const (
	OverrideWhitelist = "whitelist"
	OverrideBlacklist = "blacklist"
)

// OverridePair is one manually curated exception to the rule engine. Pairs
// are unordered: {A, B} and {B, A} are the same override.
type OverridePair struct {
	SKUX string `json:"sku_x"`
	SKUY string `json:"sku_y"`
	Kind string `json:"kind"`
}

// Matches reports whether the pair links the two given SKUs, in either order.
// All four SKUs are expected to be canonicalized already.
func (o *OverridePair) Matches(a, b string) bool {
	return (o.SKUX == a && o.SKUY == b) || (o.SKUX == b && o.SKUY == a)
}
