package domain

// LookupResult is the full answer to a compatibility query: the product
// itself plus its partners grouped by category. Categories the product is
// known to be incompatible with appear both as reason-only groups and in the
// IncompatibilityReasons map.
type LookupResult struct {
	Product                *Product          `json:"product"`
	Compatibles            []CompatibleGroup `json:"compatibles"`
	IncompatibilityReasons map[string]string `json:"incompatibility_reasons,omitempty"`
}

// CompatibleGroup is one partner category of a lookup result. Either
// Products is populated, or IncompatibilityReason explains why the category
// has none.
type CompatibleGroup struct {
	Category              string    `json:"category"`
	Products              []Product `json:"products,omitempty"`
	IncompatibilityReason string    `json:"incompatibility_reason,omitempty"`
}
