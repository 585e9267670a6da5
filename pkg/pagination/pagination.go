// Package pagination extracts page/per_page query parameters for catalog
// list endpoints and translates them into SQL-friendly limit/offset values.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 100
)

// Params holds the paging window requested by a client.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page with the standard page size.
func DefaultParams() Params {
	return Params{Page: defaultPage, PerPage: defaultPerPage}
}

// FromRequest reads page and per_page from the request query string. Values
// that are missing, malformed, non-positive, or beyond the per-page cap fall
// back to the defaults, so handlers never see an unusable window.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()

	if v, ok := queryInt(q.Get("page")); ok && v > 0 {
		p.Page = v
	}
	if v, ok := queryInt(q.Get("per_page")); ok && v > 0 && v <= maxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

func queryInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
