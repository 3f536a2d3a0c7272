package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is used when the caller supplies no limit or a
	// non-positive one.
	DefaultLimit = 50
)

// Params holds skip/limit pagination extracted from a query string.
type Params struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// DefaultParams returns the defaults: first DefaultLimit records.
func DefaultParams() Params {
	return Params{Skip: 0, Limit: DefaultLimit}
}

// FromRequest extracts skip/limit from the request. Negative or
// unparseable values fall back to the defaults; a zero or negative
// limit means DefaultLimit.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if v := r.URL.Query().Get("skip"); v != "" {
		if skip, err := strconv.Atoi(v); err == nil && skip > 0 {
			p.Skip = skip
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			p.Limit = limit
		}
	}

	return p
}
