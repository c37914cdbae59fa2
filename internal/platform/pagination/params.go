// Package pagination parses limit/skip paging, page tokens and sort keys from query strings.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is used when the client omits limit and Options leaves it unset.
	DefaultLimit = 30
	// DefaultMaxLimit caps limit when Options leaves MaxLimit unset.
	DefaultMaxLimit = 100
)

// Params is the paging window and sort key of a listing request.
type Params struct {
	Limit     int
	Skip      int
	PageToken string
	Sort      string
}

// Options control Parse for one endpoint.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	// AllowedSorts lists accepted sort keys. Empty means sort is rejected when present.
	AllowedSorts []string
	DefaultSort  string
}

var (
	ErrInvalidLimit     = errors.New("pagination: invalid limit")
	ErrInvalidSkip      = errors.New("pagination: invalid skip")
	ErrInvalidSort      = errors.New("pagination: invalid sort")
	ErrInvalidPageToken = errors.New("pagination: invalid page_token")
)

// FromRequest parses the query of r.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse reads limit, skip, page_token and sort. A page token overrides skip.
func Parse(values url.Values, opts Options) (Params, error) {
	limit, err := parseLimit(values.Get("limit"), opts)
	if err != nil {
		return Params{}, err
	}
	skip, err := parseSkip(values.Get("skip"))
	if err != nil {
		return Params{}, err
	}
	params := Params{Limit: limit, Skip: skip, Sort: opts.DefaultSort}

	if raw := strings.TrimSpace(values.Get("page_token")); raw != "" {
		cursor, err := DecodeToken(raw)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = raw
		params.Skip = cursor.Skip
	}

	if raw := strings.TrimSpace(values.Get("sort")); raw != "" {
		sort, err := parseSort(raw, opts.AllowedSorts)
		if err != nil {
			return Params{}, err
		}
		params.Sort = sort
	}
	return params, nil
}

func parseLimit(raw string, opts Options) (int, error) {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	def := opts.DefaultLimit
	if def <= 0 {
		def = DefaultLimit
	}
	def = min(def, maxLimit)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidLimit)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidLimit)
	}
	return min(value, maxLimit), nil
}

func parseSkip(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: must be a non-negative integer", ErrInvalidSkip)
	}
	return value, nil
}

func parseSort(raw string, allowed []string) (string, error) {
	key := strings.ToLower(raw)
	for _, candidate := range allowed {
		if key == candidate {
			return key, nil
		}
	}
	if len(allowed) == 0 {
		return "", fmt.Errorf("%w: sorting not supported", ErrInvalidSort)
	}
	return "", fmt.Errorf("%w: %q must be one of %s", ErrInvalidSort, raw, strings.Join(allowed, ", "))
}

// Next returns the token of the page after p, or "" when total is exhausted.
func (p Params) Next(returned, total int) string {
	next := p.Skip + returned
	if returned == 0 || next >= total {
		return ""
	}
	token, _ := EncodeToken(Cursor{Skip: next})
	return token
}
