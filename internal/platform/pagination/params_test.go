package pagination

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"
)

var listingOptions = Options{
	DefaultLimit: 100,
	MaxLimit:     100,
	AllowedSorts: []string{"popularity", "price-low", "price-high", "rating", "discount", "name"},
	DefaultSort:  "popularity",
}

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != DefaultLimit || params.Skip != 0 || params.Sort != "" || params.PageToken != "" {
		t.Fatalf("unexpected defaults %+v", params)
	}
}

func TestParseLimitAndSkip(t *testing.T) {
	values := url.Values{"limit": {"30"}, "skip": {"60"}}
	params, err := Parse(values, listingOptions)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != 30 || params.Skip != 60 {
		t.Fatalf("expected limit 30 skip 60, got %+v", params)
	}

	values.Set("limit", "400")
	params, err = Parse(values, listingOptions)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", params.Limit)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		values url.Values
		want   error
	}{
		{"non numeric limit", url.Values{"limit": {"abc"}}, ErrInvalidLimit},
		{"zero limit", url.Values{"limit": {"0"}}, ErrInvalidLimit},
		{"negative skip", url.Values{"skip": {"-1"}}, ErrInvalidSkip},
		{"unknown sort", url.Values{"sort": {"newest"}}, ErrInvalidSort},
		{"garbage token", url.Values{"page_token": {"%%%"}}, ErrInvalidPageToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.values, listingOptions); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseSortIsCaseInsensitive(t *testing.T) {
	params, err := Parse(url.Values{"sort": {"Price-High"}}, listingOptions)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Sort != "price-high" {
		t.Fatalf("expected price-high, got %q", params.Sort)
	}
}

func TestPageTokenRoundTrip(t *testing.T) {
	first := Params{Limit: 30, Skip: 0}
	token := first.Next(30, 194)
	if token == "" {
		t.Fatalf("expected next token")
	}

	req := httptest.NewRequest("GET", "/api/v1/products?skip=5&page_token="+token, nil)
	params, err := FromRequest(req, listingOptions)
	if err != nil {
		t.Fatalf("FromRequest returned error: %v", err)
	}
	if params.Skip != 30 {
		t.Fatalf("expected token to override skip with 30, got %d", params.Skip)
	}
	if params.PageToken != token {
		t.Fatalf("expected page token to be kept")
	}

	last := Params{Limit: 30, Skip: 180}
	if next := last.Next(14, 194); next != "" {
		t.Fatalf("expected no token after last page, got %q", next)
	}
}
