package domain

import (
	"math"
	"testing"
)

func TestDiscountedPrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		price    float64
		discount float64
		want     float64
	}{
		{name: "twenty percent", price: 999, discount: 20, want: 799.2},
		{name: "zero price", price: 0, discount: 35, want: 0},
		{name: "no discount", price: 12.34, discount: 0, want: 12.34},
		{name: "negative discount", price: 50, discount: -5, want: 50},
		{name: "full discount", price: 80, discount: 100, want: 0},
		{name: "nan price", price: math.NaN(), discount: 10, want: 0},
		{name: "nan discount", price: 10, discount: math.NaN(), want: 10},
		{name: "rounding", price: 9.99, discount: 12.5, want: 8.74},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DiscountedPrice(tc.price, tc.discount); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDiscountedPriceStaysWithinBounds(t *testing.T) {
	t.Parallel()

	for price := 0.0; price <= 2500; price += 37.13 {
		for discount := 0.0; discount <= 100; discount += 3.7 {
			got := DiscountedPrice(price, discount)
			if got < 0 || got > price {
				t.Fatalf("price %v discount %v: result %v outside [0, price]", price, discount, got)
			}
		}
		if got := DiscountedPrice(price, 0); got != price {
			t.Fatalf("expected identity for zero discount, got %v for %v", got, price)
		}
	}
}

func TestSafeNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value any
		want  float64
	}{
		{name: "float", value: 4.2, want: 4.2},
		{name: "int", value: 7, want: 7},
		{name: "numeric string", value: " 19.5 ", want: 19.5},
		{name: "bad string", value: "abc", want: -1},
		{name: "nan", value: math.NaN(), want: -1},
		{name: "nil", value: nil, want: -1},
		{name: "bool", value: true, want: -1},
	}
	for _, tc := range cases {
		if got := SafeNumber(tc.value, -1); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestConvertToINR(t *testing.T) {
	t.Parallel()

	if got := ConvertToINR(9.99); got != 829 {
		t.Fatalf("expected 829, got %d", got)
	}
	if got := ConvertToINR(0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := ConvertToINR(24.1); got != 2000 {
		t.Fatalf("expected 2000, got %d", got)
	}
}

func TestFormatCategoryName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"home-decoration":    "Home Decoration",
		"smartphones":        "Smartphones",
		"mens-shirts":        "Mens Shirts",
		"":                   "Unknown Category",
		"   ":                "Unknown Category",
		"sports-accessories": "Sports Accessories",
		"3d-printers":        "3d Printers",
		"a--b":               "A  B",
		"-x":                 " X",
		"eBook-readers":      "EBook Readers",
	}
	for slug, want := range cases {
		if got := FormatCategoryName(slug); got != want {
			t.Fatalf("slug %q: expected %q, got %q", slug, want, got)
		}
	}
}

func TestValidateProducts(t *testing.T) {
	t.Parallel()

	input := []Product{
		{ID: 1, Title: "Phone", Price: 10},
		{ID: 0, Title: "No id", Price: 10},
		{ID: 2, Title: " ", Price: 10},
		{ID: 3, Title: "NaN", Price: math.NaN()},
		{ID: 4, Title: "Inf", Price: math.Inf(1)},
		{ID: 5, Title: "Free", Price: 0},
	}
	got := ValidateProducts(input)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 5 {
		t.Fatalf("unexpected validated products: %+v", got)
	}
}
