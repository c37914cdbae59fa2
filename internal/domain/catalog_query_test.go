package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Title: "iPhone 9", Price: 549, DiscountPercentage: 12.96, Rating: 4.69, Brand: "Apple", Category: "smartphones"},
		{ID: 2, Title: "galaxy book", Price: 1499, DiscountPercentage: 4.15, Rating: 4.25, Brand: "Samsung", Category: "laptops"},
		{ID: 3, Title: "Essence Mascara", Price: 9.99, DiscountPercentage: 17.5, Rating: 2.56, Brand: "Essence", Category: "beauty"},
		{ID: 4, Title: "Apple Watch", Price: 399.5, DiscountPercentage: 0, Rating: 3.9, Brand: "Apple", Category: "smartphones"},
		{ID: 5, Title: "Bowl", Price: 12, DiscountPercentage: 22, Rating: 4.8, Brand: "", Category: "kitchen-accessories"},
	}
}

func ids(products []Product) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

func TestFilterProducts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		filter ProductFilter
		want   []int
	}{
		{name: "no predicates", filter: ProductFilter{}, want: []int{1, 2, 3, 4, 5}},
		{name: "inclusive price range", filter: ProductFilter{MinPrice: floatPtr(12), MaxPrice: floatPtr(549)}, want: []int{1, 4, 5}},
		{name: "brand", filter: ProductFilter{Brands: []string{"Apple"}}, want: []int{1, 4}},
		{name: "category", filter: ProductFilter{Categories: []string{"beauty", "laptops"}}, want: []int{2, 3}},
		{name: "rating floor", filter: ProductFilter{MinRating: 4}, want: []int{1, 2, 5}},
		{name: "conjunctive", filter: ProductFilter{Brands: []string{"Apple"}, MinRating: 4}, want: []int{1}},
		{name: "nothing matches", filter: ProductFilter{Brands: []string{"Nokia"}}, want: []int{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FilterProducts(sampleProducts(), tc.filter)
			if diff := cmp.Diff(tc.want, ids(got)); diff != "" {
				t.Fatalf("unexpected ids (-want +got):\n%s", diff)
			}
			again := FilterProducts(got, tc.filter)
			if diff := cmp.Diff(ids(got), ids(again)); diff != "" {
				t.Fatalf("filter not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestFilterProductsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	input := sampleProducts()
	before := ids(input)
	_ = FilterProducts(input, ProductFilter{Brands: []string{"Apple"}})
	_ = SortProducts(input, SortPriceHigh)
	if diff := cmp.Diff(before, ids(input)); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestSortProducts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key  ProductSort
		want []int
	}{
		{key: SortPopularity, want: []int{1, 2, 3, 4, 5}},
		{key: SortRelevance, want: []int{1, 2, 3, 4, 5}},
		{key: SortPriceLow, want: []int{3, 5, 4, 1, 2}},
		{key: SortPriceHigh, want: []int{2, 1, 4, 5, 3}},
		{key: SortRating, want: []int{5, 1, 2, 4, 3}},
		{key: SortDiscount, want: []int{5, 3, 1, 2, 4}},
		{key: SortName, want: []int{4, 5, 3, 2, 1}},
		{key: ProductSort("bogus"), want: []int{1, 2, 3, 4, 5}},
	}
	for _, tc := range cases {
		got := SortProducts(sampleProducts(), tc.key)
		if diff := cmp.Diff(tc.want, ids(got)); diff != "" {
			t.Fatalf("sort %q (-want +got):\n%s", tc.key, diff)
		}
	}
}

func TestSortPriceLowReversesPriceHigh(t *testing.T) {
	t.Parallel()

	low := ids(SortProducts(sampleProducts(), SortPriceLow))
	high := ids(SortProducts(sampleProducts(), SortPriceHigh))
	for i := range low {
		if low[i] != high[len(high)-1-i] {
			t.Fatalf("expected price-low to reverse price-high, got %v and %v", low, high)
		}
	}
}

func TestParseProductSort(t *testing.T) {
	t.Parallel()

	if got := ParseProductSort(" Price-Low ", SortPopularity); got != SortPriceLow {
		t.Fatalf("expected price-low, got %q", got)
	}
	if got := ParseProductSort("cheapest", SortRelevance); got != SortRelevance {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestActiveFilterCount(t *testing.T) {
	t.Parallel()

	filter := ProductFilter{Brands: []string{"Apple", "Samsung"}, Categories: []string{"laptops"}, MinRating: 3, MinPrice: floatPtr(10)}
	if got := ActiveFilterCount(filter); got != 4 {
		t.Fatalf("expected 4 active filters, got %d", got)
	}
	if got := ActiveFilterCount(ProductFilter{}); got != 0 {
		t.Fatalf("expected 0 active filters, got %d", got)
	}
}

func TestBuildFacets(t *testing.T) {
	t.Parallel()

	facets := BuildFacets(sampleProducts())
	want := Facets{
		Brands:     []string{"Apple", "Samsung", "Essence"},
		Categories: []string{"smartphones", "laptops", "beauty", "kitchen-accessories"},
		MaxPrice:   1499,
	}
	if diff := cmp.Diff(want, facets); diff != "" {
		t.Fatalf("unexpected facets (-want +got):\n%s", diff)
	}

	empty := BuildFacets(nil)
	if empty.MaxPrice != 0 || len(empty.Brands) != 0 {
		t.Fatalf("expected empty facets, got %+v", empty)
	}
}

func TestTopN(t *testing.T) {
	t.Parallel()

	got := TopN(sampleProducts(), SortRating, 2)
	if diff := cmp.Diff([]int{5, 1}, ids(got)); diff != "" {
		t.Fatalf("unexpected top products (-want +got):\n%s", diff)
	}
}
