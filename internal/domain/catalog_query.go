package domain

import (
	"math"
	"slices"
	"sort"
	"strings"
)

// ProductFilter holds conjunctive listing predicates. Nil bounds and empty sets are not applied.
type ProductFilter struct {
	MinPrice   *float64
	MaxPrice   *float64
	Brands     []string
	Categories []string
	MinRating  float64
}

// ProductSort names an ordering for product listings.
type ProductSort string

const (
	SortPopularity ProductSort = "popularity"
	SortRelevance  ProductSort = "relevance"
	SortPriceLow   ProductSort = "price-low"
	SortPriceHigh  ProductSort = "price-high"
	SortRating     ProductSort = "rating"
	SortDiscount   ProductSort = "discount"
	SortName       ProductSort = "name"
)

// RatingFilterOptions are the minimum ratings offered to clients.
var RatingFilterOptions = []int{4, 3, 2, 1}

// ParseProductSort resolves raw into a known sort key, returning fallback for unknown input.
func ParseProductSort(raw string, fallback ProductSort) ProductSort {
	switch s := ProductSort(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortPopularity, SortRelevance, SortPriceLow, SortPriceHigh, SortRating, SortDiscount, SortName:
		return s
	default:
		return fallback
	}
}

// Matches reports whether p satisfies every active predicate of the filter.
func (f ProductFilter) Matches(p Product) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if len(f.Brands) > 0 && !slices.Contains(f.Brands, p.Brand) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category) {
		return false
	}
	if f.MinRating > 0 && p.Rating < f.MinRating {
		return false
	}
	return true
}

// FilterProducts returns the products matching filter in their original order.
func FilterProducts(products []Product, filter ProductFilter) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts returns a stably sorted copy. Popularity, relevance and unknown keys keep source order.
func SortProducts(products []Product, key ProductSort) []Product {
	out := slices.Clone(products)
	if out == nil {
		out = []Product{}
	}
	var less func(a, b Product) bool
	switch key {
	case SortPriceLow:
		less = func(a, b Product) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b Product) bool { return a.Price > b.Price }
	case SortRating:
		less = func(a, b Product) bool { return a.Rating > b.Rating }
	case SortDiscount:
		less = func(a, b Product) bool { return a.DiscountPercentage > b.DiscountPercentage }
	case SortName:
		less = func(a, b Product) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ActiveFilterCount counts the selected brands, categories and rating threshold.
func ActiveFilterCount(filter ProductFilter) int {
	count := len(filter.Brands) + len(filter.Categories)
	if filter.MinRating > 0 {
		count++
	}
	return count
}

// Facets summarises the values a client can filter a product set on.
type Facets struct {
	Brands     []string
	Categories []string
	MaxPrice   float64
}

// BuildFacets collects unique non-empty brands and categories in first-seen order and the ceiling of
// the highest price.
func BuildFacets(products []Product) Facets {
	facets := Facets{Brands: []string{}, Categories: []string{}}
	seenBrand := make(map[string]struct{})
	seenCategory := make(map[string]struct{})
	for _, p := range products {
		if brand := strings.TrimSpace(p.Brand); brand != "" {
			if _, ok := seenBrand[brand]; !ok {
				seenBrand[brand] = struct{}{}
				facets.Brands = append(facets.Brands, brand)
			}
		}
		if category := strings.TrimSpace(p.Category); category != "" {
			if _, ok := seenCategory[category]; !ok {
				seenCategory[category] = struct{}{}
				facets.Categories = append(facets.Categories, category)
			}
		}
		if p.Price > facets.MaxPrice {
			facets.MaxPrice = p.Price
		}
	}
	facets.MaxPrice = math.Ceil(facets.MaxPrice)
	return facets
}

// TopN returns at most n leading elements of a sorted copy.
func TopN(products []Product, key ProductSort, n int) []Product {
	sorted := SortProducts(products, key)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
