package domain

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// INRPerUSD is the fixed conversion rate applied to catalog prices.
const INRPerUSD = 83

const unknownCategoryName = "Unknown Category"

var upperCaser = cases.Upper(language.English)

// Round2 rounds half away from zero to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// DiscountedPrice applies a percentage discount to price. The result is clamped to
// [0, price] and rounded to two decimals. Non-finite inputs are treated as zero.
func DiscountedPrice(price, discountPercentage float64) float64 {
	price = finiteOrZero(price)
	discountPercentage = finiteOrZero(discountPercentage)
	if price <= 0 {
		return 0
	}
	if discountPercentage <= 0 {
		return price
	}
	discounted := price - price*discountPercentage/100
	return math.Min(price, math.Max(0, Round2(discounted)))
}

// SafeNumber coerces loosely typed JSON values into a float. Numbers pass through unless NaN,
// strings are parsed, anything else yields fallback.
func SafeNumber(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) {
			return fallback
		}
		return v
	case float32:
		return SafeNumber(float64(v), fallback)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

// ConvertToINR converts a catalog (USD) price into whole rupees.
func ConvertToINR(usd float64) int64 {
	return int64(math.Round(finiteOrZero(usd) * INRPerUSD))
}

// FormatCategoryName turns a category slug such as "home-decoration" into "Home Decoration".
func FormatCategoryName(slug string) string {
	if strings.TrimSpace(slug) == "" {
		return unknownCategoryName
	}
	words := strings.Split(slug, "-")
	for i, word := range words {
		words[i] = upperFirst(word)
	}
	return strings.Join(words, " ")
}

// upperFirst uppercases the leading rune only when it is a letter, so "3d" stays "3d".
func upperFirst(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if size == 0 || !unicode.IsLetter(r) {
		return word
	}
	return upperCaser.String(word[:size]) + word[size:]
}

// ValidateProducts drops malformed records rather than repairing them.
func ValidateProducts(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.ID <= 0 || strings.TrimSpace(p.Title) == "" {
			continue
		}
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
