package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hanko-field/storefront/internal/domain"
)

const (
	defaultTitle         = "Untitled Product"
	defaultRating        = 4.5
	defaultStock         = 100
	defaultBrand         = "Generic Brand"
	defaultCategory      = "uncategorized"
	defaultThumbnail     = "/placeholder.jpg"
	defaultCategoryImage = "/categories/placeholder.svg"
)

// Upstream numeric fields are decoded loosely and coerced with domain.SafeNumber.
type productPayload struct {
	ID                 any             `json:"id"`
	Title              any             `json:"title"`
	Description        any             `json:"description"`
	Price              any             `json:"price"`
	DiscountPercentage any             `json:"discountPercentage"`
	Rating             any             `json:"rating"`
	Stock              any             `json:"stock"`
	Brand              any             `json:"brand"`
	Category           any             `json:"category"`
	Thumbnail          any             `json:"thumbnail"`
	Images             []any           `json:"images"`
	Tags               []any           `json:"tags"`
	Reviews            []reviewPayload `json:"reviews"`
}

type reviewPayload struct {
	Rating        any    `json:"rating"`
	Comment       string `json:"comment"`
	ReviewerName  string `json:"reviewerName"`
	ReviewerEmail string `json:"reviewerEmail"`
	Date          string `json:"date"`
}

type productListPayload struct {
	Products []productPayload `json:"products"`
	Total    *int             `json:"total"`
	Skip     *int             `json:"skip"`
	Limit    *int             `json:"limit"`
}

type categoryObjectPayload struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (p productPayload) toProduct() domain.Product {
	product := domain.Product{
		ID:                 int(domain.SafeNumber(p.ID, 0)),
		Title:              stringOr(p.Title, defaultTitle),
		Description:        stringOr(p.Description, ""),
		Price:              domain.SafeNumber(p.Price, 0),
		DiscountPercentage: domain.SafeNumber(p.DiscountPercentage, 0),
		Rating:             domain.SafeNumber(p.Rating, defaultRating),
		Stock:              int(domain.SafeNumber(p.Stock, defaultStock)),
		Brand:              stringOr(p.Brand, defaultBrand),
		Category:           stringOr(p.Category, defaultCategory),
		Thumbnail:          stringOr(p.Thumbnail, defaultThumbnail),
		Images:             stringSlice(p.Images),
		Tags:               stringSlice(p.Tags),
	}
	if len(product.Images) == 0 {
		product.Images = []string{product.Thumbnail}
	}
	if len(p.Reviews) > 0 {
		product.Reviews = make([]domain.CatalogReview, 0, len(p.Reviews))
		for _, r := range p.Reviews {
			product.Reviews = append(product.Reviews, domain.CatalogReview{
				Rating:        domain.SafeNumber(r.Rating, 0),
				Comment:       strings.TrimSpace(r.Comment),
				ReviewerName:  strings.TrimSpace(r.ReviewerName),
				ReviewerEmail: strings.TrimSpace(r.ReviewerEmail),
				Date:          parseTime(r.Date),
			})
		}
	}
	return product
}

func (p productListPayload) toPage(requestedLimit int) domain.ProductPage {
	products := make([]domain.Product, 0, len(p.Products))
	for _, raw := range p.Products {
		products = append(products, raw.toProduct())
	}
	products = domain.ValidateProducts(products)

	page := domain.ProductPage{
		Products: products,
		Total:    len(products),
		Skip:     0,
		Limit:    requestedLimit,
	}
	if p.Total != nil {
		page.Total = *p.Total
	}
	if p.Skip != nil {
		page.Skip = *p.Skip
	}
	if p.Limit != nil {
		page.Limit = *p.Limit
	}
	return page
}

// decodeCategories accepts both the legacy string list and the object list the API serves today.
func decodeCategories(data []byte) ([]domain.Category, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		var slug string
		switch {
		case len(item) > 0 && item[0] == '"':
			if err := json.Unmarshal(item, &slug); err != nil {
				return nil, err
			}
		case len(item) > 0 && item[0] == '{':
			var obj categoryObjectPayload
			if err := json.Unmarshal(item, &obj); err != nil {
				return nil, err
			}
			slug = obj.Slug
		default:
			return nil, fmt.Errorf("unexpected category entry %s", string(item))
		}
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		categories = append(categories, domain.Category{
			Name:  domain.FormatCategoryName(slug),
			Slug:  slug,
			Image: defaultCategoryImage,
		})
	}
	return categories, nil
}

func stringOr(value any, fallback string) string {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func stringSlice(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func parseTime(val string) time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}
