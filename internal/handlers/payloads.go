package handlers

import (
	"strings"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/services"
)

type productPayload struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	PriceINR           string   `json:"price_inr"`
	DiscountPercentage float64  `json:"discount_percentage"`
	DiscountedPrice    float64  `json:"discounted_price"`
	DiscountedPriceINR string   `json:"discounted_price_inr"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	InStock            bool     `json:"in_stock"`
	Brand              string   `json:"brand,omitempty"`
	Category           string   `json:"category"`
	CategoryName       string   `json:"category_name"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
	Tags               []string `json:"tags"`
}

func buildProductPayload(p services.Product) productPayload {
	discounted := domain.DiscountedPrice(p.Price, p.DiscountPercentage)
	payload := productPayload{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Price:              p.Price,
		PriceINR:           domain.FormatUSDAsINR(p.Price),
		DiscountPercentage: p.DiscountPercentage,
		DiscountedPrice:    discounted,
		DiscountedPriceINR: domain.FormatUSDAsINR(discounted),
		Rating:             p.Rating,
		Stock:              p.Stock,
		InStock:            p.Stock > 0,
		Brand:              strings.TrimSpace(p.Brand),
		Category:           p.Category,
		CategoryName:       domain.FormatCategoryName(p.Category),
		Thumbnail:          p.Thumbnail,
		Images:             p.Images,
		Tags:               p.Tags,
	}
	if payload.Images == nil {
		payload.Images = []string{}
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	return payload
}

func buildProductPayloads(products []services.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p))
	}
	return out
}

type categoryPayload struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

func buildCategoryPayloads(categories []services.Category) []categoryPayload {
	out := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = domain.FormatCategoryName(c.Slug)
		}
		out = append(out, categoryPayload{Name: name, Slug: c.Slug, Image: c.Image})
	}
	return out
}

type addressPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
}

func buildAddressPayload(a services.Address) addressPayload {
	return addressPayload{
		ID:        a.ID,
		Name:      a.Name,
		Phone:     a.Phone,
		Address:   a.Line,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
		Type:      string(a.Type),
		IsDefault: a.IsDefault,
	}
}

func buildAddressPayloads(addresses []services.Address) []addressPayload {
	out := make([]addressPayload, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, buildAddressPayload(a))
	}
	return out
}
