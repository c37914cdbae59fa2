package services

import (
	"strings"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/config"
)

const placeholderCategoryImage = "/categories/placeholder.svg"

var defaultPromotions = []Promotion{
	{Code: "SAVE10", Amount: 10, Label: "Save 10 on your order"},
	{Code: "WELCOME20", Amount: 20, Label: "Welcome offer: 20 off"},
	{Code: "FIRST50", Amount: 50, Label: "First order: 50 off"},
}

// PromotionCatalog resolves promo codes and curated home categories from the storefront settings.
// With no configured promotions the built-in codes apply.
type PromotionCatalog struct {
	settings func() config.StorefrontSettings
}

var (
	_ PromotionSource    = (*PromotionCatalog)(nil)
	_ HomeCategorySource = (*PromotionCatalog)(nil)
)

// NewPromotionCatalog reads settings on every lookup so reloaded files take effect immediately.
// A nil settings func serves the defaults.
func NewPromotionCatalog(settings func() config.StorefrontSettings) *PromotionCatalog {
	return &PromotionCatalog{settings: settings}
}

// NormalizePromotionCode trims and upper-cases a user supplied code.
func NormalizePromotionCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *PromotionCatalog) List() []Promotion {
	current := c.current()
	if len(current.Promotions) == 0 {
		out := make([]Promotion, len(defaultPromotions))
		copy(out, defaultPromotions)
		return out
	}
	out := make([]Promotion, 0, len(current.Promotions))
	for _, p := range current.Promotions {
		label := p.Label
		if label == "" {
			label = p.Code
		}
		out = append(out, Promotion{Code: p.Code, Amount: p.Amount, Label: label})
	}
	return out
}

func (c *PromotionCatalog) Lookup(code string) (Promotion, bool) {
	code = NormalizePromotionCode(code)
	if code == "" {
		return Promotion{}, false
	}
	for _, p := range c.List() {
		if p.Code == code {
			return p, true
		}
	}
	return Promotion{}, false
}

func (c *PromotionCatalog) HomeCategories() []Category {
	current := c.current()
	if len(current.HomeCategories) == 0 {
		return nil
	}
	out := make([]Category, 0, len(current.HomeCategories))
	for _, cat := range current.HomeCategories {
		name := cat.Name
		if name == "" {
			name = domain.FormatCategoryName(cat.Slug)
		}
		image := cat.Image
		if image == "" {
			image = placeholderCategoryImage
		}
		out = append(out, Category{Name: name, Slug: cat.Slug, Image: image})
	}
	return out
}

func (c *PromotionCatalog) current() config.StorefrontSettings {
	if c == nil || c.settings == nil {
		return config.StorefrontSettings{}
	}
	return c.settings()
}
