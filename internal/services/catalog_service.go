package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanko-field/storefront/internal/catalog"
	domain "github.com/hanko-field/storefront/internal/domain"
)

const (
	defaultListingLimit = 100
	maxListingLimit     = 200
	homeFetchLimit      = 24
	homeRailSize        = 6
	homeRecommendedSize = 8
	flashSaleMinimum    = 15
	recommendedMinimum  = 4.5
	minCompared         = 2
	maxCompared         = 4
	pincodeLength       = 6
)

var (
	// ErrCatalogUnavailable indicates the product source is not configured or failing upstream.
	ErrCatalogUnavailable = errors.New("catalog service: catalog unavailable")
	// ErrCatalogInvalidInput indicates the caller supplied an invalid query.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogNotFound indicates the requested product does not exist.
	ErrCatalogNotFound = errors.New("catalog service: product not found")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog        ProductCatalog
	HomeCategories HomeCategorySource
	Clock          func() time.Time
	Logger         func(context.Context, string, map[string]any)
}

type catalogService struct {
	catalog    ProductCatalog
	categories HomeCategorySource
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: product catalog is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &catalogService{
		catalog:    deps.Catalog,
		categories: deps.HomeCategories,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) (ProductListing, error) {
	if s == nil || s.catalog == nil {
		return ProductListing{}, ErrCatalogUnavailable
	}
	limit, err := normalizeListingLimit(query.Limit)
	if err != nil {
		return ProductListing{}, err
	}
	if query.Skip < 0 {
		return ProductListing{}, fmt.Errorf("%w: skip must be non-negative", ErrCatalogInvalidInput)
	}
	page, err := s.catalog.ListProducts(ctx, limit, query.Skip)
	if err != nil {
		return ProductListing{}, translateCatalogError(err)
	}
	return buildListing(page, query.Filter, query.Sort, domain.SortPopularity), nil
}

func (s *catalogService) SearchProducts(ctx context.Context, query SearchQuery) (ProductListing, error) {
	if s == nil || s.catalog == nil {
		return ProductListing{}, ErrCatalogUnavailable
	}
	term := strings.TrimSpace(query.Query)
	if term == "" {
		return ProductListing{}, fmt.Errorf("%w: search query is required", ErrCatalogInvalidInput)
	}
	limit, err := normalizeListingLimit(query.Limit)
	if err != nil {
		return ProductListing{}, err
	}
	page, err := s.catalog.SearchProducts(ctx, term, limit)
	if err != nil {
		return ProductListing{}, translateCatalogError(err)
	}
	listing := buildListing(page, query.Filter, query.Sort, domain.SortRelevance)
	s.logger(ctx, "catalog.search", map[string]any{
		"query":   term,
		"results": len(listing.Products),
	})
	return listing, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (Product, error) {
	if s == nil || s.catalog == nil {
		return Product{}, ErrCatalogUnavailable
	}
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: product id must be positive", ErrCatalogInvalidInput)
	}
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return Product{}, translateCatalogError(err)
	}
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	if s == nil || s.catalog == nil {
		return nil, ErrCatalogUnavailable
	}
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

func (s *catalogService) ListCategoryProducts(ctx context.Context, slug string, query ProductListQuery) (ProductListing, error) {
	if s == nil || s.catalog == nil {
		return ProductListing{}, ErrCatalogUnavailable
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return ProductListing{}, fmt.Errorf("%w: category slug is required", ErrCatalogInvalidInput)
	}
	limit, err := normalizeListingLimit(query.Limit)
	if err != nil {
		return ProductListing{}, err
	}
	page, err := s.catalog.ListProductsByCategory(ctx, slug, limit)
	if err != nil {
		return ProductListing{}, translateCatalogError(err)
	}
	return buildListing(page, query.Filter, query.Sort, domain.SortPopularity), nil
}

func (s *catalogService) Home(ctx context.Context) (HomeFeed, error) {
	if s == nil || s.catalog == nil {
		return HomeFeed{}, ErrCatalogUnavailable
	}

	var (
		page       ProductPage
		categories []Category
	)
	curated := s.homeCategories()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		p, err := s.catalog.ListProducts(gctx, homeFetchLimit, 0)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if len(curated) == 0 {
		group.Go(func() error {
			c, err := s.catalog.ListCategories(gctx)
			if err != nil {
				return err
			}
			categories = c
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return HomeFeed{}, translateCatalogError(err)
	}
	if len(curated) > 0 {
		categories = curated
	}
	if categories == nil {
		categories = []Category{}
	}

	products := domain.ValidateProducts(page.Products)
	feed := HomeFeed{
		Featured:    headOf(products, homeRailSize),
		TopRated:    domain.TopN(products, domain.SortRating, homeRailSize),
		NewArrivals: tailOf(products, homeRailSize),
		Categories:  categories,
	}

	var flash, recommended []Product
	for _, p := range products {
		if p.DiscountPercentage > flashSaleMinimum {
			flash = append(flash, p)
		}
		if p.Rating > recommendedMinimum {
			recommended = append(recommended, p)
		}
	}
	feed.FlashSale = domain.TopN(flash, domain.SortDiscount, homeRailSize)
	feed.Recommended = domain.TopN(recommended, domain.SortRating, homeRecommendedSize)
	return feed, nil
}

func (s *catalogService) CompareProducts(ctx context.Context, ids []int) (Comparison, error) {
	if s == nil || s.catalog == nil {
		return Comparison{}, ErrCatalogUnavailable
	}
	ids, err := normalizeCompareIDs(ids)
	if err != nil {
		return Comparison{}, err
	}

	products := make([]Product, len(ids))
	group, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		group.Go(func() error {
			p, err := s.catalog.GetProduct(gctx, id)
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Comparison{}, translateCatalogError(err)
	}

	comparison := Comparison{
		Products:   products,
		Rows:       comparisonRows(products),
		Highlights: make([]ProductHighlights, 0, len(products)),
	}
	for _, p := range products {
		comparison.Highlights = append(comparison.Highlights, highlightsFor(p))
	}
	return comparison, nil
}

func (s *catalogService) CheckDelivery(_ context.Context, pincode string) (DeliveryEstimate, error) {
	if s == nil {
		return DeliveryEstimate{}, ErrCatalogUnavailable
	}
	pincode = strings.TrimSpace(pincode)
	if !isPincode(pincode) {
		return DeliveryEstimate{}, fmt.Errorf("%w: please enter a valid 6-digit pincode", ErrCatalogInvalidInput)
	}
	now := s.clock()
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return DeliveryEstimate{
		Pincode:      pincode,
		Available:    true,
		Message:      "Get it by Tomorrow",
		FreeDelivery: true,
		EstimatedBy:  tomorrow,
	}, nil
}

func (s *catalogService) homeCategories() []Category {
	if s.categories == nil {
		return nil
	}
	return s.categories.HomeCategories()
}

func buildListing(page ProductPage, filter ProductFilter, sortKey ProductSort, fallback ProductSort) ProductListing {
	products := domain.ValidateProducts(page.Products)
	key := domain.ParseProductSort(string(sortKey), fallback)
	return ProductListing{
		Products:      domain.SortProducts(domain.FilterProducts(products, filter), key),
		Total:         page.Total,
		Skip:          page.Skip,
		Limit:         page.Limit,
		Facets:        domain.BuildFacets(products),
		ActiveFilters: domain.ActiveFilterCount(filter),
		Sort:          key,
	}
}

func normalizeListingLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return defaultListingLimit, nil
	case limit < 0:
		return 0, fmt.Errorf("%w: limit must be positive", ErrCatalogInvalidInput)
	case limit > maxListingLimit:
		return maxListingLimit, nil
	default:
		return limit, nil
	}
}

func normalizeCompareIDs(ids []int) ([]int, error) {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%w: product id %d is invalid", ErrCatalogInvalidInput, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) < minCompared || len(out) > maxCompared {
		return nil, fmt.Errorf("%w: compare between %d and %d distinct products", ErrCatalogInvalidInput, minCompared, maxCompared)
	}
	return out, nil
}

type comparedFeature struct {
	key   string
	label string
	value func(Product) any
	show  func(Product) string
	// best picks the winning value; nil means the feature has no winner.
	best func([]Product) float64
	num  func(Product) float64
}

var comparedFeatures = []comparedFeature{
	{
		key:   "price",
		label: "Price",
		value: func(p Product) any { return p.Price },
		show:  func(p Product) string { return domain.FormatUSDAsINR(p.Price) },
		num:   func(p Product) float64 { return p.Price },
		best:  func(ps []Product) float64 { return extreme(ps, func(p Product) float64 { return p.Price }, math.Min) },
	},
	{
		key:   "rating",
		label: "Rating",
		value: func(p Product) any { return p.Rating },
		show:  func(p Product) string { return strconv.FormatFloat(p.Rating, 'f', -1, 64) },
		num:   func(p Product) float64 { return p.Rating },
		best:  func(ps []Product) float64 { return extreme(ps, func(p Product) float64 { return p.Rating }, math.Max) },
	},
	{
		key:   "stock",
		label: "Stock",
		value: func(p Product) any { return p.Stock },
		show:  func(p Product) string { return strconv.Itoa(p.Stock) },
		num:   func(p Product) float64 { return float64(p.Stock) },
		best:  func(ps []Product) float64 { return extreme(ps, func(p Product) float64 { return float64(p.Stock) }, math.Max) },
	},
	{
		key:   "brand",
		label: "Brand",
		value: func(p Product) any { return p.Brand },
		show:  func(p Product) string { return textOrDash(p.Brand) },
	},
	{
		key:   "category",
		label: "Category",
		value: func(p Product) any { return p.Category },
		show:  func(p Product) string { return textOrDash(p.Category) },
	},
	{
		key:   "discountPercentage",
		label: "Discount",
		value: func(p Product) any { return p.DiscountPercentage },
		show: func(p Product) string {
			if p.DiscountPercentage <= 0 {
				return "-"
			}
			return fmt.Sprintf("%d%% OFF", int(math.Round(p.DiscountPercentage)))
		},
		num:  func(p Product) float64 { return p.DiscountPercentage },
		best: func(ps []Product) float64 { return extreme(ps, func(p Product) float64 { return p.DiscountPercentage }, math.Max) },
	},
}

func comparisonRows(products []Product) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(comparedFeatures))
	for _, feature := range comparedFeatures {
		row := ComparisonRow{Feature: feature.key, Label: feature.label, Values: make([]ComparisonValue, 0, len(products))}
		var (
			best    float64
			hasBest = feature.best != nil && len(products) > 0
		)
		if hasBest {
			best = feature.best(products)
		}
		for _, p := range products {
			row.Values = append(row.Values, ComparisonValue{
				ProductID: p.ID,
				Value:     feature.value(p),
				Display:   feature.show(p),
				Best:      hasBest && feature.num(p) == best,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func highlightsFor(p Product) ProductHighlights {
	h := ProductHighlights{ProductID: p.ID, Pros: []string{}, Cons: []string{}}
	if p.Rating >= 4.5 {
		h.Pros = append(h.Pros, "High customer rating")
	}
	if p.DiscountPercentage > 20 {
		h.Pros = append(h.Pros, "Great discount available")
	}
	if p.Stock > 50 {
		h.Pros = append(h.Pros, "Good stock availability")
	}
	if strings.TrimSpace(p.Brand) != "" {
		h.Pros = append(h.Pros, "Trusted brand")
	}
	if p.Rating < 3 {
		h.Cons = append(h.Cons, "Low customer rating")
	}
	if p.Stock < 10 {
		h.Cons = append(h.Cons, "Limited stock")
	}
	if p.DiscountPercentage < 5 {
		h.Cons = append(h.Cons, "Minimal discount")
	}
	return h
}

func extreme(products []Product, num func(Product) float64, pick func(a, b float64) float64) float64 {
	out := num(products[0])
	for _, p := range products[1:] {
		out = pick(out, num(p))
	}
	return out
}

func textOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func isPincode(value string) bool {
	if len(value) != pincodeLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

func headOf(products []Product, n int) []Product {
	if len(products) > n {
		products = products[:n]
	}
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

func tailOf(products []Product, n int) []Product {
	if len(products) > n {
		products = products[len(products)-n:]
	}
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// translateCatalogError maps catalog client failures onto service sentinels.
func translateCatalogError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fmt.Errorf("%w: %w", ErrCatalogNotFound, err)
	}
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		return fmt.Errorf("%w: %w", ErrCatalogNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
}
