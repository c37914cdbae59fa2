package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/platform/pagination"
	"github.com/hanko-field/storefront/internal/platform/requestctx"
	"github.com/hanko-field/storefront/internal/platform/textutil"
	"github.com/hanko-field/storefront/internal/services"
)

const (
	listingDefaultLimit = 100
	listingMaxLimit     = 200
)

var listingSorts = []string{
	string(domain.SortPopularity),
	string(domain.SortRelevance),
	string(domain.SortPriceLow),
	string(domain.SortPriceHigh),
	string(domain.SortRating),
	string(domain.SortDiscount),
	string(domain.SortName),
}

// CatalogHandlers serves product listings, search, detail, categories, home and comparison.
type CatalogHandlers struct {
	catalog         services.CatalogService
	reviews         services.ReviewService
	recommendations services.RecommendationService
}

// NewCatalogHandlers constructs catalog handlers. reviews and recommendations are optional; when set,
// product detail includes the review summary and records the view for the session.
func NewCatalogHandlers(catalog services.CatalogService, reviews services.ReviewService, recommendations services.RecommendationService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, reviews: reviews, recommendations: recommendations}
}

// Routes registers the catalog endpoints on the API root.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/products/{productID}/delivery", h.checkDelivery)
	r.Get("/search", h.searchProducts)
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{slug}/products", h.listCategoryProducts)
	r.Get("/home", h.home)
	r.Get("/compare", h.compare)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	query, params, err := parseListingQuery(r.URL.Query(), domain.SortPopularity)
	if err != nil {
		writeQueryError(ctx, w, err)
		return
	}
	listing, err := h.catalog.ListProducts(ctx, query)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildListingPayload(listing, params))
}

func (h *CatalogHandlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	values := r.URL.Query()
	query, params, err := parseListingQuery(values, domain.SortRelevance)
	if err != nil {
		writeQueryError(ctx, w, err)
		return
	}
	listing, err := h.catalog.SearchProducts(ctx, services.SearchQuery{
		Query:  strings.TrimSpace(values.Get("q")),
		Limit:  query.Limit,
		Filter: query.Filter,
		Sort:   query.Sort,
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	payload := buildListingPayload(listing, params)
	payload.Query = strings.TrimSpace(values.Get("q"))
	payload.NextPageToken = ""
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := productDetailPayload{
		productPayload: buildProductPayload(product),
		CatalogReviews: buildCatalogReviewPayloads(product.Reviews),
	}
	if html, err := textutil.RenderMarkdown(product.Description); err == nil {
		payload.DescriptionHTML = html
	}
	if h.reviews != nil {
		if summary, err := h.reviews.Summary(ctx, product); err == nil {
			s := buildReviewSummaryPayload(summary)
			payload.ReviewSummary = &s
		} else {
			requestctx.Logger(ctx).Warn("product review summary failed")
		}
	}
	if h.recommendations != nil {
		if session := requestctx.SessionID(ctx); session != "" {
			if _, err := h.recommendations.RecordView(ctx, session, product.ID); err != nil {
				requestctx.Logger(ctx).Warn("record product view failed")
			}
		}
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) checkDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	if _, ok := productIDParam(w, r); !ok {
		return
	}
	estimate, err := h.catalog.CheckDelivery(ctx, r.URL.Query().Get("pincode"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, deliveryPayload{
		Pincode:      estimate.Pincode,
		Available:    estimate.Available,
		Message:      estimate.Message,
		FreeDelivery: estimate.FreeDelivery,
		EstimatedBy:  formatTime(estimate.EstimatedBy),
	})
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"categories": buildCategoryPayloads(categories)})
}

func (h *CatalogHandlers) listCategoryProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	query, params, err := parseListingQuery(r.URL.Query(), domain.SortPopularity)
	if err != nil {
		writeQueryError(ctx, w, err)
		return
	}
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	listing, err := h.catalog.ListCategoryProducts(ctx, slug, query)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	payload := buildListingPayload(listing, params)
	payload.Category = &categoryPayload{Name: domain.FormatCategoryName(slug), Slug: slug}
	payload.NextPageToken = ""
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	feed, err := h.catalog.Home(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, homePayload{
		Featured:    buildProductPayloads(feed.Featured),
		TopRated:    buildProductPayloads(feed.TopRated),
		NewArrivals: buildProductPayloads(feed.NewArrivals),
		FlashSale:   buildProductPayloads(feed.FlashSale),
		Recommended: buildProductPayloads(feed.Recommended),
		Categories:  buildCategoryPayloads(feed.Categories),
	})
}

func (h *CatalogHandlers) compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	var ids []int
	for _, raw := range textutil.SplitList(r.URL.Query().Get("ids")) {
		id, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("ids must be integers, got %q", raw), http.StatusBadRequest))
			return
		}
		ids = append(ids, id)
	}
	comparison, err := h.catalog.CompareProducts(ctx, ids)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildComparisonPayload(comparison))
}

func parseListingQuery(values url.Values, defaultSort domain.ProductSort) (services.ProductListQuery, pagination.Params, error) {
	params, err := pagination.Parse(values, pagination.Options{
		DefaultLimit: listingDefaultLimit,
		MaxLimit:     listingMaxLimit,
		AllowedSorts: listingSorts,
		DefaultSort:  string(defaultSort),
	})
	if err != nil {
		return services.ProductListQuery{}, pagination.Params{}, err
	}
	filter, err := parseProductFilter(values)
	if err != nil {
		return services.ProductListQuery{}, pagination.Params{}, err
	}
	return services.ProductListQuery{
		Limit:  params.Limit,
		Skip:   params.Skip,
		Filter: filter,
		Sort:   domain.ProductSort(params.Sort),
	}, params, nil
}

var errInvalidFilter = errors.New("invalid filter")

func parseProductFilter(values url.Values) (domain.ProductFilter, error) {
	filter := domain.ProductFilter{
		Brands:     textutil.SplitList(values.Get("brand")),
		Categories: textutil.SplitList(values.Get("category")),
	}
	parseBound := func(name string) (*float64, error) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative number", errInvalidFilter, name)
		}
		return &v, nil
	}
	var err error
	if filter.MinPrice, err = parseBound("min_price"); err != nil {
		return domain.ProductFilter{}, err
	}
	if filter.MaxPrice, err = parseBound("max_price"); err != nil {
		return domain.ProductFilter{}, err
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return domain.ProductFilter{}, fmt.Errorf("%w: min_price must not exceed max_price", errInvalidFilter)
	}
	if raw := strings.TrimSpace(values.Get("min_rating")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 5 {
			return domain.ProductFilter{}, fmt.Errorf("%w: min_rating must be between 0 and 5", errInvalidFilter)
		}
		filter.MinRating = v
	}
	return filter, nil
}

func writeQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pagination.ErrInvalidSort):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_sort", err.Error(), http.StatusBadRequest))
	case errors.Is(err, errInvalidFilter):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_filter", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_pagination", err.Error(), http.StatusBadRequest))
	}
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "failed to load products, please try again later", http.StatusBadGateway))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_timeout", "catalog request timed out", http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}

type listingPayload struct {
	Products      []productPayload `json:"products"`
	Total         int              `json:"total"`
	Skip          int              `json:"skip"`
	Limit         int              `json:"limit"`
	Sort          string           `json:"sort"`
	ActiveFilters int              `json:"active_filters"`
	Facets        facetsPayload    `json:"facets"`
	NextPageToken string           `json:"next_page_token,omitempty"`
	Query         string           `json:"query,omitempty"`
	Category      *categoryPayload `json:"category,omitempty"`
}

type facetsPayload struct {
	Brands        []string `json:"brands"`
	Categories    []string `json:"categories"`
	MaxPrice      float64  `json:"max_price"`
	RatingOptions []int    `json:"rating_options"`
}

func buildListingPayload(listing services.ProductListing, params pagination.Params) listingPayload {
	return listingPayload{
		Products:      buildProductPayloads(listing.Products),
		Total:         listing.Total,
		Skip:          listing.Skip,
		Limit:         listing.Limit,
		Sort:          string(listing.Sort),
		ActiveFilters: listing.ActiveFilters,
		Facets: facetsPayload{
			Brands:        nonNilStrings(listing.Facets.Brands),
			Categories:    nonNilStrings(listing.Facets.Categories),
			MaxPrice:      listing.Facets.MaxPrice,
			RatingOptions: domain.RatingFilterOptions,
		},
		NextPageToken: params.Next(len(listing.Products), listing.Total),
	}
}

type productDetailPayload struct {
	productPayload
	DescriptionHTML string                 `json:"description_html,omitempty"`
	CatalogReviews  []catalogReviewPayload `json:"catalog_reviews"`
	ReviewSummary   *reviewSummaryPayload  `json:"review_summary,omitempty"`
}

type catalogReviewPayload struct {
	Rating       float64 `json:"rating"`
	Comment      string  `json:"comment"`
	ReviewerName string  `json:"reviewer_name"`
	Date         string  `json:"date,omitempty"`
}

func buildCatalogReviewPayloads(reviews []domain.CatalogReview) []catalogReviewPayload {
	out := make([]catalogReviewPayload, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, catalogReviewPayload{
			Rating:       r.Rating,
			Comment:      textutil.PlainText(r.Comment),
			ReviewerName: textutil.PlainText(r.ReviewerName),
			Date:         formatTime(r.Date),
		})
	}
	return out
}

type deliveryPayload struct {
	Pincode      string `json:"pincode"`
	Available    bool   `json:"available"`
	Message      string `json:"message"`
	FreeDelivery bool   `json:"free_delivery"`
	EstimatedBy  string `json:"estimated_by,omitempty"`
}

type homePayload struct {
	Featured    []productPayload  `json:"featured"`
	TopRated    []productPayload  `json:"top_rated"`
	NewArrivals []productPayload  `json:"new_arrivals"`
	FlashSale   []productPayload  `json:"flash_sale"`
	Recommended []productPayload  `json:"recommended"`
	Categories  []categoryPayload `json:"categories"`
}

type comparisonPayload struct {
	Products   []productPayload           `json:"products"`
	Rows       []comparisonRowPayload     `json:"rows"`
	Highlights []comparisonHighlightEntry `json:"highlights"`
}

type comparisonRowPayload struct {
	Feature string                   `json:"feature"`
	Label   string                   `json:"label"`
	Values  []comparisonValuePayload `json:"values"`
}

type comparisonValuePayload struct {
	ProductID int    `json:"product_id"`
	Value     any    `json:"value"`
	Display   string `json:"display"`
	Best      bool   `json:"best"`
}

type comparisonHighlightEntry struct {
	ProductID int      `json:"product_id"`
	Pros      []string `json:"pros"`
	Cons      []string `json:"cons"`
}

func buildComparisonPayload(c services.Comparison) comparisonPayload {
	payload := comparisonPayload{
		Products:   buildProductPayloads(c.Products),
		Rows:       make([]comparisonRowPayload, 0, len(c.Rows)),
		Highlights: make([]comparisonHighlightEntry, 0, len(c.Highlights)),
	}
	for _, row := range c.Rows {
		entry := comparisonRowPayload{Feature: row.Feature, Label: row.Label, Values: make([]comparisonValuePayload, 0, len(row.Values))}
		for _, v := range row.Values {
			entry.Values = append(entry.Values, comparisonValuePayload(v))
		}
		payload.Rows = append(payload.Rows, entry)
	}
	for _, hl := range c.Highlights {
		payload.Highlights = append(payload.Highlights, comparisonHighlightEntry{
			ProductID: hl.ProductID,
			Pros:      nonNilStrings(hl.Pros),
			Cons:      nonNilStrings(hl.Cons),
		})
	}
	return payload
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
