package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/platform/requestctx"
	"github.com/hanko-field/storefront/internal/services"
)

// RecommendationHandlers serves the product detail rails and the recently viewed history.
type RecommendationHandlers struct {
	catalog         services.CatalogService
	recommendations services.RecommendationService
}

// NewRecommendationHandlers constructs recommendation handlers.
func NewRecommendationHandlers(catalog services.CatalogService, recommendations services.RecommendationService) *RecommendationHandlers {
	return &RecommendationHandlers{catalog: catalog, recommendations: recommendations}
}

// Routes registers the product rail endpoint on the API root.
func (h *RecommendationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products/{productID}/recommendations", h.forProduct)
}

// RecentlyViewedRoutes wires the /recently-viewed endpoints.
func (h *RecommendationHandlers) RecentlyViewedRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listRecentlyViewed)
	r.Post("/", h.recordView)
}

func (h *RecommendationHandlers) forProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil || h.recommendations == nil {
		writeUnavailable(ctx, w, "recommendation")
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	recs, err := h.recommendations.ForProduct(ctx, requestctx.SessionID(ctx), product)
	if err != nil {
		writeRecommendationError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, recommendationsPayload{
		ProductID:        product.ID,
		Similar:          buildProductPayloads(recs.Similar),
		Trending:         buildProductPayloads(recs.Trending),
		RecentlyViewed:   buildProductPayloads(recs.RecentlyViewed),
		FrequentlyBought: buildProductPayloads(recs.FrequentlyBought),
	})
}

func (h *RecommendationHandlers) listRecentlyViewed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recommendations == nil {
		writeUnavailable(ctx, w, "recommendation")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	products, err := h.recommendations.RecentlyViewed(ctx, session, 0)
	if err != nil {
		writeRecommendationError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": buildProductPayloads(products)})
}

func (h *RecommendationHandlers) recordView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recommendations == nil {
		writeUnavailable(ctx, w, "recommendation")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req productRefRequest
	if !decodeJSONBody(w, r, defaultMaxBodySize, &req) {
		return
	}
	ids, err := h.recommendations.RecordView(ctx, session, req.ProductID)
	if err != nil {
		writeRecommendationError(ctx, w, err)
		return
	}
	if ids == nil {
		ids = []int{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product_ids": ids})
}

func writeRecommendationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRecommendationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogUnavailable), errors.Is(err, services.ErrCatalogNotFound),
		errors.Is(err, context.DeadlineExceeded):
		writeCatalogError(ctx, w, err)
	case errors.Is(err, services.ErrRecommendationUnavailable):
		writeUnavailable(ctx, w, "recommendation")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("recommendation_error", "failed to load recommendations", http.StatusInternalServerError))
	}
}

type recommendationsPayload struct {
	ProductID        int              `json:"product_id"`
	Similar          []productPayload `json:"similar"`
	Trending         []productPayload `json:"trending"`
	RecentlyViewed   []productPayload `json:"recently_viewed"`
	FrequentlyBought []productPayload `json:"frequently_bought"`
}
