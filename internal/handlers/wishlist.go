package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/services"
)

// WishlistHandlers exposes the session wishlist.
type WishlistHandlers struct {
	wishlist services.WishlistService
}

// NewWishlistHandlers constructs wishlist handlers.
func NewWishlistHandlers(wishlist services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{wishlist: wishlist}
}

// Routes wires the /wishlist endpoints.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Delete("/", h.clear)
	r.Get("/{productID}", h.contains)
	r.Delete("/{productID}", h.remove)
	r.Post("/{productID}/toggle", h.toggle)
	r.Post("/{productID}/move-to-cart", h.moveToCart)
}

func (h *WishlistHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	resolve := true
	if raw := r.URL.Query().Get("resolve"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "resolve must be a boolean", http.StatusBadRequest))
			return
		}
		resolve = parsed
	}
	view, err := h.wishlist.List(ctx, session, resolve)
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWishlistPayload(view, resolve))
}

func (h *WishlistHandlers) add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
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
	view, err := h.wishlist.Add(ctx, session, req.ProductID)
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWishlistPayload(view, false))
}

func (h *WishlistHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.wishlist.Remove(ctx, session, productID)
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildWishlistPayload(view, false))
}

func (h *WishlistHandlers) clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.wishlist.Clear(ctx, session); err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WishlistHandlers) contains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	found, err := h.wishlist.Contains(ctx, session, productID)
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, wishlistStatePayload{ProductID: productID, Wishlisted: found})
}

func (h *WishlistHandlers) toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	added, err := h.wishlist.Toggle(ctx, session, productID)
	if err != nil {
		writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, wishlistStatePayload{ProductID: productID, Wishlisted: added})
}

func (h *WishlistHandlers) moveToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		writeUnavailable(ctx, w, "wishlist")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.wishlist.MoveToCart(ctx, session, productID)
	if err != nil {
		var cartErr bool
		for _, sentinel := range []error{services.ErrCartInvalidInput, services.ErrCartProductNotFound, services.ErrCartUnavailable} {
			if errors.Is(err, sentinel) {
				cartErr = true
				break
			}
		}
		if cartErr {
			writeCartError(ctx, w, err)
			return
		}
		writeWishlistError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func writeWishlistError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrWishlistInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWishlistItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_item_not_found", "product is not in the wishlist", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "failed to load products, please try again later", http.StatusBadGateway))
	case errors.Is(err, services.ErrWishlistUnavailable):
		writeUnavailable(ctx, w, "wishlist")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_error", "failed to process wishlist request", http.StatusInternalServerError))
	}
}

type productRefRequest struct {
	ProductID int `json:"product_id"`
}

type wishlistPayload struct {
	ProductIDs []int            `json:"product_ids"`
	Count      int              `json:"count"`
	Products   []productPayload `json:"products,omitempty"`
}

type wishlistStatePayload struct {
	ProductID  int  `json:"product_id"`
	Wishlisted bool `json:"wishlisted"`
}

func buildWishlistPayload(view services.WishlistView, resolved bool) wishlistPayload {
	ids := view.ProductIDs
	if ids == nil {
		ids = []int{}
	}
	payload := wishlistPayload{ProductIDs: ids, Count: len(ids)}
	if resolved {
		payload.Products = buildProductPayloads(view.Products)
	}
	return payload
}
