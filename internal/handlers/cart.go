package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the session cart endpoints.
type CartHandlers struct {
	carts      services.CartService
	promotions services.PromotionSource
}

// NewCartHandlers constructs cart handlers. promotions is optional and backs GET /cart/promotions.
func NewCartHandlers(carts services.CartService, promotions services.PromotionSource) *CartHandlers {
	return &CartHandlers{carts: carts, promotions: promotions}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
	r.Get("/promotions", h.listPromotions)
	r.Post("/promotion", h.applyPromotion)
	r.Delete("/promotion", h.removePromotion)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	view, err := h.carts.GetCart(ctx, session)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(ctx, session); err != nil {
		writeCartError(ctx, w, err)
		return
	}
	view, err := h.carts.GetCart(ctx, session)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req addCartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	if req.ProductID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product_id must be a positive integer", http.StatusBadRequest))
		return
	}
	view, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		SessionID: session,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
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
	var req updateCartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	if req.Quantity == nil && req.Notes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity or notes is required", http.StatusBadRequest))
		return
	}
	view, err := h.carts.UpdateItem(ctx, services.UpdateCartItemCommand{
		SessionID: session,
		ProductID: productID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
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
	view, err := h.carts.RemoveItem(ctx, session, productID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func (h *CartHandlers) listPromotions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promotions == nil {
		writeUnavailable(ctx, w, "promotion")
		return
	}
	promotions := h.promotions.List()
	payload := make([]promotionPayload, 0, len(promotions))
	for _, p := range promotions {
		payload = append(payload, buildPromotionPayload(p))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"promotions": payload})
}

func (h *CartHandlers) applyPromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req applyPromotionRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	view, err := h.carts.ApplyPromotion(ctx, session, req.Code)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func (h *CartHandlers) removePromotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		writeUnavailable(ctx, w, "cart")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	view, err := h.carts.RemovePromotion(ctx, session)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeCartResponse(w, r, http.StatusOK, view)
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartInvalidPromotion):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_promotion", "invalid promo code", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "item is not in the cart", http.StatusNotFound))
	case errors.Is(err, services.ErrCartProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "failed to load product, please try again later", http.StatusBadGateway))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_timeout", "catalog request timed out", http.StatusGatewayTimeout))
	case errors.Is(err, services.ErrCartUnavailable):
		writeUnavailable(ctx, w, "cart")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}

// writeCartResponse marks the cart uncacheable and answers If-None-Match with 304.
func writeCartResponse(w http.ResponseWriter, r *http.Request, status int, view services.CartView) {
	payload := buildCartPayload(view)
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !view.Cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", view.Cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	etag := buildCartETag(payload)
	if etag != "" {
		w.Header().Set("ETag", etag)
		if r.Method == http.MethodGet && strings.TrimSpace(r.Header.Get("If-None-Match")) == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSONResponse(w, status, map[string]any{"cart": payload})
}

// buildCartETag hashes the lines, promotion and totals so the tag changes with any visible edit.
func buildCartETag(payload cartPayload) string {
	content := struct {
		Items     []cartItemPayload `json:"i"`
		Promotion string            `json:"p"`
		Total     float64           `json:"t"`
	}{payload.Items, payload.Summary.PromotionCode, payload.Summary.Total}
	raw, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf(`W/"%s"`, hex.EncodeToString(sum[:8]))
}

func buildCartPayload(view services.CartView) cartPayload {
	payload := cartPayload{
		Items:     make([]cartItemPayload, 0, len(view.Cart.Items)),
		Summary:   buildCartSummaryPayload(view.Summary),
		UpdatedAt: formatTime(view.Cart.UpdatedAt),
	}
	for _, item := range view.Cart.Items {
		lineTotal := domain.Round2(item.Price * float64(item.Quantity))
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Image:        item.Image,
			Price:        item.Price,
			PriceINR:     domain.FormatUSDAsINR(item.Price),
			Quantity:     item.Quantity,
			LineTotal:    lineTotal,
			LineTotalINR: domain.FormatUSDAsINR(lineTotal),
			Notes:        strings.TrimSpace(item.Notes),
		})
	}
	return payload
}

func buildCartSummaryPayload(s services.CartSummary) cartSummaryPayload {
	return cartSummaryPayload{
		ItemCount:             s.ItemCount,
		Subtotal:              s.Subtotal,
		SubtotalINR:           domain.FormatUSDAsINR(s.Subtotal),
		Shipping:              s.Shipping,
		ShippingINR:           domain.FormatUSDAsINR(s.Shipping),
		FreeShipping:          s.ItemCount > 0 && s.Shipping == 0,
		FreeShippingRemaining: s.FreeShippingRemaining,
		Tax:                   s.Tax,
		TaxINR:                domain.FormatUSDAsINR(s.Tax),
		Discount:              s.Discount,
		DiscountINR:           domain.FormatUSDAsINR(s.Discount),
		Total:                 s.Total,
		TotalINR:              domain.FormatUSDAsINR(s.Total),
		PromotionCode:         s.PromotionCode,
	}
}

type promotionPayload struct {
	Code      string  `json:"code"`
	Amount    float64 `json:"amount"`
	AmountINR string  `json:"amount_inr"`
	Label     string  `json:"label"`
}

func buildPromotionPayload(p services.Promotion) promotionPayload {
	return promotionPayload{Code: p.Code, Amount: p.Amount, AmountINR: domain.FormatUSDAsINR(p.Amount), Label: p.Label}
}

type addCartItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int    `json:"quantity"`
	Notes    *string `json:"notes"`
}

type applyPromotionRequest struct {
	Code string `json:"code"`
}

type cartPayload struct {
	Items     []cartItemPayload  `json:"items"`
	Summary   cartSummaryPayload `json:"summary"`
	UpdatedAt string             `json:"updated_at,omitempty"`
}

type cartItemPayload struct {
	ProductID    int     `json:"product_id"`
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	Price        float64 `json:"price"`
	PriceINR     string  `json:"price_inr"`
	Quantity     int     `json:"quantity"`
	LineTotal    float64 `json:"line_total"`
	LineTotalINR string  `json:"line_total_inr"`
	Notes        string  `json:"notes,omitempty"`
}

type cartSummaryPayload struct {
	ItemCount             int     `json:"item_count"`
	Subtotal              float64 `json:"subtotal"`
	SubtotalINR           string  `json:"subtotal_inr"`
	Shipping              float64 `json:"shipping"`
	ShippingINR           string  `json:"shipping_inr"`
	FreeShipping          bool    `json:"free_shipping"`
	FreeShippingRemaining float64 `json:"free_shipping_remaining"`
	Tax                   float64 `json:"tax"`
	TaxINR                string  `json:"tax_inr"`
	Discount              float64 `json:"discount"`
	DiscountINR           string  `json:"discount_inr"`
	Total                 float64 `json:"total"`
	TotalINR              string  `json:"total_inr"`
	PromotionCode         string  `json:"promotion_code,omitempty"`
}
