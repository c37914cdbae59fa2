package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes the checkout flow and order history endpoints.
type CheckoutHandlers struct {
	checkout        services.CheckoutService
	placeOrderGuard func(http.Handler) http.Handler
}

// CheckoutOption customises CheckoutHandlers.
type CheckoutOption func(*CheckoutHandlers)

// WithPlaceOrderMiddleware wraps POST /checkout/place-order, typically with the idempotency guard.
func WithPlaceOrderMiddleware(mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.placeOrderGuard = mw
	}
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{checkout: checkout}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getSession)
	r.Post("/address", h.selectAddress)
	r.Post("/payment", h.selectPayment)
	r.Post("/step", h.setStep)
	if h.placeOrderGuard != nil {
		r.With(h.placeOrderGuard).Post("/place-order", h.placeOrder)
	} else {
		r.Post("/place-order", h.placeOrder)
	}
}

// OrderRoutes wires the /orders endpoints.
func (h *CheckoutHandlers) OrderRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
}

func (h *CheckoutHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	state, err := h.checkout.GetSession(ctx, session)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

func (h *CheckoutHandlers) selectAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req selectAddressRequest
	if !decodeJSONBody(w, r, maxCheckoutRequestBody, &req) {
		return
	}
	state, err := h.checkout.SelectAddress(ctx, session, req.AddressID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

func (h *CheckoutHandlers) selectPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req selectPaymentRequest
	if !decodeJSONBody(w, r, maxCheckoutRequestBody, &req) {
		return
	}
	state, err := h.checkout.SelectPayment(ctx, session, services.PaymentMethod(req.Method))
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

func (h *CheckoutHandlers) setStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req setStepRequest
	if !decodeJSONBody(w, r, maxCheckoutRequestBody, &req) {
		return
	}
	state, err := h.checkout.SetStep(ctx, session, services.CheckoutStep(req.Step))
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	order, err := h.checkout.PlaceOrder(ctx, session)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/orders/"+order.ID)
	writeJSONResponse(w, http.StatusCreated, map[string]any{"order": buildOrderPayload(order)})
}

func (h *CheckoutHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	orders, err := h.checkout.ListOrders(ctx, session)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": payload})
}

func (h *CheckoutHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	order, err := h.checkout.GetOrder(ctx, session, chi.URLParam(r, "orderID"))
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "your cart is empty", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutAddressRequired):
		httpx.WriteError(ctx, w, httpx.NewError("address_required", "please select or add a delivery address", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutAddressNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("address_not_found", "address not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		writeUnavailable(ctx, w, "checkout")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}

type selectAddressRequest struct {
	AddressID string `json:"address_id"`
}

type selectPaymentRequest struct {
	Method string `json:"method"`
}

type setStepRequest struct {
	Step string `json:"step"`
}

type checkoutPayload struct {
	Step           string          `json:"step"`
	Address        *addressPayload `json:"address"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentMethods []string        `json:"payment_methods"`
	ItemCount      int             `json:"item_count"`
	Quote          quotePayload    `json:"quote"`
}

type quotePayload struct {
	Lines              []quoteLinePayload `json:"lines"`
	Subtotal           int64              `json:"subtotal"`
	SubtotalDisplay    string             `json:"subtotal_display"`
	Shipping           int64              `json:"shipping"`
	ShippingDisplay    string             `json:"shipping_display"`
	FreeShipping       bool               `json:"free_shipping"`
	Tax                int64              `json:"tax"`
	TaxDisplay         string             `json:"tax_display"`
	Total              int64              `json:"total"`
	TotalDisplay       string             `json:"total_display"`
	SavedOnShipping    int64              `json:"saved_on_shipping"`
	SavedOnShippingFmt string             `json:"saved_on_shipping_display"`
}

type quoteLinePayload struct {
	ProductID        int    `json:"product_id"`
	Name             string `json:"name"`
	Image            string `json:"image"`
	Quantity         int    `json:"quantity"`
	UnitPrice        int64  `json:"unit_price"`
	UnitPriceDisplay string `json:"unit_price_display"`
	LineTotal        int64  `json:"line_total"`
	LineTotalDisplay string `json:"line_total_display"`
}

type orderPayload struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"payment_method"`
	Address       addressPayload `json:"address"`
	Quote         quotePayload   `json:"quote"`
	PlacedAt      string         `json:"placed_at"`
}

func buildCheckoutPayload(s services.CheckoutSession) checkoutPayload {
	payload := checkoutPayload{
		Step:          string(s.Step),
		PaymentMethod: string(s.PaymentMethod),
		PaymentMethods: []string{
			string(domain.PaymentMethodUPI),
			string(domain.PaymentMethodCard),
			string(domain.PaymentMethodCOD),
		},
		ItemCount: s.ItemCount,
		Quote:     buildQuotePayload(s.Quote),
	}
	if s.Address != nil {
		addr := buildAddressPayload(*s.Address)
		payload.Address = &addr
	}
	return payload
}

func buildQuotePayload(q services.CheckoutQuote) quotePayload {
	payload := quotePayload{
		Lines:              make([]quoteLinePayload, 0, len(q.Lines)),
		Subtotal:           q.Subtotal,
		SubtotalDisplay:    domain.FormatINR(q.Subtotal),
		Shipping:           q.Shipping,
		ShippingDisplay:    domain.FormatINR(q.Shipping),
		FreeShipping:       len(q.Lines) > 0 && q.Shipping == 0,
		Tax:                q.Tax,
		TaxDisplay:         domain.FormatINR(q.Tax),
		Total:              q.Total,
		TotalDisplay:       domain.FormatINR(q.Total),
		SavedOnShipping:    q.SavedOnShipping,
		SavedOnShippingFmt: domain.FormatINR(q.SavedOnShipping),
	}
	for _, line := range q.Lines {
		payload.Lines = append(payload.Lines, quoteLinePayload{
			ProductID:        line.ProductID,
			Name:             line.Name,
			Image:            line.Image,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			UnitPriceDisplay: domain.FormatINR(line.UnitPrice),
			LineTotal:        line.LineTotal,
			LineTotalDisplay: domain.FormatINR(line.LineTotal),
		})
	}
	return payload
}

func buildOrderPayload(o services.Order) orderPayload {
	return orderPayload{
		ID:            o.ID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		Address:       buildAddressPayload(o.Address),
		Quote:         buildQuotePayload(o.Quote),
		PlacedAt:      formatTime(o.PlacedAt),
	}
}
