package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/services"
)

// AddressHandlers manages the saved delivery addresses of a session.
type AddressHandlers struct {
	addresses services.AddressService
}

// NewAddressHandlers constructs address handlers.
func NewAddressHandlers(addresses services.AddressService) *AddressHandlers {
	return &AddressHandlers{addresses: addresses}
}

// Routes wires the /addresses endpoints.
func (h *AddressHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{addressID}", h.update)
	r.Delete("/{addressID}", h.remove)
	r.Post("/{addressID}/default", h.setDefault)
}

func (h *AddressHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeUnavailable(ctx, w, "address")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	addresses, err := h.addresses.List(ctx, session)
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"addresses": buildAddressPayloads(addresses)})
}

func (h *AddressHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeUnavailable(ctx, w, "address")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decodeJSONBody(w, r, defaultMaxBodySize, &req) {
		return
	}
	address, err := h.addresses.Add(ctx, session, req.input())
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"address": buildAddressPayload(address)})
}

func (h *AddressHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeUnavailable(ctx, w, "address")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decodeJSONBody(w, r, defaultMaxBodySize, &req) {
		return
	}
	address, err := h.addresses.Update(ctx, session, addressIDParam(r), req.input())
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"address": buildAddressPayload(address)})
}

func (h *AddressHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeUnavailable(ctx, w, "address")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	remaining, err := h.addresses.Delete(ctx, session, addressIDParam(r))
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"addresses": buildAddressPayloads(remaining)})
}

func (h *AddressHandlers) setDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeUnavailable(ctx, w, "address")
		return
	}
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	addresses, err := h.addresses.SetDefault(ctx, session, addressIDParam(r))
	if err != nil {
		writeAddressError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"addresses": buildAddressPayloads(addresses)})
}

func addressIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "addressID"))
}

func writeAddressError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAddressInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_address", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAddressNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("address_not_found", "address not found", http.StatusNotFound))
	case errors.Is(err, services.ErrAddressLimitReached):
		httpx.WriteError(ctx, w, httpx.NewError("address_limit_reached", "maximum number of saved addresses reached", http.StatusConflict))
	case errors.Is(err, services.ErrAddressUnavailable):
		writeUnavailable(ctx, w, "address")
	default:
		httpx.WriteError(ctx, w, httpx.NewError("address_error", "failed to process address request", http.StatusInternalServerError))
	}
}

type addressRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
}

func (req addressRequest) input() services.AddressInput {
	return services.AddressInput{
		Name:      req.Name,
		Phone:     req.Phone,
		Line:      req.Address,
		City:      req.City,
		State:     req.State,
		Pincode:   req.Pincode,
		Type:      services.AddressType(strings.ToLower(strings.TrimSpace(req.Type))),
		IsDefault: req.IsDefault,
	}
}
