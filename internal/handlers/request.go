package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/storefront/internal/platform/httpx"
	"github.com/hanko-field/storefront/internal/platform/requestctx"
)

const defaultMaxBodySize = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body exceeds allowed size")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeJSONBody reads a size limited JSON object into dst, rejecting unknown fields. Failures are
// written to w and reported as false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", errBodyTooLarge.Error(), http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return false
	}
	return true
}

// sessionFromRequest returns the session id set by the session middleware, writing a 400 when it is
// missing.
func sessionFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(requestctx.SessionID(r.Context()))
	if id == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "a session id is required", http.StatusBadRequest))
		return "", false
	}
	return id, true
}

// productIDParam parses the {productID} route parameter.
func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "productID"))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_product_id", fmt.Sprintf("product id %q must be a positive integer", raw), http.StatusBadRequest))
		return 0, false
	}
	return id, true
}

func writeUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_service_unavailable", name+" service is unavailable", http.StatusServiceUnavailable))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
