package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanko-field/storefront/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "abc123"})

	rec := httptest.NewRecorder()
	err := NewError("product_not_found", "product with ID 999 not found\n", http.StatusNotFound).
		WithDetails(map[string]any{"product_id": 999, "status": "ignored"})
	WriteError(ctx, rec, err)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "product_not_found" {
		t.Fatalf("unexpected error code %v", payload["error"])
	}
	if payload["message"] != "product with ID 999 not found" {
		t.Fatalf("unexpected message %q", payload["message"])
	}
	if payload["status"] != float64(404) {
		t.Fatalf("expected envelope status to win, got %v", payload["status"])
	}
	if payload["request_id"] != "req-123" || payload["trace_id"] != "abc123" {
		t.Fatalf("expected ids from context, got %v / %v", payload["request_id"], payload["trace_id"])
	}
	if payload["product_id"] != float64(999) {
		t.Fatalf("expected detail field, got %v", payload["product_id"])
	}
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	err := NewError("boom", "", 0)
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", err.Status)
	}
	if err.Error() != "boom" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestWriteJSONWithoutPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusNoContent, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}
