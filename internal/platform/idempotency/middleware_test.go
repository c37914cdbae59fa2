package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanko-field/storefront/internal/platform/requestctx"
)

var fixedTime = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func newPlaceOrderRequest(t *testing.T, session, key, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/place-order", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if session != "" {
		req = req.WithContext(requestctx.WithSession(req.Context(), requestctx.Session{ID: session}))
	}
	return req
}

func TestMiddleware_MissingHeader(t *testing.T) {
	handlerCalled := false
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { handlerCalled = true }),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newPlaceOrderRequest(t, "s1", "", `{}`))

	if handlerCalled {
		t.Fatal("handler should not be invoked when header is missing")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddleware_OptionalKeyPassesThrough(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore(), WithKeyOptional())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newPlaceOrderRequest(t, "s1", "", `{}`))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ORD1704110400000"}`))
		}),
	)

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newPlaceOrderRequest(t, "s1", "abc-123", `{}`))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("unexpected first response status: %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newPlaceOrderRequest(t, "s1", "abc-123", `{}`))

	if calls != 1 {
		t.Fatalf("expected handler to be called once, got %d", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatalf("expected replay header to be present")
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content-type json, got %s", got)
	}
	if rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("expected response body %s, got %s", rr1.Body.String(), rr2.Body.String())
	}
}

func TestMiddleware_KeysAreScopedPerSession(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, session := range []string{"s1", "s2"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, newPlaceOrderRequest(t, session, "shared-key", `{}`))
		if rr.Code != http.StatusCreated {
			t.Fatalf("session %s: expected 201, got %d", session, rr.Code)
		}
		if rr.Header().Get(replayHeaderName) != "" {
			t.Fatalf("session %s: unexpected replay", session)
		}
	}
	if calls != 2 {
		t.Fatalf("expected two handler calls, got %d", calls)
	}
}

func TestMiddleware_ConflictingFingerprintReturnsConflict(t *testing.T) {
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newPlaceOrderRequest(t, "s1", "same-key", `{"payment_method":"upi"}`))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request success, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newPlaceOrderRequest(t, "s1", "same-key", `{"payment_method":"cod"}`))
	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", rr2.Code)
	}
	assertErrorResponse(t, rr2.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddleware_PendingReservationReturnsConflict(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not be invoked when reservation pending")
		}),
	)

	req := newPlaceOrderRequest(t, "s1", "pending-key", `{}`)
	body, err := bufferBody(req)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	who := requester(req)
	if _, err := store.Reserve(req.Context(), scopedKey("pending-key", who), requestFingerprint(req, body, who), fixedTime, time.Hour); err != nil {
		t.Fatalf("failed to seed reservation: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending reservation, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_ServerErrorsAreNotCached(t *testing.T) {
	calls := 0
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newPlaceOrderRequest(t, "s1", "retry-key", `{}`))
	if rr1.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr1.Code)
	}
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newPlaceOrderRequest(t, "s1", "retry-key", `{}`))
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected retry to reach handler, got %d", rr2.Code)
	}
}

func TestMiddleware_SaveFailureRollsBackReservation(t *testing.T) {
	store := &stubStore{failSave: true}
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("ok"))
		}),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newPlaceOrderRequest(t, "s1", "fail-key", `{}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 response, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_store_error")
	if !store.released {
		t.Fatalf("expected reservation to be released on failure")
	}
}

func TestMiddleware_IgnoresSafeMethods(t *testing.T) {
	called := false
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if !called {
		t.Fatalf("expected GET to pass through")
	}
}

type stubStore struct {
	failSave bool
	released bool
}

func (s *stubStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Reservation, error) {
	return Reservation{State: ReservationStateNew}, nil
}

func (s *stubStore) SaveResponse(context.Context, string, string, Response, time.Time, time.Duration) error {
	if s.failSave {
		return errors.New("save failed")
	}
	return nil
}

func (s *stubStore) Release(context.Context, string, string) error {
	s.released = true
	return nil
}

func (s *stubStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func assertErrorResponse(t *testing.T, payload []byte, expected string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
