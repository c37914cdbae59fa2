package handlers

import (
	"net/http"
	"testing"
)

func validAddress(name string) map[string]any {
	return map[string]any{
		"name":    name,
		"phone":   "9876543210",
		"address": "12 MG Road",
		"city":    "Bengaluru",
		"state":   "Karnataka",
		"pincode": "560001",
	}
}

func TestAddressHandlersLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(http.MethodPost, "/addresses", validAddress("Asha"))
	expectStatus(t, rr, http.StatusCreated)
	first := decodeBody(t, rr)["address"].(map[string]any)
	if first["id"] != "addr-1" || first["is_default"] != true || first["type"] != "home" {
		t.Fatalf("expected first address to become the home default, got %v", first)
	}

	second := validAddress("Ravi")
	second["type"] = "Work"
	rr = srv.do(http.MethodPost, "/addresses", second)
	expectStatus(t, rr, http.StatusCreated)
	if got := decodeBody(t, rr)["address"].(map[string]any); got["is_default"] != false || got["type"] != "work" {
		t.Fatalf("expected non-default work address, got %v", got)
	}

	rr = srv.do(http.MethodPost, "/addresses/addr-2/default", nil)
	expectStatus(t, rr, http.StatusOK)
	for _, raw := range decodeBody(t, rr)["addresses"].([]any) {
		a := raw.(map[string]any)
		if (a["id"] == "addr-2") != (a["is_default"] == true) {
			t.Fatalf("expected only addr-2 default, got %v", a)
		}
	}

	update := validAddress("Ravi Kumar")
	rr = srv.do(http.MethodPut, "/addresses/addr-2", update)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody(t, rr)["address"].(map[string]any); got["name"] != "Ravi Kumar" {
		t.Fatalf("expected updated name, got %v", got)
	}

	rr = srv.do(http.MethodDelete, "/addresses/addr-1", nil)
	expectStatus(t, rr, http.StatusOK)
	if remaining := decodeBody(t, rr)["addresses"].([]any); len(remaining) != 1 {
		t.Fatalf("expected one remaining address, got %d", len(remaining))
	}

	rr = srv.do(http.MethodGet, "/addresses", nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeBody(t, rr)["addresses"].([]any); len(list) != 1 {
		t.Fatalf("expected one listed address, got %d", len(list))
	}
}

func TestAddressHandlersErrors(t *testing.T) {
	srv := newTestServer(t)

	incomplete := validAddress("Asha")
	delete(incomplete, "pincode")
	rr := srv.do(http.MethodPost, "/addresses", incomplete)
	expectErrorCode(t, rr, http.StatusBadRequest, "invalid_address")

	badType := validAddress("Asha")
	badType["type"] = "castle"
	rr = srv.do(http.MethodPost, "/addresses", badType)
	expectErrorCode(t, rr, http.StatusBadRequest, "invalid_address")

	rr = srv.do(http.MethodPut, "/addresses/missing", validAddress("Asha"))
	expectErrorCode(t, rr, http.StatusNotFound, "address_not_found")

	rr = srv.do(http.MethodPost, "/addresses/missing/default", nil)
	expectErrorCode(t, rr, http.StatusNotFound, "address_not_found")
}

func TestAddressHandlersLimit(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 20; i++ {
		expectStatus(t, srv.do(http.MethodPost, "/addresses", validAddress("Asha")), http.StatusCreated)
	}
	rr := srv.do(http.MethodPost, "/addresses", validAddress("Asha"))
	expectErrorCode(t, rr, http.StatusConflict, "address_limit_reached")
}
