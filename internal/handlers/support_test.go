package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanko-field/storefront/internal/catalog"
	"github.com/hanko-field/storefront/internal/platform/idempotency"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
	"github.com/hanko-field/storefront/internal/repositories/kv"
	"github.com/hanko-field/storefront/internal/services"
)

const testSession = "session-0001"

var testNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type stubProductCatalog struct {
	products   []services.Product
	categories []services.Category
	err        error
}

func (s *stubProductCatalog) ListProducts(_ context.Context, limit, skip int) (services.ProductPage, error) {
	if s.err != nil {
		return services.ProductPage{}, s.err
	}
	items := s.products
	if skip < len(items) {
		items = items[skip:]
	} else {
		items = nil
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return services.ProductPage{Products: items, Total: len(s.products), Skip: skip, Limit: limit}, nil
}

func (s *stubProductCatalog) SearchProducts(_ context.Context, _ string, limit int) (services.ProductPage, error) {
	if s.err != nil {
		return services.ProductPage{}, s.err
	}
	return services.ProductPage{Products: s.products, Total: len(s.products), Limit: limit}, nil
}

func (s *stubProductCatalog) ListProductsByCategory(_ context.Context, slug string, limit int) (services.ProductPage, error) {
	if s.err != nil {
		return services.ProductPage{}, s.err
	}
	var out []services.Product
	for _, p := range s.products {
		if p.Category == slug {
			out = append(out, p)
		}
	}
	return services.ProductPage{Products: out, Total: len(out), Limit: limit}, nil
}

func (s *stubProductCatalog) ListCategories(context.Context) ([]services.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.categories, nil
}

func (s *stubProductCatalog) GetProduct(_ context.Context, id int) (services.Product, error) {
	if s.err != nil {
		return services.Product{}, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return services.Product{}, fmt.Errorf("%w: product with ID %d not found", catalog.ErrProductNotFound, id)
}

func sampleProducts() []services.Product {
	return []services.Product{
		{ID: 1, Title: "Phone", Description: "A **fast** phone", Price: 549, DiscountPercentage: 12, Rating: 4.7, Stock: 40, Brand: "Apple", Category: "smartphones"},
		{ID: 2, Title: "Laptop", Price: 1299, DiscountPercentage: 18, Rating: 4.2, Stock: 5, Brand: "Dell", Category: "laptops"},
		{ID: 3, Title: "Mascara", Price: 9.99, Rating: 2.5, Stock: 0, Category: "beauty"},
		{ID: 4, Title: "Tablet", Price: 399, DiscountPercentage: 25, Rating: 4.9, Stock: 80, Brand: "Samsung", Category: "tablets"},
		{ID: 5, Title: "Watch", Price: 199, DiscountPercentage: 16, Rating: 4.6, Stock: 60, Brand: "Apple", Category: "smartphones"},
	}
}

// testServer wires real services over the in-memory store behind the full router.
type testServer struct {
	t       *testing.T
	handler http.Handler
	catalog *stubProductCatalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	registry, err := kv.NewRegistry(kvstore.NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	products := &stubProductCatalog{
		products:   sampleProducts(),
		categories: []services.Category{{Slug: "smartphones", Name: "Smartphones"}, {Slug: "laptops"}},
	}
	promotions := services.NewPromotionCatalog(nil)

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{Catalog: products, HomeCategories: promotions, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	cartSvc, err := services.NewCartService(services.CartServiceDeps{Carts: registry.Carts(), Catalog: products, Promotions: promotions, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	wishlistSvc, err := services.NewWishlistService(services.WishlistServiceDeps{Wishlists: registry.Wishlists(), Catalog: products, Cart: cartSvc})
	if err != nil {
		t.Fatalf("NewWishlistService: %v", err)
	}
	var addressSeq int
	addressSvc, err := services.NewAddressService(services.AddressServiceDeps{
		Addresses:   registry.Addresses(),
		IDGenerator: func() string { addressSeq++; return fmt.Sprintf("addr-%d", addressSeq) },
	})
	if err != nil {
		t.Fatalf("NewAddressService: %v", err)
	}
	var reviewSeq int
	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:     registry.Reviews(),
		Clock:       fixedClock,
		IDGenerator: func() string { reviewSeq++; return fmt.Sprintf("rev-%d", reviewSeq) },
	})
	if err != nil {
		t.Fatalf("NewReviewService: %v", err)
	}
	recSvc, err := services.NewRecommendationService(services.RecommendationServiceDeps{
		Catalog:        products,
		RecentlyViewed: registry.RecentlyViewed(),
		Shuffle:        func(int, func(i, j int)) {},
	})
	if err != nil {
		t.Fatalf("NewRecommendationService: %v", err)
	}
	var orderSeq int
	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:            registry.Carts(),
		Addresses:        registry.Addresses(),
		Checkouts:        registry.Checkouts(),
		Orders:           registry.Orders(),
		Clock:            fixedClock,
		OrderIDGenerator: func() string { orderSeq++; return fmt.Sprintf("ORD%013d", orderSeq) },
		EventIDGenerator: func() string { return "evt" },
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}

	catalogHandlers := NewCatalogHandlers(catalogSvc, reviewSvc, recSvc)
	reviewHandlers := NewReviewHandlers(catalogSvc, reviewSvc, WithReviewClock(fixedClock))
	recHandlers := NewRecommendationHandlers(catalogSvc, recSvc)
	checkoutHandlers := NewCheckoutHandlers(checkoutSvc, WithPlaceOrderMiddleware(
		idempotency.Middleware(idempotency.NewMemoryStore(), idempotency.WithKeyOptional(), idempotency.WithClock(fixedClock)),
	))

	router := NewRouter(
		WithAPIMiddlewares(SessionMiddleware(SessionOptions{Clock: fixedClock, NewID: func() string { return "minted-session-id" }})),
		WithCatalogRoutes(catalogHandlers.Routes, reviewHandlers.Routes, recHandlers.Routes),
		WithCartRoutes(NewCartHandlers(cartSvc, promotions).Routes),
		WithWishlistRoutes(NewWishlistHandlers(wishlistSvc).Routes),
		WithAddressRoutes(NewAddressHandlers(addressSvc).Routes),
		WithRecentlyViewedRoutes(recHandlers.RecentlyViewedRoutes),
		WithCheckoutRoutes(checkoutHandlers.Routes),
		WithOrderRoutes(checkoutHandlers.OrderRoutes),
	)
	return &testServer{t: t, handler: router, catalog: products}
}

// do sends a request under the test session. A nil body sends no payload.
func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("X-Session-ID", testSession)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	body := decodeBody(t, rr)
	if body["error"] != code {
		t.Fatalf("expected error %q, got %v", code, body["error"])
	}
}

func newSessionRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("X-Session-ID", testSession)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
