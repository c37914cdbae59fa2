package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestCartService(t *testing.T, recorder *eventRecorder) CartService {
	t.Helper()
	deps := CartServiceDeps{
		Carts:   newTestRegistry(t).Carts(),
		Catalog: newStubCatalog(sampleProducts()...),
		Clock:   fixedClock,
	}
	if recorder != nil {
		deps.Logger = recorder.log
	}
	svc, err := NewCartService(deps)
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func intPtr(v int) *int          { return &v }
func stringPtr(v string) *string { return &v }

func TestNewCartServiceValidatesDeps(t *testing.T) {
	if _, err := NewCartService(CartServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
	if _, err := NewCartService(CartServiceDeps{Carts: newTestRegistry(t).Carts()}); err == nil {
		t.Fatalf("expected error when catalog missing")
	}
}

func TestCartServiceAddItemUsesDiscountedPriceAndMerges(t *testing.T) {
	recorder := &eventRecorder{}
	svc := newTestCartService(t, recorder)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: 1, Quantity: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	view, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: 1})
	if err != nil {
		t.Fatalf("AddItem again: %v", err)
	}

	if len(view.Cart.Items) != 1 {
		t.Fatalf("expected merged single line, got %d", len(view.Cart.Items))
	}
	item := view.Cart.Items[0]
	if item.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", item.Quantity)
	}
	if item.Price != 483.12 {
		t.Fatalf("expected discounted price 483.12, got %v", item.Price)
	}
	if item.Name != "Phone" {
		t.Fatalf("expected product title as name, got %q", item.Name)
	}
	if view.Summary.ItemCount != 3 {
		t.Fatalf("expected item count 3, got %d", view.Summary.ItemCount)
	}
	if view.Summary.Shipping != 0 {
		t.Fatalf("expected free shipping, got %v", view.Summary.Shipping)
	}
	if !recorder.has("cart.item.added") {
		t.Fatalf("expected cart.item.added event")
	}
}

func TestCartServiceAddItemValidation(t *testing.T) {
	svc := newTestCartService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  AddCartItemCommand
		want error
	}{
		{name: "blank session", cmd: AddCartItemCommand{SessionID: " ", ProductID: 1}, want: ErrCartInvalidInput},
		{name: "zero product", cmd: AddCartItemCommand{SessionID: "s", ProductID: 0}, want: ErrCartInvalidInput},
		{name: "negative quantity", cmd: AddCartItemCommand{SessionID: "s", ProductID: 1, Quantity: -1}, want: ErrCartInvalidInput},
		{name: "unknown product", cmd: AddCartItemCommand{SessionID: "s", ProductID: 404}, want: ErrCartProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddItem(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCartServiceAddItemKeepsCatalogCause(t *testing.T) {
	catalog := newStubCatalog(sampleProducts()...)
	svc, err := NewCartService(CartServiceDeps{Carts: newTestRegistry(t).Carts(), Catalog: catalog, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	ctx := context.Background()

	catalog.getErr = errors.New("upstream down")
	_, err = svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: 1})
	if !errors.Is(err, ErrCartUnavailable) || !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected cart and catalog unavailable, got %v", err)
	}

	catalog.getErr = context.DeadlineExceeded
	_, err = svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCartServiceUpdateItem(t *testing.T) {
	svc := newTestCartService(t, nil)
	ctx := context.Background()
	for _, id := range []int{1, 7} {
		if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: id}); err != nil {
			t.Fatalf("AddItem %d: %v", id, err)
		}
	}

	view, err := svc.UpdateItem(ctx, UpdateCartItemCommand{SessionID: "sess-1", ProductID: 7, Quantity: intPtr(4), Notes: stringPtr("  gift wrap ")})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got := view.Cart.Items[1]; got.Quantity != 4 || got.Notes != "gift wrap" {
		t.Fatalf("unexpected line %+v", got)
	}

	view, err = svc.UpdateItem(ctx, UpdateCartItemCommand{SessionID: "sess-1", ProductID: 1, Quantity: intPtr(0)})
	if err != nil {
		t.Fatalf("UpdateItem remove: %v", err)
	}
	ids := []int{}
	for _, item := range view.Cart.Items {
		ids = append(ids, item.ProductID)
	}
	if diff := cmp.Diff([]int{7}, ids); diff != "" {
		t.Fatalf("remaining lines (-want +got):\n%s", diff)
	}

	if _, err := svc.UpdateItem(ctx, UpdateCartItemCommand{SessionID: "sess-1", ProductID: 3, Quantity: intPtr(1)}); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	if _, err := svc.UpdateItem(ctx, UpdateCartItemCommand{SessionID: "sess-1", ProductID: 7}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for empty update, got %v", err)
	}
}

func TestCartServiceRemoveAndClear(t *testing.T) {
	svc := newTestCartService(t, nil)
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: 2}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.ApplyPromotion(ctx, "sess-1", "save10"); err != nil {
		t.Fatalf("ApplyPromotion: %v", err)
	}

	view, err := svc.RemoveItem(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(view.Cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", view.Cart.Items)
	}
	if _, err := svc.RemoveItem(ctx, "sess-1", 2); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}

	if err := svc.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	view, err = svc.GetCart(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if view.Cart.PromotionCode != "" || view.Summary.PromotionCode != "" {
		t.Fatalf("expected promotion to be cleared, got %+v", view.Summary)
	}
}

func TestCartServicePromotions(t *testing.T) {
	recorder := &eventRecorder{}
	svc := newTestCartService(t, recorder)
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, AddCartItemCommand{SessionID: "sess-1", ProductID: 7}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if _, err := svc.ApplyPromotion(ctx, "sess-1", "nope"); !errors.Is(err, ErrCartInvalidPromotion) {
		t.Fatalf("expected invalid promotion, got %v", err)
	}
	if !recorder.has("cart.promotion.rejected") {
		t.Fatalf("expected rejection event")
	}
	if _, err := svc.ApplyPromotion(ctx, "sess-1", "  "); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid input for blank code, got %v", err)
	}

	view, err := svc.ApplyPromotion(ctx, "sess-1", " first50 ")
	if err != nil {
		t.Fatalf("ApplyPromotion: %v", err)
	}
	// Mouse: 25 with 8% off.
	if view.Summary.Subtotal != 23 {
		t.Fatalf("expected subtotal 23, got %v", view.Summary.Subtotal)
	}
	if view.Summary.Discount != 23 {
		t.Fatalf("expected discount clamped to subtotal, got %v", view.Summary.Discount)
	}
	if view.Summary.PromotionCode != "FIRST50" {
		t.Fatalf("expected normalised code, got %q", view.Summary.PromotionCode)
	}
	if view.Summary.Total != 26.84 {
		t.Fatalf("expected total 26.84, got %v", view.Summary.Total)
	}

	view, err = svc.RemovePromotion(ctx, "sess-1")
	if err != nil {
		t.Fatalf("RemovePromotion: %v", err)
	}
	if view.Summary.Discount != 0 {
		t.Fatalf("expected no discount, got %v", view.Summary.Discount)
	}
}

func TestSummarizeCart(t *testing.T) {
	cases := []struct {
		name  string
		items []CartItem
		promo *Promotion
		want  CartSummary
	}{
		{
			name: "empty cart",
			want: CartSummary{},
		},
		{
			name:  "below threshold",
			items: []CartItem{{ProductID: 1, Price: 50, Quantity: 2}},
			want:  CartSummary{ItemCount: 2, Subtotal: 100, Shipping: 25, Tax: 8, Total: 133, FreeShippingRemaining: 400.01},
		},
		{
			name:  "exactly at threshold still pays shipping",
			items: []CartItem{{ProductID: 1, Price: 250, Quantity: 2}},
			want:  CartSummary{ItemCount: 2, Subtotal: 500, Shipping: 25, Tax: 40, Total: 565, FreeShippingRemaining: 0.01},
		},
		{
			name:  "above threshold ships free",
			items: []CartItem{{ProductID: 1, Price: 500.01, Quantity: 1}},
			want:  CartSummary{ItemCount: 1, Subtotal: 500.01, Tax: 40, Total: 540.01},
		},
		{
			name:  "promo clamped to subtotal",
			items: []CartItem{{ProductID: 1, Price: 30, Quantity: 1}},
			promo: &Promotion{Code: "FIRST50", Amount: 50},
			want:  CartSummary{ItemCount: 1, Subtotal: 30, Shipping: 25, Tax: 2.4, Discount: 30, Total: 27.4, FreeShippingRemaining: 470.01, PromotionCode: "FIRST50"},
		},
		{
			name:  "non-positive lines ignored",
			items: []CartItem{{ProductID: 1, Price: 10, Quantity: 0}, {ProductID: 2, Price: 10, Quantity: 1}},
			want:  CartSummary{ItemCount: 1, Subtotal: 10, Shipping: 25, Tax: 0.8, Total: 35.8, FreeShippingRemaining: 490.01},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SummarizeCart(tc.items, tc.promo)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("summary (-want +got):\n%s", diff)
			}
		})
	}
}
