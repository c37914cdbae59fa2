package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestWishlistService(t *testing.T) (WishlistService, CartService) {
	t.Helper()
	registry := newTestRegistry(t)
	stub := newStubCatalog(sampleProducts()...)
	cart, err := NewCartService(CartServiceDeps{Carts: registry.Carts(), Catalog: stub, Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	svc, err := NewWishlistService(WishlistServiceDeps{Wishlists: registry.Wishlists(), Catalog: stub, Cart: cart})
	if err != nil {
		t.Fatalf("NewWishlistService: %v", err)
	}
	return svc, cart
}

func TestWishlistServiceAddRemoveToggle(t *testing.T) {
	svc, _ := newTestWishlistService(t)
	ctx := context.Background()

	for _, id := range []int{4, 2, 4} {
		if _, err := svc.Add(ctx, "sess-1", id); err != nil {
			t.Fatalf("Add %d: %v", id, err)
		}
	}
	view, err := svc.List(ctx, "sess-1", false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]int{4, 2}, view.ProductIDs); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}

	added, err := svc.Toggle(ctx, "sess-1", 4)
	if err != nil || added {
		t.Fatalf("expected toggle to remove, got added=%v err=%v", added, err)
	}
	added, err = svc.Toggle(ctx, "sess-1", 7)
	if err != nil || !added {
		t.Fatalf("expected toggle to add, got added=%v err=%v", added, err)
	}

	view, err = svc.Remove(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if diff := cmp.Diff([]int{7}, view.ProductIDs); diff != "" {
		t.Fatalf("ids after remove (-want +got):\n%s", diff)
	}

	ok, err := svc.Contains(ctx, "sess-1", 7)
	if err != nil || !ok {
		t.Fatalf("expected 7 to be wishlisted, got %v %v", ok, err)
	}

	if err := svc.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	view, err = svc.List(ctx, "sess-1", false)
	if err != nil {
		t.Fatalf("List after clear: %v", err)
	}
	if len(view.ProductIDs) != 0 || view.ProductIDs == nil {
		t.Fatalf("expected empty non-nil ids, got %#v", view.ProductIDs)
	}
}

func TestWishlistServiceListResolvesProducts(t *testing.T) {
	svc, _ := newTestWishlistService(t)
	ctx := context.Background()
	for _, id := range []int{5, 99, 1} {
		if _, err := svc.Add(ctx, "sess-1", id); err != nil {
			t.Fatalf("Add %d: %v", id, err)
		}
	}

	view, err := svc.List(ctx, "sess-1", true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]int{5, 1}, productIDs(view.Products)); diff != "" {
		t.Fatalf("resolved products (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{5, 99, 1}, view.ProductIDs); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
}

func TestWishlistServiceMoveToCart(t *testing.T) {
	svc, cart := newTestWishlistService(t)
	ctx := context.Background()
	if _, err := svc.Add(ctx, "sess-1", 6); err != nil {
		t.Fatalf("Add: %v", err)
	}

	view, err := svc.MoveToCart(ctx, "sess-1", 6)
	if err != nil {
		t.Fatalf("MoveToCart: %v", err)
	}
	if len(view.Cart.Items) != 1 || view.Cart.Items[0].ProductID != 6 || view.Cart.Items[0].Quantity != 1 {
		t.Fatalf("unexpected cart %+v", view.Cart.Items)
	}
	if ok, _ := svc.Contains(ctx, "sess-1", 6); ok {
		t.Fatalf("expected product to leave the wishlist")
	}
	stored, err := cart.GetCart(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if stored.Summary.ItemCount != 1 {
		t.Fatalf("expected one cart item, got %d", stored.Summary.ItemCount)
	}

	if _, err := svc.MoveToCart(ctx, "sess-1", 6); !errors.Is(err, ErrWishlistItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
}

func TestWishlistServiceValidation(t *testing.T) {
	svc, _ := newTestWishlistService(t)
	ctx := context.Background()
	if _, err := svc.Add(ctx, "", 1); !errors.Is(err, ErrWishlistInvalidInput) {
		t.Fatalf("expected invalid input for blank session, got %v", err)
	}
	if _, err := svc.Add(ctx, "sess-1", -3); !errors.Is(err, ErrWishlistInvalidInput) {
		t.Fatalf("expected invalid input for negative id, got %v", err)
	}
	if _, err := NewWishlistService(WishlistServiceDeps{}); err == nil {
		t.Fatalf("expected error when repository missing")
	}
}
