package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

func newTestRegistry(t *testing.T) (*Registry, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	reg, err := NewRegistry(store, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg, store
}

func TestCartRepositoryRoundTrip(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	repo := reg.Carts()

	cart, err := repo.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cart.Items) != 0 || cart.PromotionCode != "" {
		t.Fatalf("expected empty cart, got %+v", cart)
	}

	cart, err = repo.UpdateItems(ctx, "sess-1", func(items []domain.CartItem) ([]domain.CartItem, error) {
		return append(items,
			domain.CartItem{ProductID: 1, Name: "Phone", Price: 549, Image: "/p1.jpg", Quantity: 2, Notes: "  gift  "},
			domain.CartItem{ProductID: 2, Name: "Ghost", Price: 10, Quantity: 0},
		), nil
	})
	if err != nil {
		t.Fatalf("UpdateItems: %v", err)
	}
	want := []domain.CartItem{{ProductID: 1, Name: "Phone", Price: 549, Image: "/p1.jpg", Quantity: 2, Notes: "gift"}}
	if diff := cmp.Diff(want, cart.Items); diff != "" {
		t.Fatalf("unexpected items (-want +got):\n%s", diff)
	}

	if err := repo.SetPromotion(ctx, "sess-1", " SAVE10 "); err != nil {
		t.Fatalf("SetPromotion: %v", err)
	}
	cart, err = repo.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cart.PromotionCode != "SAVE10" {
		t.Fatalf("expected promotion SAVE10, got %q", cart.PromotionCode)
	}

	raw, err := store.Get(ctx, "session/sess-1/cart")
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if got := string(raw); got != `[{"id":1,"name":"Phone","price":549,"image":"/p1.jpg","quantity":2,"notes":"gift"}]` {
		t.Fatalf("unexpected stored cart %s", got)
	}

	if err := repo.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Get(ctx, "session/sess-1/cart"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected cart key removed, got %v", err)
	}
	if _, err := store.Get(ctx, "session/sess-1/cartPromo"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected promo key removed, got %v", err)
	}
}

func TestCartRepositoryRemovesKeyWhenEmptied(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	repo := reg.Carts()

	if _, err := repo.UpdateItems(ctx, "s", func([]domain.CartItem) ([]domain.CartItem, error) {
		return []domain.CartItem{{ProductID: 3, Quantity: 1}}, nil
	}); err != nil {
		t.Fatalf("UpdateItems: %v", err)
	}
	if _, err := repo.UpdateItems(ctx, "s", func([]domain.CartItem) ([]domain.CartItem, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("UpdateItems: %v", err)
	}
	if _, err := store.Get(ctx, "session/s/cart"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected empty cart to delete key, got %v", err)
	}
}

func TestCartRepositoryPropagatesMutationError(t *testing.T) {
	reg, _ := newTestRegistry(t)
	boom := errors.New("boom")
	_, err := reg.Carts().UpdateItems(context.Background(), "s", func([]domain.CartItem) ([]domain.CartItem, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRepositoriesRequireSession(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	if _, err := reg.Carts().Get(ctx, " "); !errors.Is(err, errSessionRequired) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := reg.Wishlists().List(ctx, ""); !errors.Is(err, errSessionRequired) {
		t.Fatalf("expected session error, got %v", err)
	}
	if err := reg.Checkouts().Save(ctx, "", domain.CheckoutState{}); !errors.Is(err, errSessionRequired) {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestWishlistRepositoryNormalisesIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	repo := reg.Wishlists()

	ids, err := repo.Update(ctx, "s", func(current []int) ([]int, error) {
		return append(current, 5, 3, 5, -1, 0, 9), nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if diff := cmp.Diff([]int{5, 3, 9}, ids); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	listed, err := repo.List(ctx, "s")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff(ids, listed); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if err := repo.Clear(ctx, "s"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	listed, err = repo.List(ctx, "s")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty wishlist, got %v", listed)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	if _, err := reg.RecentlyViewed().Update(ctx, "a", func([]int) ([]int, error) { return []int{1, 2}, nil }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ids, err := reg.RecentlyViewed().List(ctx, "b")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected session b to be empty, got %v", ids)
	}
}

func TestAddressRepositoryDefaultsType(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	if err := store.Set(ctx, "session/s/addresses", []byte(`[{"id":"a1","name":"Asha","address":"12 MG Road","pincode":"560001","type":"villa"},{"name":"missing id"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	addresses, err := reg.Addresses().List(ctx, "s")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []domain.Address{{ID: "a1", Name: "Asha", Line: "12 MG Road", Pincode: "560001", Type: domain.AddressTypeHome}}
	if diff := cmp.Diff(want, addresses); diff != "" {
		t.Fatalf("unexpected addresses (-want +got):\n%s", diff)
	}

	updated, err := reg.Addresses().Update(ctx, "s", func(current []domain.Address) ([]domain.Address, error) {
		current[0].Type = domain.AddressTypeWork
		return current, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated[0].Type != domain.AddressTypeWork {
		t.Fatalf("expected work address, got %s", updated[0].Type)
	}
}

func TestReviewRepositoryIsSharedAcrossSessions(t *testing.T) {
	reg, store := newTestRegistry(t)
	ctx := context.Background()
	date := time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)

	_, err := reg.Reviews().Update(ctx, 7, func(current []domain.Review) ([]domain.Review, error) {
		return append([]domain.Review{{ID: "r1", UserName: "Anonymous User", Rating: 4, Comment: "Solid", Date: date, Verified: true, Pros: []string{"battery"}}}, current...), nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.Get(ctx, "reviews_7"); err != nil {
		t.Fatalf("expected reviews_7 key, got %v", err)
	}
	reviews, err := reg.Reviews().List(ctx, 7)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []domain.Review{{ID: "r1", ProductID: 7, UserName: "Anonymous User", Rating: 4, Comment: "Solid", Date: date, Verified: true, Pros: []string{"battery"}}}
	if diff := cmp.Diff(want, reviews); diff != "" {
		t.Fatalf("unexpected reviews (-want +got):\n%s", diff)
	}
	if _, err := reg.Reviews().List(ctx, 0); err == nil {
		t.Fatalf("expected error for product id 0")
	}
}

func TestCheckoutRepositoryRoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	repo := reg.Checkouts()

	state, err := repo.Get(ctx, "s")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state != (domain.CheckoutState{}) {
		t.Fatalf("expected zero state, got %+v", state)
	}
	saved := domain.CheckoutState{Step: domain.CheckoutStepPayment, AddressID: "a1", PaymentMethod: domain.PaymentMethodUPI}
	if err := repo.Save(ctx, "s", saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	state, err = repo.Get(ctx, "s")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state != saved {
		t.Fatalf("expected %+v, got %+v", saved, state)
	}
	if err := repo.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	state, _ = repo.Get(ctx, "s")
	if state != (domain.CheckoutState{}) {
		t.Fatalf("expected zero state after delete, got %+v", state)
	}
}

func TestOrderRepositoryPrependsAndDeduplicates(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	placed := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	first := domain.Order{
		ID:            "ORD1717228800000",
		SessionID:     "s",
		Status:        domain.OrderStatusConfirmed,
		PaymentMethod: domain.PaymentMethodCOD,
		Address:       domain.Address{ID: "a1", Name: "Asha", Type: domain.AddressTypeHome},
		Quote: domain.CheckoutQuote{
			Lines:    []domain.CheckoutLine{{ProductID: 1, Name: "Phone", Quantity: 1, UnitPrice: 45567, LineTotal: 45567}},
			Subtotal: 45567, Tax: 8202, Total: 53769, SavedOnShipping: 100,
		},
		PlacedAt: placed,
	}
	second := first
	second.ID = "ORD1717228900000"
	second.PlacedAt = placed.Add(100 * time.Second)

	for _, order := range []domain.Order{first, second, first} {
		if err := reg.Orders().Append(ctx, order); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	orders, err := reg.Orders().List(ctx, "s")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]domain.Order{second, first}, orders); diff != "" {
		t.Fatalf("unexpected orders (-want +got):\n%s", diff)
	}
	if err := reg.Orders().Append(ctx, domain.Order{SessionID: "s"}); err == nil {
		t.Fatalf("expected error for missing order id")
	}
}
