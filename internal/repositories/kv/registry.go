// Package kv implements the repositories on top of a kvstore.Store. Each record is one JSON value
// stored under a session scoped key and rewritten wholesale on every mutation.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hanko-field/storefront/internal/platform/kvstore"
	"github.com/hanko-field/storefront/internal/repositories"
)

const (
	keyCart           = "cart"
	keyCartPromo      = "cartPromo"
	keyWishlist       = "wishlist"
	keyAddresses      = "addresses"
	keyRecentlyViewed = "recentlyViewed"
	keyCheckout       = "checkout"
	keyOrders         = "orders"
	reviewKeyPrefix   = "reviews_"
)

var errSessionRequired = errors.New("kv repository: session id is required")

// Registry bundles the kv-backed repositories around one store.
type Registry struct {
	store  kvstore.Store
	health repositories.HealthRepository

	carts     *CartRepository
	wishlists *WishlistRepository
	addresses *AddressRepository
	reviews   *ReviewRepository
	viewed    *RecentlyViewedRepository
	checkouts *CheckoutRepository
	orders    *OrderRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every repository to store. health may be nil.
func NewRegistry(store kvstore.Store, health repositories.HealthRepository) (*Registry, error) {
	if store == nil {
		return nil, errors.New("kv registry: store is required")
	}
	return &Registry{
		store:     store,
		health:    health,
		carts:     NewCartRepository(store),
		wishlists: NewWishlistRepository(store),
		addresses: NewAddressRepository(store),
		reviews:   NewReviewRepository(store),
		viewed:    NewRecentlyViewedRepository(store),
		checkouts: NewCheckoutRepository(store),
		orders:    NewOrderRepository(store),
	}, nil
}

func (r *Registry) Close(context.Context) error                         { return r.store.Close() }
func (r *Registry) Carts() repositories.CartRepository                   { return r.carts }
func (r *Registry) Wishlists() repositories.WishlistRepository           { return r.wishlists }
func (r *Registry) Addresses() repositories.AddressRepository           { return r.addresses }
func (r *Registry) Reviews() repositories.ReviewRepository               { return r.reviews }
func (r *Registry) RecentlyViewed() repositories.RecentlyViewedRepository { return r.viewed }
func (r *Registry) Checkouts() repositories.CheckoutRepository           { return r.checkouts }
func (r *Registry) Orders() repositories.OrderRepository                 { return r.orders }
func (r *Registry) Health() repositories.HealthRepository                { return r.health }

// SessionKey builds the storage key of a session scoped record.
func SessionKey(sessionID, name string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errSessionRequired
	}
	return "session/" + sessionID + "/" + name, nil
}

// ReviewKey builds the storage key of a product's review list.
func ReviewKey(productID int) string {
	return reviewKeyPrefix + strconv.Itoa(productID)
}

// loadJSON returns the decoded record, or the zero value when the key is absent.
func loadJSON[T any](ctx context.Context, store kvstore.Store, key string) (T, error) {
	var out T
	raw, err := store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("kv repository: decode %s: %w", key, err)
	}
	return out, nil
}

// updateJSON atomically rewrites the record at key. Results reported empty by isEmpty delete the key.
func updateJSON[T any](ctx context.Context, store kvstore.Store, key string, isEmpty func(T) bool, fn func(current T) (T, error)) (T, error) {
	var result T
	err := store.Update(ctx, key, func(raw []byte, exists bool) ([]byte, error) {
		var current T
		if exists && len(raw) > 0 {
			if err := json.Unmarshal(raw, &current); err != nil {
				return nil, fmt.Errorf("kv repository: decode %s: %w", key, err)
			}
		}
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		result = next
		if isEmpty != nil && isEmpty(next) {
			return nil, nil
		}
		return json.Marshal(next)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func emptySlice[E any](items []E) bool { return len(items) == 0 }
