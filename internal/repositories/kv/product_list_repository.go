package kv

import (
	"context"
	"errors"

	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

// productIDList stores an ordered list of product ids under one session key.
type productIDList struct {
	store kvstore.Store
	name  string
}

func (l productIDList) list(ctx context.Context, sessionID string) ([]int, error) {
	key, err := SessionKey(sessionID, l.name)
	if err != nil {
		return nil, err
	}
	ids, err := loadJSON[[]int](ctx, l.store, key)
	if err != nil {
		return nil, err
	}
	return normaliseIDs(ids), nil
}

func (l productIDList) update(ctx context.Context, sessionID string, fn func([]int) ([]int, error)) ([]int, error) {
	key, err := SessionKey(sessionID, l.name)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.New("kv repository: list mutation is required")
	}
	ids, err := updateJSON(ctx, l.store, key, emptySlice[int], func(current []int) ([]int, error) {
		next, err := fn(normaliseIDs(current))
		if err != nil {
			return nil, err
		}
		return normaliseIDs(next), nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (l productIDList) clear(ctx context.Context, sessionID string) error {
	key, err := SessionKey(sessionID, l.name)
	if err != nil {
		return err
	}
	return l.store.Delete(ctx, key)
}

// normaliseIDs drops non-positive and duplicate ids, keeping first occurrences.
func normaliseIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// WishlistRepository stores wishlisted product ids under "wishlist".
type WishlistRepository struct {
	ids productIDList
}

// NewWishlistRepository constructs a kv-backed wishlist repository.
func NewWishlistRepository(store kvstore.Store) *WishlistRepository {
	return &WishlistRepository{ids: productIDList{store: store, name: keyWishlist}}
}

func (r *WishlistRepository) List(ctx context.Context, sessionID string) ([]int, error) {
	return r.ids.list(ctx, sessionID)
}

func (r *WishlistRepository) Update(ctx context.Context, sessionID string, fn func([]int) ([]int, error)) ([]int, error) {
	return r.ids.update(ctx, sessionID, fn)
}

func (r *WishlistRepository) Clear(ctx context.Context, sessionID string) error {
	return r.ids.clear(ctx, sessionID)
}

// RecentlyViewedRepository stores product ids under "recentlyViewed".
type RecentlyViewedRepository struct {
	ids productIDList
}

// NewRecentlyViewedRepository constructs a kv-backed recently viewed repository.
func NewRecentlyViewedRepository(store kvstore.Store) *RecentlyViewedRepository {
	return &RecentlyViewedRepository{ids: productIDList{store: store, name: keyRecentlyViewed}}
}

func (r *RecentlyViewedRepository) List(ctx context.Context, sessionID string) ([]int, error) {
	return r.ids.list(ctx, sessionID)
}

func (r *RecentlyViewedRepository) Update(ctx context.Context, sessionID string, fn func([]int) ([]int, error)) ([]int, error) {
	return r.ids.update(ctx, sessionID, fn)
}
