package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hanko-field/storefront/internal/repositories"
)

const wishlistResolveConcurrency = 8

var (
	// ErrWishlistInvalidInput indicates a missing session or product id.
	ErrWishlistInvalidInput = errors.New("wishlist service: invalid input")
	// ErrWishlistItemNotFound indicates the product is not wishlisted.
	ErrWishlistItemNotFound = errors.New("wishlist service: item not found")
	// ErrWishlistUnavailable indicates the wishlist store cannot be reached.
	ErrWishlistUnavailable = errors.New("wishlist service: unavailable")
)

// WishlistServiceDeps bundles constructor inputs for the wishlist service.
type WishlistServiceDeps struct {
	Wishlists repositories.WishlistRepository
	Catalog   ProductCatalog
	Cart      CartService
	Logger    func(context.Context, string, map[string]any)
}

type wishlistService struct {
	repo    repositories.WishlistRepository
	catalog ProductCatalog
	cart    CartService
	logger  func(context.Context, string, map[string]any)
}

// NewWishlistService constructs the wishlist service. Catalog and Cart are optional; without them
// List cannot resolve products and MoveToCart is unavailable.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Wishlists == nil {
		return nil, errors.New("wishlist service: wishlist repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &wishlistService{
		repo:    deps.Wishlists,
		catalog: deps.Catalog,
		cart:    deps.Cart,
		logger:  logger,
	}, nil
}

func (s *wishlistService) List(ctx context.Context, sessionID string, resolve bool) (WishlistView, error) {
	if s == nil || s.repo == nil {
		return WishlistView{}, ErrWishlistUnavailable
	}
	sessionID, err := requireWishlistSession(sessionID)
	if err != nil {
		return WishlistView{}, err
	}
	ids, err := s.repo.List(ctx, sessionID)
	if err != nil {
		return WishlistView{}, translateRepoError(err, ErrWishlistUnavailable)
	}
	view := WishlistView{ProductIDs: nonNilIDs(ids)}
	if !resolve {
		return view, nil
	}
	if s.catalog == nil {
		return WishlistView{}, fmt.Errorf("%w: catalog is not configured", ErrWishlistUnavailable)
	}
	products, err := s.resolve(ctx, ids)
	if err != nil {
		return WishlistView{}, err
	}
	view.Products = products
	return view, nil
}

func (s *wishlistService) Add(ctx context.Context, sessionID string, productID int) (WishlistView, error) {
	return s.mutate(ctx, sessionID, productID, func(ids []int) []int {
		if slices.Contains(ids, productID) {
			return ids
		}
		return append(ids, productID)
	})
}

func (s *wishlistService) Remove(ctx context.Context, sessionID string, productID int) (WishlistView, error) {
	return s.mutate(ctx, sessionID, productID, func(ids []int) []int {
		return slices.DeleteFunc(ids, func(id int) bool { return id == productID })
	})
}

func (s *wishlistService) Toggle(ctx context.Context, sessionID string, productID int) (bool, error) {
	var added bool
	_, err := s.mutate(ctx, sessionID, productID, func(ids []int) []int {
		if slices.Contains(ids, productID) {
			added = false
			return slices.DeleteFunc(ids, func(id int) bool { return id == productID })
		}
		added = true
		return append(ids, productID)
	})
	if err != nil {
		return false, err
	}
	s.logger(ctx, "wishlist.toggled", map[string]any{"productId": productID, "added": added})
	return added, nil
}

func (s *wishlistService) Contains(ctx context.Context, sessionID string, productID int) (bool, error) {
	view, err := s.List(ctx, sessionID, false)
	if err != nil {
		return false, err
	}
	return slices.Contains(view.ProductIDs, productID), nil
}

func (s *wishlistService) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.repo == nil {
		return ErrWishlistUnavailable
	}
	sessionID, err := requireWishlistSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return translateRepoError(err, ErrWishlistUnavailable)
	}
	return nil
}

func (s *wishlistService) MoveToCart(ctx context.Context, sessionID string, productID int) (CartView, error) {
	if s == nil || s.repo == nil || s.cart == nil {
		return CartView{}, ErrWishlistUnavailable
	}
	contains, err := s.Contains(ctx, sessionID, productID)
	if err != nil {
		return CartView{}, err
	}
	if !contains {
		return CartView{}, fmt.Errorf("%w: %d", ErrWishlistItemNotFound, productID)
	}
	cart, err := s.cart.AddItem(ctx, AddCartItemCommand{SessionID: sessionID, ProductID: productID, Quantity: 1})
	if err != nil {
		return CartView{}, err
	}
	if _, err := s.Remove(ctx, sessionID, productID); err != nil {
		return CartView{}, err
	}
	s.logger(ctx, "wishlist.moved_to_cart", map[string]any{"productId": productID})
	return cart, nil
}

func (s *wishlistService) mutate(ctx context.Context, sessionID string, productID int, fn func([]int) []int) (WishlistView, error) {
	if s == nil || s.repo == nil {
		return WishlistView{}, ErrWishlistUnavailable
	}
	sessionID, err := requireWishlistSession(sessionID)
	if err != nil {
		return WishlistView{}, err
	}
	if productID <= 0 {
		return WishlistView{}, fmt.Errorf("%w: product id must be positive", ErrWishlistInvalidInput)
	}
	ids, err := s.repo.Update(ctx, sessionID, func(current []int) ([]int, error) {
		return fn(current), nil
	})
	if err != nil {
		return WishlistView{}, translateRepoError(err, ErrWishlistUnavailable)
	}
	return WishlistView{ProductIDs: nonNilIDs(ids)}, nil
}

// resolve fetches wishlisted products concurrently, keeping wishlist order. Products removed from
// the catalog are left out.
func (s *wishlistService) resolve(ctx context.Context, ids []int) ([]Product, error) {
	found := make([]*Product, len(ids))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(wishlistResolveConcurrency)
	for i, id := range ids {
		group.Go(func() error {
			p, err := s.catalog.GetProduct(gctx, id)
			if err != nil {
				translated := translateCatalogError(err)
				if errors.Is(translated, ErrCatalogNotFound) {
					return nil
				}
				return translated
			}
			found[i] = &p
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(ids))
	for _, p := range found {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func requireWishlistSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", ErrWishlistInvalidInput)
	}
	return sessionID, nil
}

func nonNilIDs(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
