package repositories

import (
	"context"

	domain "github.com/hanko-field/storefront/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Wishlists() WishlistRepository
	Addresses() AddressRepository
	Reviews() ReviewRepository
	RecentlyViewed() RecentlyViewedRepository
	Checkouts() CheckoutRepository
	Orders() OrderRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository persists the session cart lines and the applied promotion code. A session
// without a stored cart reads as an empty cart.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	UpdateItems(ctx context.Context, sessionID string, fn func(items []domain.CartItem) ([]domain.CartItem, error)) (domain.Cart, error)
	SetPromotion(ctx context.Context, sessionID string, code string) error
	Clear(ctx context.Context, sessionID string) error
}

// WishlistRepository persists wishlisted product ids in insertion order.
type WishlistRepository interface {
	List(ctx context.Context, sessionID string) ([]int, error)
	Update(ctx context.Context, sessionID string, fn func(ids []int) ([]int, error)) ([]int, error)
	Clear(ctx context.Context, sessionID string) error
}

// AddressRepository persists the saved delivery addresses of a session.
type AddressRepository interface {
	List(ctx context.Context, sessionID string) ([]domain.Address, error)
	Update(ctx context.Context, sessionID string, fn func(addresses []domain.Address) ([]domain.Address, error)) ([]domain.Address, error)
}

// ReviewRepository persists user reviews per product, newest first. Reviews are shared by all sessions.
type ReviewRepository interface {
	List(ctx context.Context, productID int) ([]domain.Review, error)
	Update(ctx context.Context, productID int, fn func(reviews []domain.Review) ([]domain.Review, error)) ([]domain.Review, error)
}

// RecentlyViewedRepository persists recently viewed product ids, most recent first.
type RecentlyViewedRepository interface {
	List(ctx context.Context, sessionID string) ([]int, error)
	Update(ctx context.Context, sessionID string, fn func(ids []int) ([]int, error)) ([]int, error)
}

// CheckoutRepository persists checkout progress. A session without state reads as the zero value.
type CheckoutRepository interface {
	Get(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	Save(ctx context.Context, sessionID string, state domain.CheckoutState) error
	Delete(ctx context.Context, sessionID string) error
}

// OrderRepository persists the order history of a session, newest first.
type OrderRepository interface {
	List(ctx context.Context, sessionID string) ([]domain.Order, error)
	Append(ctx context.Context, order domain.Order) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
