package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	ProductPage        = domain.ProductPage
	Category           = domain.Category
	ProductFilter      = domain.ProductFilter
	ProductSort        = domain.ProductSort
	Facets             = domain.Facets
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartSummary        = domain.CartSummary
	Promotion          = domain.Promotion
	Address            = domain.Address
	AddressType        = domain.AddressType
	Review             = domain.Review
	ReviewSummary      = domain.ReviewSummary
	CheckoutState      = domain.CheckoutState
	CheckoutStep       = domain.CheckoutStep
	PaymentMethod      = domain.PaymentMethod
	CheckoutQuote      = domain.CheckoutQuote
	CheckoutLine       = domain.CheckoutLine
	Order              = domain.Order
	SystemHealthReport = domain.SystemHealthReport
)

// ProductCatalog is the read-only product source. *catalog.Client implements it.
type ProductCatalog interface {
	ListProducts(ctx context.Context, limit, skip int) (ProductPage, error)
	SearchProducts(ctx context.Context, query string, limit int) (ProductPage, error)
	ListProductsByCategory(ctx context.Context, slug string, limit int) (ProductPage, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetProduct(ctx context.Context, id int) (Product, error)
}

// PromotionSource resolves promo codes. Codes are already trimmed and upper-cased.
type PromotionSource interface {
	Lookup(code string) (Promotion, bool)
	List() []Promotion
}

// HomeCategorySource supplies the curated home page categories. An empty result means the
// catalog categories are used instead.
type HomeCategorySource interface {
	HomeCategories() []Category
}

// ProductListQuery selects one filtered and sorted page of products.
type ProductListQuery struct {
	Limit  int
	Skip   int
	Filter ProductFilter
	Sort   ProductSort
}

// SearchQuery runs a full text search with the listing filters.
type SearchQuery struct {
	Query  string
	Limit  int
	Filter ProductFilter
	Sort   ProductSort
}

// ProductListing is a filtered, sorted product set plus the facets of the unfiltered fetch.
type ProductListing struct {
	Products      []Product
	Total         int
	Skip          int
	Limit         int
	Facets        Facets
	ActiveFilters int
	Sort          ProductSort
}

// HomeFeed holds the home page rails.
type HomeFeed struct {
	Featured    []Product
	TopRated    []Product
	NewArrivals []Product
	FlashSale   []Product
	Recommended []Product
	Categories  []Category
}

// ComparisonValue is one product's cell in a comparison row.
type ComparisonValue struct {
	ProductID int
	Value     any
	Display   string
	Best      bool
}

// ComparisonRow is one compared feature across all products.
type ComparisonRow struct {
	Feature string
	Label   string
	Values  []ComparisonValue
}

// ProductHighlights lists the strengths and weaknesses shown under a compared product.
type ProductHighlights struct {
	ProductID int
	Pros      []string
	Cons      []string
}

// Comparison is the side-by-side view of 2 to 4 products.
type Comparison struct {
	Products   []Product
	Rows       []ComparisonRow
	Highlights []ProductHighlights
}

// DeliveryEstimate answers a pincode availability check.
type DeliveryEstimate struct {
	Pincode      string
	Available    bool
	Message      string
	FreeDelivery bool
	EstimatedBy  time.Time
}

// CatalogService serves product listings, search, detail, home rails and comparison.
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductListQuery) (ProductListing, error)
	SearchProducts(ctx context.Context, query SearchQuery) (ProductListing, error)
	GetProduct(ctx context.Context, id int) (Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListCategoryProducts(ctx context.Context, slug string, query ProductListQuery) (ProductListing, error)
	Home(ctx context.Context) (HomeFeed, error)
	CompareProducts(ctx context.Context, ids []int) (Comparison, error)
	CheckDelivery(ctx context.Context, pincode string) (DeliveryEstimate, error)
}

// Recommendations holds every rail of the product detail page.
type Recommendations struct {
	Similar          []Product
	Trending         []Product
	RecentlyViewed   []Product
	FrequentlyBought []Product
}

// RecommendationService computes the product rails of the detail page.
type RecommendationService interface {
	ForProduct(ctx context.Context, sessionID string, product Product) (Recommendations, error)
	Similar(ctx context.Context, product Product) ([]Product, error)
	Trending(ctx context.Context, excludeID int) ([]Product, error)
	RecentlyViewed(ctx context.Context, sessionID string, excludeID int) ([]Product, error)
	FrequentlyBought(ctx context.Context, product Product) ([]Product, error)
	RecordView(ctx context.Context, sessionID string, productID int) ([]int, error)
}

// CartView is a cart with its computed summary.
type CartView struct {
	Cart    Cart
	Summary CartSummary
}

// AddCartItemCommand adds quantity units of a product.
type AddCartItemCommand struct {
	SessionID string
	ProductID int
	Quantity  int
}

// UpdateCartItemCommand changes a line. Nil fields are left untouched.
type UpdateCartItemCommand struct {
	SessionID string
	ProductID int
	Quantity  *int
	Notes     *string
}

// CartService implements the cart page rules.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (CartView, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error)
	UpdateItem(ctx context.Context, cmd UpdateCartItemCommand) (CartView, error)
	RemoveItem(ctx context.Context, sessionID string, productID int) (CartView, error)
	Clear(ctx context.Context, sessionID string) error
	ApplyPromotion(ctx context.Context, sessionID, code string) (CartView, error)
	RemovePromotion(ctx context.Context, sessionID string) (CartView, error)
}

// WishlistView lists wishlisted ids and, when resolved, the products.
type WishlistView struct {
	ProductIDs []int
	Products   []Product
}

// WishlistService manages the session wishlist.
type WishlistService interface {
	List(ctx context.Context, sessionID string, resolve bool) (WishlistView, error)
	Add(ctx context.Context, sessionID string, productID int) (WishlistView, error)
	Remove(ctx context.Context, sessionID string, productID int) (WishlistView, error)
	Toggle(ctx context.Context, sessionID string, productID int) (bool, error)
	Contains(ctx context.Context, sessionID string, productID int) (bool, error)
	Clear(ctx context.Context, sessionID string) error
	MoveToCart(ctx context.Context, sessionID string, productID int) (CartView, error)
}

// AddressInput is the editable part of an address.
type AddressInput struct {
	Name      string
	Phone     string
	Line      string
	City      string
	State     string
	Pincode   string
	Type      AddressType
	IsDefault bool
}

// AddressService manages saved delivery addresses.
type AddressService interface {
	List(ctx context.Context, sessionID string) ([]Address, error)
	Add(ctx context.Context, sessionID string, input AddressInput) (Address, error)
	Update(ctx context.Context, sessionID, addressID string, input AddressInput) (Address, error)
	Delete(ctx context.Context, sessionID, addressID string) ([]Address, error)
	SetDefault(ctx context.Context, sessionID, addressID string) ([]Address, error)
}

// ReviewInput is a new user review as submitted.
type ReviewInput struct {
	UserName string
	Rating   int
	Title    string
	Comment  string
	Pros     string
	Cons     string
}

// ReviewService manages user reviews and rating summaries.
type ReviewService interface {
	List(ctx context.Context, productID int) ([]Review, error)
	Add(ctx context.Context, productID int, input ReviewInput) (Review, error)
	MarkHelpful(ctx context.Context, productID int, reviewID string) (Review, error)
	Summary(ctx context.Context, product Product) (ReviewSummary, error)
	RenderComment(review Review) string
}

// CheckoutSession is the checkout page state with the resolved address and quote.
type CheckoutSession struct {
	Step          CheckoutStep
	Address       *Address
	PaymentMethod PaymentMethod
	Quote         CheckoutQuote
	ItemCount     int
}

// CheckoutService implements the checkout page rules and order history.
type CheckoutService interface {
	GetSession(ctx context.Context, sessionID string) (CheckoutSession, error)
	SelectAddress(ctx context.Context, sessionID, addressID string) (CheckoutSession, error)
	SelectPayment(ctx context.Context, sessionID string, method PaymentMethod) (CheckoutSession, error)
	SetStep(ctx context.Context, sessionID string, step CheckoutStep) (CheckoutSession, error)
	PlaceOrder(ctx context.Context, sessionID string) (Order, error)
	ListOrders(ctx context.Context, sessionID string) ([]Order, error)
	GetOrder(ctx context.Context, sessionID, orderID string) (Order, error)
}

// OrderPlacedEvent is published once per placed order.
type OrderPlacedEvent struct {
	EventID       string    `json:"event_id"`
	OrderID       string    `json:"order_id"`
	SessionID     string    `json:"session_id"`
	PaymentMethod string    `json:"payment_method"`
	ItemCount     int       `json:"item_count"`
	Total         int64     `json:"total_inr"`
	PlacedAt      time.Time `json:"placed_at"`
}

// OrderEventPublisher delivers order events to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) (string, error)
}

// SystemService exposes health information.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

func noopLogger(context.Context, string, map[string]any) {}

// translateRepoError wraps unavailable and conflicting storage failures with the service sentinel.
// Other errors pass through unchanged.
func translateRepoError(err error, unavailable error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && (repoErr.IsUnavailable() || repoErr.IsConflict()) {
		return fmt.Errorf("%w: %w", unavailable, err)
	}
	return err
}
