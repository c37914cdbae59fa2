package domain

import (
	"time"
)

// Product is a catalog item as served by the upstream product API after normalisation.
type Product struct {
	ID                 int
	Title              string
	Description        string
	Price              float64
	DiscountPercentage float64
	Rating             float64
	Stock              int
	Brand              string
	Category           string
	Thumbnail          string
	Images             []string
	Tags               []string
	Reviews            []CatalogReview
}

// CatalogReview is a review embedded in the upstream product detail payload.
type CatalogReview struct {
	Rating        float64
	Comment       string
	ReviewerName  string
	ReviewerEmail string
	Date          time.Time
}

// ProductPage is one page of products returned by the catalog API.
type ProductPage struct {
	Products []Product
	Total    int
	Skip     int
	Limit    int
}

// Category describes a catalog category.
type Category struct {
	Name  string
	Slug  string
	Image string
}

// CartItem is the canonical cart line. Quantity is always positive for persisted lines.
type CartItem struct {
	ProductID int
	Name      string
	Price     float64
	Image     string
	Quantity  int
	Notes     string
}

// Cart groups the session cart lines with the applied promotion code.
type Cart struct {
	SessionID     string
	Items         []CartItem
	PromotionCode string
	UpdatedAt     time.Time
}

// CartSummary captures the cart page totals. Amounts are in catalog currency, rounded to two places.
type CartSummary struct {
	ItemCount             int
	Subtotal              float64
	Shipping              float64
	Tax                   float64
	Discount              float64
	Total                 float64
	FreeShippingRemaining float64
	PromotionCode         string
}

// Promotion is a fixed-amount promo code.
type Promotion struct {
	Code   string
	Amount float64
	Label  string
}

// AddressType labels a delivery address.
type AddressType string

const (
	// AddressTypeHome is the default address type.
	AddressTypeHome AddressType = "home"
	// AddressTypeWork marks an office address.
	AddressTypeWork AddressType = "work"
	// AddressTypeOther covers everything else.
	AddressTypeOther AddressType = "other"
)

// Address is a saved delivery address.
type Address struct {
	ID        string
	Name      string
	Phone     string
	Line      string
	City      string
	State     string
	Pincode   string
	IsDefault bool
	Type      AddressType
}

// Review is a user-authored product review.
type Review struct {
	ID        string
	ProductID int
	UserName  string
	Rating    int
	Title     string
	Comment   string
	Date      time.Time
	Verified  bool
	Helpful   int
	Pros      []string
	Cons      []string
}

// ReviewSummary aggregates product ratings. Count covers user reviews only; Total adds the reviews
// embedded in the catalog payload.
type ReviewSummary struct {
	Average      float64
	Count        int
	Total        int
	Distribution map[int]int
}

// CheckoutStep is the position within the checkout flow.
type CheckoutStep string

const (
	// CheckoutStepAddress selects the delivery address.
	CheckoutStepAddress CheckoutStep = "address"
	// CheckoutStepPayment selects the payment method.
	CheckoutStepPayment CheckoutStep = "payment"
	// CheckoutStepReview confirms the order.
	CheckoutStepReview CheckoutStep = "review"
)

// PaymentMethod enumerates simulated payment options.
type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)

// CheckoutState is the persisted checkout progress of a session.
type CheckoutState struct {
	Step          CheckoutStep
	AddressID     string
	PaymentMethod PaymentMethod
}

// CheckoutLine is a cart line priced in rupees.
type CheckoutLine struct {
	ProductID int
	Name      string
	Image     string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// CheckoutQuote holds checkout totals in whole rupees.
type CheckoutQuote struct {
	Lines           []CheckoutLine
	Subtotal        int64
	Shipping        int64
	Tax             int64
	Total           int64
	SavedOnShipping int64
}

// OrderStatus describes the lifecycle of a simulated order.
type OrderStatus string

const (
	// OrderStatusConfirmed is the only status a simulated payment produces.
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order is a placed order snapshot.
type Order struct {
	ID            string
	SessionID     string
	Status        OrderStatus
	PaymentMethod PaymentMethod
	Address       Address
	Quote         CheckoutQuote
	PlacedAt      time.Time
}
