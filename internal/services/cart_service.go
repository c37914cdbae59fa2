package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/repositories"
)

const (
	freeShippingThreshold = 500
	flatShippingFee       = 25
	cartTaxRate           = 0.08
	maxCartNotesLength    = 500
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid data.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartItemNotFound indicates the product is not in the cart.
	ErrCartItemNotFound = errors.New("cart service: item not found")
	// ErrCartProductNotFound indicates the product does not exist in the catalog.
	ErrCartProductNotFound = errors.New("cart service: product not found")
	// ErrCartInvalidPromotion indicates an unknown promo code.
	ErrCartInvalidPromotion = errors.New("cart service: invalid promotion code")
	// ErrCartUnavailable indicates the cart store or catalog cannot be reached.
	ErrCartUnavailable = errors.New("cart service: unavailable")
)

// CartServiceDeps bundles constructor inputs for the cart service.
type CartServiceDeps struct {
	Carts      repositories.CartRepository
	Catalog    ProductCatalog
	Promotions PromotionSource
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo       repositories.CartRepository
	catalog    ProductCatalog
	promotions PromotionSource
	clock      func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewCartService constructs the cart service.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: product catalog is required")
	}
	promotions := deps.Promotions
	if promotions == nil {
		promotions = NewPromotionCatalog(nil)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &cartService{
		repo:       deps.Carts,
		catalog:    deps.Catalog,
		promotions: promotions,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

func (s *cartService) GetCart(ctx context.Context, sessionID string) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	sessionID, err := requireCartSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return CartView{}, translateRepoError(err, ErrCartUnavailable)
	}
	return s.view(cart), nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error) {
	if s == nil || s.repo == nil || s.catalog == nil {
		return CartView{}, ErrCartUnavailable
	}
	sessionID, err := requireCartSession(cmd.SessionID)
	if err != nil {
		return CartView{}, err
	}
	if cmd.ProductID <= 0 {
		return CartView{}, fmt.Errorf("%w: product id must be positive", ErrCartInvalidInput)
	}
	quantity := cmd.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return CartView{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}

	product, err := s.catalog.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		translated := translateCatalogError(err)
		if errors.Is(translated, ErrCatalogNotFound) {
			return CartView{}, fmt.Errorf("%w: %d", ErrCartProductNotFound, cmd.ProductID)
		}
		return CartView{}, fmt.Errorf("%w: %w", ErrCartUnavailable, translated)
	}

	cart, err := s.repo.UpdateItems(ctx, sessionID, func(items []CartItem) ([]CartItem, error) {
		for i := range items {
			if items[i].ProductID == product.ID {
				items[i].Quantity += quantity
				return items, nil
			}
		}
		return append(items, CartItem{
			ProductID: product.ID,
			Name:      product.Title,
			Price:     domain.DiscountedPrice(product.Price, product.DiscountPercentage),
			Image:     product.Thumbnail,
			Quantity:  quantity,
		}), nil
	})
	if err != nil {
		return CartView{}, translateRepoError(err, ErrCartUnavailable)
	}
	s.logger(ctx, "cart.item.added", map[string]any{
		"productId": product.ID,
		"quantity":  quantity,
	})
	return s.view(cart), nil
}

func (s *cartService) UpdateItem(ctx context.Context, cmd UpdateCartItemCommand) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	sessionID, err := requireCartSession(cmd.SessionID)
	if err != nil {
		return CartView{}, err
	}
	if cmd.ProductID <= 0 {
		return CartView{}, fmt.Errorf("%w: product id must be positive", ErrCartInvalidInput)
	}
	if cmd.Quantity == nil && cmd.Notes == nil {
		return CartView{}, fmt.Errorf("%w: quantity or notes is required", ErrCartInvalidInput)
	}
	var notes string
	if cmd.Notes != nil {
		notes = strings.TrimSpace(*cmd.Notes)
		if len([]rune(notes)) > maxCartNotesLength {
			return CartView{}, fmt.Errorf("%w: notes must be at most %d characters", ErrCartInvalidInput, maxCartNotesLength)
		}
	}

	cart, err := s.repo.UpdateItems(ctx, sessionID, func(items []CartItem) ([]CartItem, error) {
		for i := range items {
			if items[i].ProductID != cmd.ProductID {
				continue
			}
			if cmd.Quantity != nil {
				if *cmd.Quantity <= 0 {
					return append(items[:i:i], items[i+1:]...), nil
				}
				items[i].Quantity = *cmd.Quantity
			}
			if cmd.Notes != nil {
				items[i].Notes = notes
			}
			return items, nil
		}
		return nil, ErrCartItemNotFound
	})
	if err != nil {
		return CartView{}, translateRepoError(err, ErrCartUnavailable)
	}
	return s.view(cart), nil
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, productID int) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	sessionID, err := requireCartSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	if productID <= 0 {
		return CartView{}, fmt.Errorf("%w: product id must be positive", ErrCartInvalidInput)
	}
	cart, err := s.repo.UpdateItems(ctx, sessionID, func(items []CartItem) ([]CartItem, error) {
		out := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				out = append(out, item)
			}
		}
		return out, nil
	})
	if err != nil {
		return CartView{}, translateRepoError(err, ErrCartUnavailable)
	}
	s.logger(ctx, "cart.item.removed", map[string]any{"productId": productID})
	return s.view(cart), nil
}

func (s *cartService) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}
	sessionID, err := requireCartSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return translateRepoError(err, ErrCartUnavailable)
	}
	return nil
}

func (s *cartService) ApplyPromotion(ctx context.Context, sessionID, code string) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	sessionID, err := requireCartSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	normalized := NormalizePromotionCode(code)
	if normalized == "" {
		return CartView{}, fmt.Errorf("%w: promotion code is required", ErrCartInvalidInput)
	}
	promo, ok := s.promotions.Lookup(normalized)
	if !ok {
		s.logger(ctx, "cart.promotion.rejected", map[string]any{"code": normalized})
		return CartView{}, fmt.Errorf("%w: %s", ErrCartInvalidPromotion, normalized)
	}
	if err := s.repo.SetPromotion(ctx, sessionID, promo.Code); err != nil {
		return CartView{}, translateRepoError(err, ErrCartUnavailable)
	}
	s.logger(ctx, "cart.promotion.applied", map[string]any{"code": promo.Code, "amount": promo.Amount})
	return s.GetCart(ctx, sessionID)
}

func (s *cartService) RemovePromotion(ctx context.Context, sessionID string) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	sessionID, err := requireCartSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	if err := s.repo.SetPromotion(ctx, sessionID, ""); err != nil {
		return CartView{}, translateRepoError(err, ErrCartUnavailable)
	}
	return s.GetCart(ctx, sessionID)
}

func (s *cartService) view(cart Cart) CartView {
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	var promo *Promotion
	if cart.PromotionCode != "" {
		if p, ok := s.promotions.Lookup(cart.PromotionCode); ok {
			promo = &p
		}
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = s.clock()
	}
	return CartView{Cart: cart, Summary: SummarizeCart(cart.Items, promo)}
}

// SummarizeCart computes the cart page totals. A nil promo applies no discount.
func SummarizeCart(items []CartItem, promo *Promotion) CartSummary {
	var (
		summary  CartSummary
		subtotal float64
	)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		subtotal += item.Price * float64(item.Quantity)
		summary.ItemCount += item.Quantity
	}
	summary.Subtotal = domain.Round2(subtotal)
	if summary.ItemCount > 0 && summary.Subtotal <= freeShippingThreshold {
		summary.Shipping = flatShippingFee
		// Shipping is free only strictly above the threshold, so exactly 500.00 still needs a cent.
		summary.FreeShippingRemaining = math.Max(0, domain.Round2(freeShippingThreshold+0.01-summary.Subtotal))
	}
	summary.Tax = domain.Round2(summary.Subtotal * cartTaxRate)
	if promo != nil {
		summary.Discount = math.Min(promo.Amount, summary.Subtotal)
		summary.PromotionCode = promo.Code
	}
	summary.Total = math.Max(0, domain.Round2(summary.Subtotal+summary.Shipping+summary.Tax-summary.Discount))
	return summary
}

func requireCartSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}
	return sessionID, nil
}
