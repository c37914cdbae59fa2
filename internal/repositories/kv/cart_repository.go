package kv

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

type cartItemRecord struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
	Notes    string  `json:"notes,omitempty"`
}

// CartRepository stores cart lines under "cart" and the promotion code under "cartPromo".
type CartRepository struct {
	store kvstore.Store
}

// NewCartRepository constructs a kv-backed cart repository.
func NewCartRepository(store kvstore.Store) *CartRepository {
	return &CartRepository{store: store}
}

// Get returns the cart, empty when nothing is stored.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	cartKey, err := SessionKey(sessionID, keyCart)
	if err != nil {
		return domain.Cart{}, err
	}
	records, err := loadJSON[[]cartItemRecord](ctx, r.store, cartKey)
	if err != nil {
		return domain.Cart{}, err
	}
	promo, err := r.promotion(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.Cart{SessionID: sessionID, Items: itemsFromRecords(records), PromotionCode: promo}, nil
}

// UpdateItems rewrites the cart lines atomically. Lines with a non-positive quantity are dropped.
func (r *CartRepository) UpdateItems(ctx context.Context, sessionID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) (domain.Cart, error) {
	cartKey, err := SessionKey(sessionID, keyCart)
	if err != nil {
		return domain.Cart{}, err
	}
	if fn == nil {
		return domain.Cart{}, errors.New("kv repository: cart mutation is required")
	}
	records, err := updateJSON(ctx, r.store, cartKey, emptySlice[cartItemRecord], func(current []cartItemRecord) ([]cartItemRecord, error) {
		next, err := fn(itemsFromRecords(current))
		if err != nil {
			return nil, err
		}
		return recordsFromItems(next), nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	promo, err := r.promotion(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.Cart{SessionID: sessionID, Items: itemsFromRecords(records), PromotionCode: promo}, nil
}

// SetPromotion stores code; an empty code removes it.
func (r *CartRepository) SetPromotion(ctx context.Context, sessionID string, code string) error {
	key, err := SessionKey(sessionID, keyCartPromo)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return r.store.Delete(ctx, key)
	}
	raw, err := json.Marshal(code)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, key, raw)
}

// Clear removes the cart lines and the promotion code.
func (r *CartRepository) Clear(ctx context.Context, sessionID string) error {
	cartKey, err := SessionKey(sessionID, keyCart)
	if err != nil {
		return err
	}
	promoKey, _ := SessionKey(sessionID, keyCartPromo)
	if err := r.store.Delete(ctx, cartKey); err != nil {
		return err
	}
	return r.store.Delete(ctx, promoKey)
}

func (r *CartRepository) promotion(ctx context.Context, sessionID string) (string, error) {
	key, err := SessionKey(sessionID, keyCartPromo)
	if err != nil {
		return "", err
	}
	return loadJSON[string](ctx, r.store, key)
}

func itemsFromRecords(records []cartItemRecord) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(records))
	for _, rec := range records {
		if rec.ID <= 0 || rec.Quantity <= 0 {
			continue
		}
		items = append(items, domain.CartItem{
			ProductID: rec.ID,
			Name:      rec.Name,
			Price:     rec.Price,
			Image:     rec.Image,
			Quantity:  rec.Quantity,
			Notes:     rec.Notes,
		})
	}
	return items
}

func recordsFromItems(items []domain.CartItem) []cartItemRecord {
	records := make([]cartItemRecord, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			continue
		}
		records = append(records, cartItemRecord{
			ID:       item.ProductID,
			Name:     item.Name,
			Price:    item.Price,
			Image:    item.Image,
			Quantity: item.Quantity,
			Notes:    strings.TrimSpace(item.Notes),
		})
	}
	return records
}
