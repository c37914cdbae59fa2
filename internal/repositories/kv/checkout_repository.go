package kv

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

type checkoutRecord struct {
	Step          string `json:"step"`
	AddressID     string `json:"addressId,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// CheckoutRepository stores checkout progress under "checkout".
type CheckoutRepository struct {
	store kvstore.Store
}

// NewCheckoutRepository constructs a kv-backed checkout repository.
func NewCheckoutRepository(store kvstore.Store) *CheckoutRepository {
	return &CheckoutRepository{store: store}
}

func (r *CheckoutRepository) Get(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	key, err := SessionKey(sessionID, keyCheckout)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	rec, err := loadJSON[checkoutRecord](ctx, r.store, key)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	return domain.CheckoutState{
		Step:          domain.CheckoutStep(rec.Step),
		AddressID:     rec.AddressID,
		PaymentMethod: domain.PaymentMethod(rec.PaymentMethod),
	}, nil
}

func (r *CheckoutRepository) Save(ctx context.Context, sessionID string, state domain.CheckoutState) error {
	key, err := SessionKey(sessionID, keyCheckout)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(checkoutRecord{
		Step:          string(state.Step),
		AddressID:     state.AddressID,
		PaymentMethod: string(state.PaymentMethod),
	})
	if err != nil {
		return err
	}
	return r.store.Set(ctx, key, raw)
}

func (r *CheckoutRepository) Delete(ctx context.Context, sessionID string) error {
	key, err := SessionKey(sessionID, keyCheckout)
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, key)
}

type orderLineRecord struct {
	ProductID int    `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

type orderRecord struct {
	ID              string            `json:"id"`
	Status          string            `json:"status"`
	PaymentMethod   string            `json:"paymentMethod"`
	Address         addressRecord     `json:"address"`
	Lines           []orderLineRecord `json:"items"`
	Subtotal        int64             `json:"subtotal"`
	Shipping        int64             `json:"shipping"`
	Tax             int64             `json:"tax"`
	Total           int64             `json:"total"`
	SavedOnShipping int64             `json:"savedOnShipping"`
	PlacedAt        time.Time         `json:"placedAt"`
}

// OrderRepository stores the session order history under "orders", newest first.
type OrderRepository struct {
	store kvstore.Store
}

// NewOrderRepository constructs a kv-backed order repository.
func NewOrderRepository(store kvstore.Store) *OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) List(ctx context.Context, sessionID string) ([]domain.Order, error) {
	key, err := SessionKey(sessionID, keyOrders)
	if err != nil {
		return nil, err
	}
	records, err := loadJSON[[]orderRecord](ctx, r.store, key)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		out = append(out, orderFromRecord(sessionID, rec))
	}
	return out, nil
}

// Append prepends order to the history of order.SessionID.
func (r *OrderRepository) Append(ctx context.Context, order domain.Order) error {
	key, err := SessionKey(order.SessionID, keyOrders)
	if err != nil {
		return err
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("kv repository: order id is required")
	}
	rec := orderToRecord(order)
	_, err = updateJSON(ctx, r.store, key, nil, func(current []orderRecord) ([]orderRecord, error) {
		for _, existing := range current {
			if existing.ID == rec.ID {
				return current, nil
			}
		}
		return append([]orderRecord{rec}, current...), nil
	})
	return err
}

func orderToRecord(order domain.Order) orderRecord {
	lines := make([]orderLineRecord, 0, len(order.Quote.Lines))
	for _, line := range order.Quote.Lines {
		lines = append(lines, orderLineRecord(line))
	}
	addr := order.Address
	return orderRecord{
		ID:            order.ID,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Address: addressRecord{
			ID:        addr.ID,
			Name:      addr.Name,
			Phone:     addr.Phone,
			Address:   addr.Line,
			City:      addr.City,
			State:     addr.State,
			Pincode:   addr.Pincode,
			IsDefault: addr.IsDefault,
			Type:      string(addr.Type),
		},
		Lines:           lines,
		Subtotal:        order.Quote.Subtotal,
		Shipping:        order.Quote.Shipping,
		Tax:             order.Quote.Tax,
		Total:           order.Quote.Total,
		SavedOnShipping: order.Quote.SavedOnShipping,
		PlacedAt:        order.PlacedAt.UTC(),
	}
}

func orderFromRecord(sessionID string, rec orderRecord) domain.Order {
	lines := make([]domain.CheckoutLine, 0, len(rec.Lines))
	for _, line := range rec.Lines {
		lines = append(lines, domain.CheckoutLine(line))
	}
	addresses := addressesFromRecords([]addressRecord{rec.Address})
	var addr domain.Address
	if len(addresses) == 1 {
		addr = addresses[0]
	}
	return domain.Order{
		ID:            rec.ID,
		SessionID:     sessionID,
		Status:        domain.OrderStatus(rec.Status),
		PaymentMethod: domain.PaymentMethod(rec.PaymentMethod),
		Address:       addr,
		Quote: domain.CheckoutQuote{
			Lines:           lines,
			Subtotal:        rec.Subtotal,
			Shipping:        rec.Shipping,
			Tax:             rec.Tax,
			Total:           rec.Total,
			SavedOnShipping: rec.SavedOnShipping,
		},
		PlacedAt: rec.PlacedAt.UTC(),
	}
}
