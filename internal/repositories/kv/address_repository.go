package kv

import (
	"context"
	"errors"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/platform/kvstore"
)

type addressRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"isDefault"`
	Type      string `json:"type"`
}

// AddressRepository stores saved addresses under "addresses".
type AddressRepository struct {
	store kvstore.Store
}

// NewAddressRepository constructs a kv-backed address repository.
func NewAddressRepository(store kvstore.Store) *AddressRepository {
	return &AddressRepository{store: store}
}

func (r *AddressRepository) List(ctx context.Context, sessionID string) ([]domain.Address, error) {
	key, err := SessionKey(sessionID, keyAddresses)
	if err != nil {
		return nil, err
	}
	records, err := loadJSON[[]addressRecord](ctx, r.store, key)
	if err != nil {
		return nil, err
	}
	return addressesFromRecords(records), nil
}

func (r *AddressRepository) Update(ctx context.Context, sessionID string, fn func([]domain.Address) ([]domain.Address, error)) ([]domain.Address, error) {
	key, err := SessionKey(sessionID, keyAddresses)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.New("kv repository: address mutation is required")
	}
	records, err := updateJSON(ctx, r.store, key, emptySlice[addressRecord], func(current []addressRecord) ([]addressRecord, error) {
		next, err := fn(addressesFromRecords(current))
		if err != nil {
			return nil, err
		}
		out := make([]addressRecord, 0, len(next))
		for _, addr := range next {
			out = append(out, addressRecord{
				ID:        addr.ID,
				Name:      addr.Name,
				Phone:     addr.Phone,
				Address:   addr.Line,
				City:      addr.City,
				State:     addr.State,
				Pincode:   addr.Pincode,
				IsDefault: addr.IsDefault,
				Type:      string(addr.Type),
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return addressesFromRecords(records), nil
}

func addressesFromRecords(records []addressRecord) []domain.Address {
	out := make([]domain.Address, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		addrType := domain.AddressType(rec.Type)
		switch addrType {
		case domain.AddressTypeHome, domain.AddressTypeWork, domain.AddressTypeOther:
		default:
			addrType = domain.AddressTypeHome
		}
		out = append(out, domain.Address{
			ID:        rec.ID,
			Name:      rec.Name,
			Phone:     rec.Phone,
			Line:      rec.Address,
			City:      rec.City,
			State:     rec.State,
			Pincode:   rec.Pincode,
			IsDefault: rec.IsDefault,
			Type:      addrType,
		})
	}
	return out
}
