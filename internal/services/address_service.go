package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/repositories"
)

const maxSavedAddresses = 20

var (
	// ErrAddressInvalidInput indicates missing or malformed address fields.
	ErrAddressInvalidInput = errors.New("address service: invalid input")
	// ErrAddressNotFound indicates the address id is unknown for the session.
	ErrAddressNotFound = errors.New("address service: address not found")
	// ErrAddressLimitReached indicates the session already saved the maximum number of addresses.
	ErrAddressLimitReached = errors.New("address service: address limit reached")
	// ErrAddressUnavailable indicates the address store cannot be reached.
	ErrAddressUnavailable = errors.New("address service: unavailable")
)

// AddressServiceDeps bundles constructor inputs for the address service.
type AddressServiceDeps struct {
	Addresses   repositories.AddressRepository
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type addressService struct {
	repo   repositories.AddressRepository
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewAddressService constructs the address book service.
func NewAddressService(deps AddressServiceDeps) (AddressService, error) {
	if deps.Addresses == nil {
		return nil, errors.New("address service: address repository is required")
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &addressService{repo: deps.Addresses, newID: idGen, logger: logger}, nil
}

func (s *addressService) List(ctx context.Context, sessionID string) ([]Address, error) {
	if s == nil || s.repo == nil {
		return nil, ErrAddressUnavailable
	}
	sessionID, err := requireAddressSession(sessionID)
	if err != nil {
		return nil, err
	}
	addresses, err := s.repo.List(ctx, sessionID)
	if err != nil {
		return nil, translateRepoError(err, ErrAddressUnavailable)
	}
	if addresses == nil {
		addresses = []Address{}
	}
	return addresses, nil
}

func (s *addressService) Add(ctx context.Context, sessionID string, input AddressInput) (Address, error) {
	if s == nil || s.repo == nil {
		return Address{}, ErrAddressUnavailable
	}
	sessionID, err := requireAddressSession(sessionID)
	if err != nil {
		return Address{}, err
	}
	address, err := normalizeAddressInput(input)
	if err != nil {
		return Address{}, err
	}
	address.ID = strings.TrimSpace(s.newID())

	_, err = s.repo.Update(ctx, sessionID, func(current []Address) ([]Address, error) {
		if len(current) >= maxSavedAddresses {
			return nil, fmt.Errorf("%w: at most %d addresses", ErrAddressLimitReached, maxSavedAddresses)
		}
		address.IsDefault = input.IsDefault || len(current) == 0
		next := append(current, address)
		if address.IsDefault {
			next = withDefault(next, address.ID)
		}
		return next, nil
	})
	if err != nil {
		return Address{}, translateRepoError(err, ErrAddressUnavailable)
	}
	s.logger(ctx, "address.added", map[string]any{"addressId": address.ID, "default": address.IsDefault})
	return address, nil
}

func (s *addressService) Update(ctx context.Context, sessionID, addressID string, input AddressInput) (Address, error) {
	if s == nil || s.repo == nil {
		return Address{}, ErrAddressUnavailable
	}
	sessionID, err := requireAddressSession(sessionID)
	if err != nil {
		return Address{}, err
	}
	addressID = strings.TrimSpace(addressID)
	next, err := normalizeAddressInput(input)
	if err != nil {
		return Address{}, err
	}

	var updated Address
	_, err = s.repo.Update(ctx, sessionID, func(current []Address) ([]Address, error) {
		idx := indexOfAddress(current, addressID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		next.ID = addressID
		// The default flag can only be moved, never cleared, so one address always remains default.
		next.IsDefault = current[idx].IsDefault || input.IsDefault
		current[idx] = next
		if input.IsDefault {
			current = withDefault(current, addressID)
		}
		updated = current[idx]
		return current, nil
	})
	if err != nil {
		return Address{}, translateRepoError(err, ErrAddressUnavailable)
	}
	return updated, nil
}

func (s *addressService) Delete(ctx context.Context, sessionID, addressID string) ([]Address, error) {
	if s == nil || s.repo == nil {
		return nil, ErrAddressUnavailable
	}
	sessionID, err := requireAddressSession(sessionID)
	if err != nil {
		return nil, err
	}
	addressID = strings.TrimSpace(addressID)
	addresses, err := s.repo.Update(ctx, sessionID, func(current []Address) ([]Address, error) {
		idx := indexOfAddress(current, addressID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		wasDefault := current[idx].IsDefault
		next := append(current[:idx:idx], current[idx+1:]...)
		if wasDefault && len(next) > 0 {
			next = withDefault(next, next[0].ID)
		}
		return next, nil
	})
	if err != nil {
		return nil, translateRepoError(err, ErrAddressUnavailable)
	}
	s.logger(ctx, "address.deleted", map[string]any{"addressId": addressID})
	if addresses == nil {
		addresses = []Address{}
	}
	return addresses, nil
}

func (s *addressService) SetDefault(ctx context.Context, sessionID, addressID string) ([]Address, error) {
	if s == nil || s.repo == nil {
		return nil, ErrAddressUnavailable
	}
	sessionID, err := requireAddressSession(sessionID)
	if err != nil {
		return nil, err
	}
	addressID = strings.TrimSpace(addressID)
	addresses, err := s.repo.Update(ctx, sessionID, func(current []Address) ([]Address, error) {
		if indexOfAddress(current, addressID) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		return withDefault(current, addressID), nil
	})
	if err != nil {
		return nil, translateRepoError(err, ErrAddressUnavailable)
	}
	return addresses, nil
}

// DefaultAddress returns the default address, or the first one when none is flagged.
func DefaultAddress(addresses []Address) (Address, bool) {
	for _, a := range addresses {
		if a.IsDefault {
			return a, true
		}
	}
	if len(addresses) > 0 {
		return addresses[0], true
	}
	return Address{}, false
}

func normalizeAddressInput(input AddressInput) (Address, error) {
	address := Address{
		Name:    strings.TrimSpace(input.Name),
		Phone:   strings.TrimSpace(input.Phone),
		Line:    strings.TrimSpace(input.Line),
		City:    strings.TrimSpace(input.City),
		State:   strings.TrimSpace(input.State),
		Pincode: strings.TrimSpace(input.Pincode),
	}
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"name", address.Name},
		{"phone", address.Phone},
		{"address", address.Line},
		{"city", address.City},
		{"state", address.State},
		{"pincode", address.Pincode},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return Address{}, fmt.Errorf("%w: please fill in all required fields (%s)", ErrAddressInvalidInput, strings.Join(missing, ", "))
	}
	switch t := AddressType(strings.ToLower(strings.TrimSpace(string(input.Type)))); t {
	case "":
		address.Type = domain.AddressTypeHome
	case domain.AddressTypeHome, domain.AddressTypeWork, domain.AddressTypeOther:
		address.Type = t
	default:
		return Address{}, fmt.Errorf("%w: address type must be home, work or other", ErrAddressInvalidInput)
	}
	return address, nil
}

func withDefault(addresses []Address, id string) []Address {
	for i := range addresses {
		addresses[i].IsDefault = addresses[i].ID == id
	}
	return addresses
}

func indexOfAddress(addresses []Address, id string) int {
	if id == "" {
		return -1
	}
	for i, a := range addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func requireAddressSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", ErrAddressInvalidInput)
	}
	return sessionID, nil
}
