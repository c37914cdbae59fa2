package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/hanko-field/storefront/internal/domain"
	"github.com/hanko-field/storefront/internal/repositories"
)

const (
	checkoutFreeShippingAbove = 2000
	checkoutShippingFee       = 100
	checkoutTaxRate           = 0.18
	orderIDPrefix             = "ORD"
	orderIDDigits             = 1e13
)

var (
	// ErrCheckoutInvalidInput indicates invalid checkout data.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrCheckoutEmptyCart indicates an order was attempted with nothing in the cart.
	ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")
	// ErrCheckoutAddressRequired indicates no delivery address is selected.
	ErrCheckoutAddressRequired = errors.New("checkout service: please select or add a delivery address")
	// ErrCheckoutAddressNotFound indicates the selected address does not exist.
	ErrCheckoutAddressNotFound = errors.New("checkout service: address not found")
	// ErrCheckoutOrderNotFound indicates the order id is unknown for the session.
	ErrCheckoutOrderNotFound = errors.New("checkout service: order not found")
	// ErrCheckoutUnavailable indicates the checkout stores cannot be reached.
	ErrCheckoutUnavailable = errors.New("checkout service: unavailable")
)

// CheckoutServiceDeps bundles constructor inputs for the checkout service.
type CheckoutServiceDeps struct {
	Carts            repositories.CartRepository
	Addresses        repositories.AddressRepository
	Checkouts        repositories.CheckoutRepository
	Orders           repositories.OrderRepository
	Publisher        OrderEventPublisher
	Clock            func() time.Time
	OrderIDGenerator func() string
	EventIDGenerator func() string
	Logger           func(context.Context, string, map[string]any)
}

type checkoutService struct {
	carts     repositories.CartRepository
	addresses repositories.AddressRepository
	checkouts repositories.CheckoutRepository
	orders    repositories.OrderRepository
	publisher OrderEventPublisher
	clock     func() time.Time
	orderID   func() string
	eventID   func() string
	logger    func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs the checkout service. Publisher is optional.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("checkout service: cart repository is required")
	case deps.Addresses == nil:
		return nil, errors.New("checkout service: address repository is required")
	case deps.Checkouts == nil:
		return nil, errors.New("checkout service: checkout repository is required")
	case deps.Orders == nil:
		return nil, errors.New("checkout service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	orderID := deps.OrderIDGenerator
	if orderID == nil {
		orderID = func() string { return fmt.Sprintf("%s%013d", orderIDPrefix, rand.Int64N(orderIDDigits)) }
	}
	eventID := deps.EventIDGenerator
	if eventID == nil {
		eventID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &checkoutService{
		carts:     deps.Carts,
		addresses: deps.Addresses,
		checkouts: deps.Checkouts,
		orders:    deps.Orders,
		publisher: deps.Publisher,
		clock:     func() time.Time { return clock().UTC() },
		orderID:   orderID,
		eventID:   eventID,
		logger:    logger,
	}, nil
}

func (s *checkoutService) GetSession(ctx context.Context, sessionID string) (CheckoutSession, error) {
	if s == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}
	sessionID, err := requireCheckoutSession(sessionID)
	if err != nil {
		return CheckoutSession{}, err
	}
	state, err := s.checkouts.Get(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	return s.session(ctx, sessionID, state)
}

func (s *checkoutService) SelectAddress(ctx context.Context, sessionID, addressID string) (CheckoutSession, error) {
	if s == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}
	sessionID, err := requireCheckoutSession(sessionID)
	if err != nil {
		return CheckoutSession{}, err
	}
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: address id is required", ErrCheckoutInvalidInput)
	}
	addresses, err := s.addresses.List(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if indexOfAddress(addresses, addressID) < 0 {
		return CheckoutSession{}, fmt.Errorf("%w: %s", ErrCheckoutAddressNotFound, addressID)
	}
	state, err := s.checkouts.Get(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	state.AddressID = addressID
	state.Step = domain.CheckoutStepPayment
	return s.save(ctx, sessionID, state)
}

func (s *checkoutService) SelectPayment(ctx context.Context, sessionID string, method PaymentMethod) (CheckoutSession, error) {
	if s == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}
	sessionID, err := requireCheckoutSession(sessionID)
	if err != nil {
		return CheckoutSession{}, err
	}
	method, ok := ParsePaymentMethod(string(method))
	if !ok {
		return CheckoutSession{}, fmt.Errorf("%w: payment method must be upi, card or cod", ErrCheckoutInvalidInput)
	}
	state, err := s.checkouts.Get(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if _, ok, err := s.resolveAddress(ctx, sessionID, state.AddressID); err != nil {
		return CheckoutSession{}, err
	} else if !ok {
		return CheckoutSession{}, ErrCheckoutAddressRequired
	}
	state.PaymentMethod = method
	state.Step = domain.CheckoutStepReview
	return s.save(ctx, sessionID, state)
}

func (s *checkoutService) SetStep(ctx context.Context, sessionID string, step CheckoutStep) (CheckoutSession, error) {
	if s == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}
	sessionID, err := requireCheckoutSession(sessionID)
	if err != nil {
		return CheckoutSession{}, err
	}
	step, ok := ParseCheckoutStep(string(step))
	if !ok {
		return CheckoutSession{}, fmt.Errorf("%w: step must be address, payment or review", ErrCheckoutInvalidInput)
	}
	state, err := s.checkouts.Get(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if step != domain.CheckoutStepAddress {
		if _, ok, err := s.resolveAddress(ctx, sessionID, state.AddressID); err != nil {
			return CheckoutSession{}, err
		} else if !ok {
			return CheckoutSession{}, ErrCheckoutAddressRequired
		}
	}
	state.Step = step
	return s.save(ctx, sessionID, state)
}

func (s *checkoutService) PlaceOrder(ctx context.Context, sessionID string) (Order, error) {
	if s == nil {
		return Order{}, ErrCheckoutUnavailable
	}
	sessionID, err := requireCheckoutSession(sessionID)
	if err != nil {
		return Order{}, err
	}
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return Order{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if len(cart.Items) == 0 {
		return Order{}, ErrCheckoutEmptyCart
	}
	state, err := s.checkouts.Get(ctx, sessionID)
	if err != nil {
		return Order{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	address, ok, err := s.resolveAddress(ctx, sessionID, state.AddressID)
	if err != nil {
		return Order{}, err
	}
	if !ok {
		return Order{}, ErrCheckoutAddressRequired
	}
	method := state.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodUPI
	}

	order := Order{
		ID:            strings.TrimSpace(s.orderID()),
		SessionID:     sessionID,
		Status:        domain.OrderStatusConfirmed,
		PaymentMethod: method,
		Address:       address,
		Quote:         ComputeQuote(cart.Items),
		PlacedAt:      s.clock(),
	}
	if err := s.orders.Append(ctx, order); err != nil {
		return Order{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		return Order{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if err := s.checkouts.Delete(ctx, sessionID); err != nil {
		return Order{}, translateRepoError(err, ErrCheckoutUnavailable)
	}

	s.logger(ctx, "checkout.order.placed", map[string]any{
		"orderId":       order.ID,
		"paymentMethod": string(order.PaymentMethod),
		"total":         order.Quote.Total,
	})
	s.publish(ctx, order)
	return order, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, sessionID string) ([]Order, error) {
	if s == nil {
		return nil, ErrCheckoutUnavailable
	}
	sessionID, err := requireCheckoutSession(sessionID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.List(ctx, sessionID)
	if err != nil {
		return nil, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

func (s *checkoutService) GetOrder(ctx context.Context, sessionID, orderID string) (Order, error) {
	orders, err := s.ListOrders(ctx, sessionID)
	if err != nil {
		return Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	for _, order := range orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return Order{}, fmt.Errorf("%w: %s", ErrCheckoutOrderNotFound, orderID)
}

// publish is best effort: a placed order is never rolled back because the event failed.
func (s *checkoutService) publish(ctx context.Context, order Order) {
	if s.publisher == nil {
		return
	}
	itemCount := 0
	for _, line := range order.Quote.Lines {
		itemCount += line.Quantity
	}
	event := OrderPlacedEvent{
		EventID:       s.eventID(),
		OrderID:       order.ID,
		SessionID:     order.SessionID,
		PaymentMethod: string(order.PaymentMethod),
		ItemCount:     itemCount,
		Total:         order.Quote.Total,
		PlacedAt:      order.PlacedAt,
	}
	messageID, err := s.publisher.PublishOrderPlaced(ctx, event)
	if err != nil {
		s.logger(ctx, "checkout.order.publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return
	}
	s.logger(ctx, "checkout.order.published", map[string]any{
		"orderId":   order.ID,
		"messageId": messageID,
	})
}

func (s *checkoutService) save(ctx context.Context, sessionID string, state CheckoutState) (CheckoutSession, error) {
	if err := s.checkouts.Save(ctx, sessionID, state); err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	return s.session(ctx, sessionID, state)
}

func (s *checkoutService) session(ctx context.Context, sessionID string, state CheckoutState) (CheckoutSession, error) {
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutUnavailable)
	}
	address, ok, err := s.resolveAddress(ctx, sessionID, state.AddressID)
	if err != nil {
		return CheckoutSession{}, err
	}
	out := CheckoutSession{
		Step:          state.Step,
		PaymentMethod: state.PaymentMethod,
		Quote:         ComputeQuote(cart.Items),
	}
	if out.Step == "" {
		out.Step = domain.CheckoutStepAddress
	}
	if out.PaymentMethod == "" {
		out.PaymentMethod = domain.PaymentMethodUPI
	}
	if ok {
		out.Address = &address
	}
	for _, line := range out.Quote.Lines {
		out.ItemCount += line.Quantity
	}
	return out, nil
}

// resolveAddress returns the explicitly selected address when it still exists, otherwise the
// default address.
func (s *checkoutService) resolveAddress(ctx context.Context, sessionID, selected string) (Address, bool, error) {
	addresses, err := s.addresses.List(ctx, sessionID)
	if err != nil {
		return Address{}, false, translateRepoError(err, ErrCheckoutUnavailable)
	}
	if idx := indexOfAddress(addresses, selected); idx >= 0 {
		return addresses[idx], true, nil
	}
	address, ok := DefaultAddress(addresses)
	return address, ok, nil
}

// ComputeQuote prices cart lines in whole rupees.
func ComputeQuote(items []CartItem) CheckoutQuote {
	quote := CheckoutQuote{Lines: make([]CheckoutLine, 0, len(items))}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		unit := domain.ConvertToINR(item.Price)
		line := CheckoutLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: unit * int64(item.Quantity),
		}
		quote.Lines = append(quote.Lines, line)
		quote.Subtotal += line.LineTotal
	}
	if len(quote.Lines) == 0 {
		return quote
	}
	if quote.Subtotal > checkoutFreeShippingAbove {
		quote.SavedOnShipping = checkoutShippingFee
	} else {
		quote.Shipping = checkoutShippingFee
	}
	quote.Tax = int64(math.Round(float64(quote.Subtotal) * checkoutTaxRate))
	quote.Total = quote.Subtotal + quote.Shipping + quote.Tax
	return quote
}

// ParsePaymentMethod resolves raw into a supported method.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case domain.PaymentMethodUPI, domain.PaymentMethodCard, domain.PaymentMethodCOD:
		return m, true
	default:
		return "", false
	}
}

// ParseCheckoutStep resolves raw into a checkout step.
func ParseCheckoutStep(raw string) (CheckoutStep, bool) {
	switch st := CheckoutStep(strings.ToLower(strings.TrimSpace(raw))); st {
	case domain.CheckoutStepAddress, domain.CheckoutStepPayment, domain.CheckoutStepReview:
		return st, true
	default:
		return "", false
	}
}

func requireCheckoutSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}
	return sessionID, nil
}
