// Package order turns carts into orders with frozen line items,
// daily-sequenced order numbers and a payment session per order.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
	"github.com/garageconnect/conversational-commerce/pkg/metrics"
)

var (
	// ErrEmptyCart is returned when checkout runs on an empty cart.
	ErrEmptyCart = errors.New("order: cart is empty")
	// ErrIncompleteCustomer is returned when required identity fields
	// are missing.
	ErrIncompleteCustomer = errors.New("order: customer info incomplete")
	// ErrPlaceholderIdentity is returned when the identity matches the
	// synthetic-data denylist.
	ErrPlaceholderIdentity = errors.New("order: placeholder identity rejected")
	// ErrNotFound is returned when no order matches.
	ErrNotFound = errors.New("order: not found")
)

// CartReader is the slice of the cart service checkout needs.
type CartReader interface {
	Get(ctx context.Context, customerID string) (*model.Cart, error)
	Clear(ctx context.Context, customerID string) (*model.Cart, error)
}

// Service creates and reads orders.
type Service struct {
	orders   store.OrderStore
	carts    CartReader
	payments PaymentProvider
	log      *logger.Logger

	// numbering serializes order-number allocation with the insert, so
	// two concurrent checkouts never draw the same daily sequence slot.
	numbering sync.Mutex

	now func() time.Time
}

// NewService builds an order service.
func NewService(orders store.OrderStore, carts CartReader, payments PaymentProvider, log *logger.Logger) *Service {
	return &Service{
		orders:   orders,
		carts:    carts,
		payments: payments,
		log:      log,
		now:      time.Now,
	}
}

// Result is what checkout hands back: the order plus the fully
// formatted confirmation message carrying the payment link.
type Result struct {
	Order               *model.Order
	PaymentURL          string
	ConfirmationMessage string
}

// CreateFromCart snapshots the customer's cart into an order, opens a
// payment session and empties the cart. The customer's identity must
// be complete and real.
func (s *Service) CreateFromCart(ctx context.Context, customer *model.Customer, conversationID string) (*Result, error) {
	if !customer.HasCompleteInfo() || customer.Address == "" {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteCustomer, strings.Join(missingCheckoutFields(customer), ", "))
	}
	if IsPlaceholderName(customer.FirstName, customer.LastName) || IsPlaceholderEmail(customer.Email) {
		return nil, ErrPlaceholderIdentity
	}

	cart, err := s.carts.Get(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	s.numbering.Lock()
	defer s.numbering.Unlock()

	number, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &model.Order{
		ID:             uuid.New().String(),
		OrderNumber:    number,
		CustomerID:     customer.ID,
		ConversationID: conversationID,
		Status:         model.OrderPending,
		PaymentStatus:  model.PaymentPending,

		DeliveryAddress:    customer.Address,
		DeliveryCity:       customer.City,
		DeliveryPostalCode: customer.PostalCode,
		DeliveryCountry:    customer.Country,

		CreatedAt: now,
	}

	// Freeze lines at current prices; the order never changes with the
	// catalog afterwards.
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.Product == nil {
			continue
		}
		unit := item.Product.FinalPrice()
		o.Items = append(o.Items, model.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			Subtotal:  unit * float64(item.Quantity),
			Product:   item.Product,
		})
		o.Subtotal += unit * float64(item.Quantity)
	}

	// Prices are TTC and pickup is free; totals are still carried as
	// explicit fields so a later tax or shipping change is a data
	// change, not a schema change.
	o.Tax = 0
	o.Shipping = 0
	o.TotalAmount = o.Subtotal + o.Tax + o.Shipping

	// The payment session is opened before the order is written so the
	// persisted record already carries the session ID.
	session, err := s.payments.CreateCheckoutSession(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("creating payment session: %w", err)
	}
	o.PaymentSessionID = session.ID

	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	if _, err := s.carts.Clear(ctx, customer.ID); err != nil {
		s.log.Warn("clearing cart after order", zap.String("order_number", o.OrderNumber), zap.Error(err))
	}

	metrics.OrdersCreated.Inc()
	s.log.Info("order created",
		zap.String("order_number", o.OrderNumber),
		zap.String("customer_id", customer.ID),
		zap.Float64("total", o.TotalAmount),
		zap.Int("lines", len(o.Items)))

	return &Result{
		Order:               o,
		PaymentURL:          session.URL,
		ConfirmationMessage: ConfirmationMessage(o, customer, session.URL),
	}, nil
}

// nextOrderNumber builds GC-YYYYMMDD-NNN from the day's sequence.
func (s *Service) nextOrderNumber(ctx context.Context) (string, error) {
	now := s.now()
	n, err := s.orders.OrdersCreatedOn(ctx, now)
	if err != nil {
		return "", fmt.Errorf("counting day orders: %w", err)
	}
	return fmt.Sprintf("GC-%s-%03d", now.Format("20060102"), n+1), nil
}

// ByNumber returns the order with the given number.
func (s *Service) ByNumber(ctx context.Context, number string) (*model.Order, error) {
	o, err := s.orders.GetOrderByNumber(ctx, strings.TrimSpace(number))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

// ForCustomer lists the customer's most recent orders.
func (s *Service) ForCustomer(ctx context.Context, customerID string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.orders.ListOrders(ctx, customerID, limit)
}

// MarkPaid flips the order to confirmed/paid.
func (s *Service) MarkPaid(ctx context.Context, id string) (*model.Order, error) {
	o, err := s.orders.UpdateOrderStatus(ctx, id, model.OrderConfirmed, model.PaymentPaid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

// UpdateStatus moves the order to the given fulfilment state.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	o, err := s.orders.UpdateOrderStatus(ctx, id, status, "")
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

func missingCheckoutFields(c *model.Customer) []string {
	missing := c.MissingFields()
	if c.Address == "" {
		missing = append(missing, "address")
	}
	return missing
}
