// Package store defines the persistence contracts the services depend
// on, plus an in-memory implementation suitable for tests and
// single-node deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// ProductQuery filters a catalog search. Zero values mean "any".
type ProductQuery struct {
	Width    int
	Height   int
	Diameter int
	Brand    string
	Category model.ProductCategory
	MinPrice float64
	MaxPrice float64
	InStock  bool
	Offset   int
	Limit    int
}

// CustomerStore resolves and updates customer profiles.
type CustomerStore interface {
	// UpsertCustomerByPhone returns the customer with the given phone
	// number, creating an empty profile on first contact.
	UpsertCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id string, u model.CustomerUpdate) (*model.Customer, error)
}

// ConversationStore manages conversation threads and their metadata.
type ConversationStore interface {
	// ActiveConversation returns the customer's single active thread,
	// or ErrNotFound when there is none.
	ActiveConversation(ctx context.Context, customerID string) (*model.Conversation, error)
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	UpdateMetadata(ctx context.Context, id string, u model.MetadataUpdate) (*model.Conversation, error)
	CloseConversation(ctx context.Context, id, summary string) error
	ListConversations(ctx context.Context, limit int) ([]model.Conversation, error)
}

// MessageStore is the append-only transcript.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *model.Message) error
	// RecentMessages returns up to n messages in chronological order.
	RecentMessages(ctx context.Context, conversationID string, n int) ([]model.Message, error)
	MessageCount(ctx context.Context, conversationID string) (int, error)
}

// ProductStore reads the tyre catalog.
type ProductStore interface {
	SearchProducts(ctx context.Context, q ProductQuery) ([]model.Product, int, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProducts(ctx context.Context, ids []string) ([]model.Product, error)
	// Brands lists distinct brands, optionally narrowed to a dimension.
	Brands(ctx context.Context, width, height, diameter int) ([]string, error)
	PutProduct(ctx context.Context, p *model.Product) error
}

// CartStore persists cart snapshots.
type CartStore interface {
	// ActiveCart returns the customer's unexpired cart, or ErrNotFound.
	ActiveCart(ctx context.Context, customerID string) (*model.Cart, error)
	PutCart(ctx context.Context, cart *model.Cart) error
	DeleteCart(ctx context.Context, id string) error
	// DeleteExpiredCarts removes carts past their TTL and reports how
	// many were dropped.
	DeleteExpiredCarts(ctx context.Context, now time.Time) (int, error)
}

// OrderStore persists orders with frozen line items.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	ListOrders(ctx context.Context, customerID string, limit int) ([]model.Order, error)
	// OrdersCreatedOn counts orders created on the given calendar day,
	// used to derive the daily order-number sequence.
	OrdersCreatedOn(ctx context.Context, day time.Time) (int, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, payment model.PaymentStatus) (*model.Order, error)
}

// Store aggregates every persistence concern behind one value.
type Store interface {
	CustomerStore
	ConversationStore
	MessageStore
	ProductStore
	CartStore
	OrderStore
}
