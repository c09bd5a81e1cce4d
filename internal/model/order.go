package model

import (
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending     OrderStatus = "pending"
	OrderConfirmed   OrderStatus = "confirmed"
	OrderReadyPickup OrderStatus = "ready_pickup"
	OrderCompleted   OrderStatus = "completed"
	OrderCancelled   OrderStatus = "cancelled"
)

// Valid reports whether s is a known fulfilment state.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderReadyPickup, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Order is created from a cart snapshot at checkout. Line items are
// frozen at creation time; later catalog price changes never affect an
// existing order.
type Order struct {
	ID             string        `json:"id"`
	OrderNumber    string        `json:"order_number"`
	CustomerID     string        `json:"customer_id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Status         OrderStatus   `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	Items          []OrderItem   `json:"items"`

	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	Shipping    float64 `json:"shipping"`
	TotalAmount float64 `json:"total_amount"`

	DeliveryAddress    string `json:"delivery_address"`
	DeliveryCity       string `json:"delivery_city"`
	DeliveryPostalCode string `json:"delivery_postal_code"`
	DeliveryCountry    string `json:"delivery_country"`

	PaymentSessionID string `json:"payment_session_id,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	Notes            string `json:"notes,omitempty"`

	Customer  *Customer `json:"customer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is a frozen order line: unit price and subtotal are copied
// from the product at creation time.
type OrderItem struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unit_price"`
	Subtotal  float64  `json:"subtotal"`
	Product   *Product `json:"product,omitempty"`
}

// StatusIcon returns the emoji used when listing orders.
func (s OrderStatus) StatusIcon() string {
	switch s {
	case OrderPending:
		return "⏳"
	case OrderConfirmed:
		return "✅"
	case OrderReadyPickup:
		return "📦"
	case OrderCompleted:
		return "✨"
	case OrderCancelled:
		return "❌"
	default:
		return "📋"
	}
}
