package model

import (
	"time"
)

// Cart is the per-customer container of pending items. A cart past its
// ExpiresAt is logically absent; readers create a fresh one.
type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// CartItem is a product line in a cart, denormalized with its product.
type CartItem struct {
	ID        string   `json:"id"`
	CartID    string   `json:"cart_id"`
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// Subtotal is the line total at the product's current final price.
func (i *CartItem) Subtotal() float64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.FinalPrice() * float64(i.Quantity)
}

// Total sums the line subtotals.
func (c *Cart) Total() float64 {
	var total float64
	for i := range c.Items {
		total += c.Items[i].Subtotal()
	}
	return total
}

// UnitCount sums the quantities across lines.
func (c *Cart) UnitCount() int {
	var n int
	for i := range c.Items {
		n += c.Items[i].Quantity
	}
	return n
}

// Expired reports whether the cart is past its TTL at the given time.
func (c *Cart) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
