package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

// CheckoutSession is what a payment provider hands back for an order.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// PaymentProvider creates payment sessions for orders. The core only
// consumes the session ID and URL; the provider is opaque.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, o *model.Order) (*CheckoutSession, error)
}

// sessionValidity is how long a hosted-checkout link stays payable.
const sessionValidity = 48 * time.Hour

// LinkProvider issues hosted-checkout links under a fixed base URL.
type LinkProvider struct {
	baseURL string
	now     func() time.Time
}

// NewLinkProvider builds a provider issuing links under baseURL.
func NewLinkProvider(baseURL string) *LinkProvider {
	return &LinkProvider{baseURL: baseURL, now: time.Now}
}

var _ PaymentProvider = (*LinkProvider)(nil)

func (p *LinkProvider) CreateCheckoutSession(ctx context.Context, o *model.Order) (*CheckoutSession, error) {
	id := uuid.New().String()
	return &CheckoutSession{
		ID:        id,
		URL:       fmt.Sprintf("%s/paiement/%s?session=%s", p.baseURL, o.OrderNumber, id),
		ExpiresAt: p.now().Add(sessionValidity),
	}, nil
}
