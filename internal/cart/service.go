// Package cart implements the shopping cart: one unexpired cart per
// customer, additive adds, and a short-lived snapshot cache that is
// invalidated synchronously on every mutation.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// TTL is how long a cart lives after creation.
const TTL = 24 * time.Hour

var (
	// ErrProductNotFound is returned when the product ID matches nothing.
	ErrProductNotFound = errors.New("cart: product not found")
	// ErrInsufficientStock is returned when the requested quantity
	// exceeds what is available.
	ErrInsufficientStock = errors.New("cart: insufficient stock")
	// ErrItemNotInCart is returned when updating a line that does not exist.
	ErrItemNotInCart = errors.New("cart: item not in cart")
)

// Service manages carts.
type Service struct {
	carts    store.CartStore
	products store.ProductStore
	cache    *cache.Cache[*model.Cart]
	log      *logger.Logger

	now func() time.Time
}

// NewService builds a cart service.
func NewService(carts store.CartStore, products store.ProductStore, c *cache.Cache[*model.Cart], log *logger.Logger) *Service {
	return &Service{
		carts:    carts,
		products: products,
		cache:    c,
		log:      log,
		now:      time.Now,
	}
}

// Get returns the customer's current cart, creating an empty one when
// none exists or the previous one expired. Reads go through the
// snapshot cache.
func (s *Service) Get(ctx context.Context, customerID string) (*model.Cart, error) {
	return s.cache.GetOrLoad(customerID, func() (*model.Cart, error) {
		return s.getOrCreate(ctx, customerID)
	})
}

func (s *Service) getOrCreate(ctx context.Context, customerID string) (*model.Cart, error) {
	cart, err := s.carts.ActiveCart(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	now := s.now()
	cart = &model.Cart{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(TTL),
	}
	if err := s.carts.PutCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	s.log.Debug("cart created", zap.String("customer_id", customerID), zap.String("cart_id", cart.ID))
	return cart, nil
}

// Add puts quantity units of the product in the cart. Re-adding an
// existing product increments its line.
func (s *Service) Add(ctx context.Context, customerID, productID string, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		quantity = 1
	}
	product, err := s.products.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading product: %w", err)
	}

	cart, err := s.getOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	existing := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			existing = i
			break
		}
	}
	want := quantity
	if existing >= 0 {
		want += cart.Items[existing].Quantity
	}
	if want > product.StockQuantity {
		return nil, fmt.Errorf("%w: %d demandés, %d en stock", ErrInsufficientStock, want, product.StockQuantity)
	}

	if existing >= 0 {
		cart.Items[existing].Quantity = want
		cart.Items[existing].Product = product
	} else {
		cart.Items = append(cart.Items, model.CartItem{
			ID:        uuid.New().String(),
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Product:   product,
		})
	}

	return s.save(ctx, cart)
}

// UpdateQuantity sets the line quantity; zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, productID string, quantity int) (*model.Cart, error) {
	if quantity == 0 {
		return s.Remove(ctx, customerID, productID)
	}
	cart, err := s.getOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID != productID {
			continue
		}
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("loading product: %w", err)
		}
		if quantity > product.StockQuantity {
			return nil, fmt.Errorf("%w: %d demandés, %d en stock", ErrInsufficientStock, quantity, product.StockQuantity)
		}
		cart.Items[i].Quantity = quantity
		cart.Items[i].Product = product
		return s.save(ctx, cart)
	}
	return nil, ErrItemNotInCart
}

// Remove drops the product's line from the cart.
func (s *Service) Remove(ctx context.Context, customerID, productID string) (*model.Cart, error) {
	cart, err := s.getOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return s.save(ctx, cart)
		}
	}
	return nil, ErrItemNotInCart
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, customerID string) (*model.Cart, error) {
	cart, err := s.getOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	cart.Items = nil
	return s.save(ctx, cart)
}

// Replace swaps one product for another, keeping the old quantity
// unless a new one is given.
func (s *Service) Replace(ctx context.Context, customerID, oldProductID, newProductID string, quantity int) (*model.Cart, error) {
	cart, err := s.getOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	var keep int
	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == oldProductID {
			keep = cart.Items[i].Quantity
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotInCart
	}
	if err := s.saveQuiet(ctx, cart); err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = keep
	}
	return s.Add(ctx, customerID, newProductID, quantity)
}

func (s *Service) save(ctx context.Context, cart *model.Cart) (*model.Cart, error) {
	if err := s.saveQuiet(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) saveQuiet(ctx context.Context, cart *model.Cart) error {
	// Every mutation extends the cart's life by the full TTL.
	cart.ExpiresAt = s.now().Add(TTL)
	if err := s.carts.PutCart(ctx, cart); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	// Mutations must drop the snapshot before returning so the next
	// read never sees a stale cart.
	s.cache.Invalidate(cart.CustomerID)
	return nil
}

// RunCleanup deletes expired carts on a fixed interval until ctx ends.
func (s *Service) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped, err := s.carts.DeleteExpiredCarts(ctx, s.now())
			if err != nil {
				s.log.Warn("cart cleanup", zap.Error(err))
				continue
			}
			if dropped > 0 {
				s.log.Debug("cart cleanup", zap.Int("deleted", dropped))
			}
		}
	}
}

// Format renders the cart as a customer-facing message.
func Format(cart *model.Cart) string {
	if len(cart.Items) == 0 {
		return "🛒 Votre panier est vide.\nEnvoyez vos dimensions (ex : 205/55R16) pour trouver vos pneus."
	}
	var b strings.Builder
	b.WriteString("🛒 *Votre panier*\n")
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.Product == nil {
			continue
		}
		fmt.Fprintf(&b, "• %s %s ×%d · %.2f €\n",
			item.Product.Brand, item.Product.Model, item.Quantity, item.Subtotal())
	}
	fmt.Fprintf(&b, "\n💶 *Total : %.2f €* (%d pneu(s))", cart.Total(), cart.UnitCount())
	return b.String()
}
