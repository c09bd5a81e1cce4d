package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/cart"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

func fixture(t *testing.T) (*Service, *cart.Service, *store.Memory, *model.Customer) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.PutProduct(ctx, &model.Product{
		ID: "p-michelin", Brand: "Michelin", Model: "Primacy 4",
		Width: 205, Height: 55, Diameter: 16,
		Category: model.CategoryPremium, PriceRetail: 129.90, StockQuantity: 8,
	}))

	customer, err := mem.UpsertCustomerByPhone(ctx, "+590690123456")
	require.NoError(t, err)
	customer, err = mem.UpdateCustomer(ctx, customer.ID, model.CustomerUpdate{
		FirstName: "Marie",
		LastName:  "Lambert",
		Email:     "marie.lambert@orange.fr",
		Address:   "12 rue des Flamboyants",
		City:      "Pointe-à-Pitre",
	})
	require.NoError(t, err)

	carts := cart.NewService(mem, mem, cache.New[*model.Cart]("cart", 30*time.Second, cache.RealClock), logger.NewNop())
	orders := NewService(mem, carts, NewLinkProvider("https://garageconnect.gp"), logger.NewNop())
	return orders, carts, mem, customer
}

func TestCreateFromCart(t *testing.T) {
	orders, carts, _, customer := fixture(t)
	ctx := context.Background()

	_, err := carts.Add(ctx, customer.ID, "p-michelin", 4)
	require.NoError(t, err)

	res, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)

	o := res.Order
	assert.Regexp(t, `^GC-\d{8}-\d{3}$`, o.OrderNumber)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, model.PaymentPending, o.PaymentStatus)
	require.Len(t, o.Items, 1)
	assert.InDelta(t, 129.90, o.Items[0].UnitPrice, 0.001)
	assert.InDelta(t, 519.60, o.TotalAmount, 0.001)
	assert.NotEmpty(t, o.PaymentSessionID)
	assert.Contains(t, res.PaymentURL, o.OrderNumber)

	assert.Contains(t, res.ConfirmationMessage, o.OrderNumber)
	assert.Contains(t, res.ConfirmationMessage, res.PaymentURL)
	assert.Contains(t, res.ConfirmationMessage, "519.60 €")

	// Checkout empties the cart.
	c, err := carts.Get(ctx, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCreateFromCartPersistsPaymentSession(t *testing.T) {
	orders, carts, mem, customer := fixture(t)
	ctx := context.Background()

	_, err := carts.Add(ctx, customer.ID, "p-michelin", 2)
	require.NoError(t, err)
	res, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)

	// The session ID must survive a reload from the store, not just sit
	// on the in-memory result.
	stored, err := mem.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.PaymentSessionID, stored.PaymentSessionID)
	assert.NotEmpty(t, stored.PaymentSessionID)
}

func TestCreateFromCartFrozenPrices(t *testing.T) {
	orders, carts, mem, customer := fixture(t)
	ctx := context.Background()

	_, err := carts.Add(ctx, customer.ID, "p-michelin", 2)
	require.NoError(t, err)

	res, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)

	// A later price change leaves the order untouched.
	require.NoError(t, mem.PutProduct(ctx, &model.Product{
		ID: "p-michelin", Brand: "Michelin", Model: "Primacy 4",
		Width: 205, Height: 55, Diameter: 16,
		Category: model.CategoryPremium, PriceRetail: 999, StockQuantity: 8,
	}))
	got, err := orders.ByNumber(ctx, res.Order.OrderNumber)
	require.NoError(t, err)
	assert.InDelta(t, 259.80, got.TotalAmount, 0.001)
}

func TestCreateFromCartRejectsEmptyCart(t *testing.T) {
	orders, _, _, customer := fixture(t)

	_, err := orders.CreateFromCart(context.Background(), customer, "conv-1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateFromCartRejectsIncompleteCustomer(t *testing.T) {
	orders, carts, mem, _ := fixture(t)
	ctx := context.Background()

	bare, err := mem.UpsertCustomerByPhone(ctx, "+590690000001")
	require.NoError(t, err)
	_, err = carts.Add(ctx, bare.ID, "p-michelin", 1)
	require.NoError(t, err)

	_, err = orders.CreateFromCart(ctx, bare, "conv-1")
	assert.ErrorIs(t, err, ErrIncompleteCustomer)
}

func TestCreateFromCartRejectsPlaceholderIdentity(t *testing.T) {
	orders, carts, mem, _ := fixture(t)
	ctx := context.Background()

	fake, err := mem.UpsertCustomerByPhone(ctx, "+590690000002")
	require.NoError(t, err)
	fake, err = mem.UpdateCustomer(ctx, fake.ID, model.CustomerUpdate{
		FirstName: "John", LastName: "Doe",
		Email: "john@company.fr", Address: "1 rue Test",
	})
	require.NoError(t, err)
	_, err = carts.Add(ctx, fake.ID, "p-michelin", 1)
	require.NoError(t, err)

	_, err = orders.CreateFromCart(ctx, fake, "conv-1")
	assert.ErrorIs(t, err, ErrPlaceholderIdentity)
}

func TestOrderNumberSequence(t *testing.T) {
	orders, carts, mem, customer := fixture(t)
	ctx := context.Background()

	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	orders.now = func() time.Time { return day }
	mem.Now = func() time.Time { return day }

	_, err := carts.Add(ctx, customer.ID, "p-michelin", 1)
	require.NoError(t, err)
	first, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "GC-20250601-001", first.Order.OrderNumber)

	_, err = carts.Add(ctx, customer.ID, "p-michelin", 1)
	require.NoError(t, err)
	second, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "GC-20250601-002", second.Order.OrderNumber)

	// Sequence resets the next day.
	day = day.AddDate(0, 0, 1)
	_, err = carts.Add(ctx, customer.ID, "p-michelin", 1)
	require.NoError(t, err)
	third, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "GC-20250602-001", third.Order.OrderNumber)
}

func TestConcurrentCheckoutsGetDistinctNumbers(t *testing.T) {
	orders, carts, mem, first := fixture(t)
	ctx := context.Background()

	second, err := mem.UpsertCustomerByPhone(ctx, "+590690222222")
	require.NoError(t, err)
	second, err = mem.UpdateCustomer(ctx, second.ID, model.CustomerUpdate{
		FirstName: "Paul", LastName: "Martin",
		Email: "paul.martin@orange.fr", Address: "3 allée des Hibiscus",
	})
	require.NoError(t, err)

	customers := []*model.Customer{first, second}
	for _, c := range customers {
		_, err := carts.Add(ctx, c.ID, "p-michelin", 1)
		require.NoError(t, err)
	}

	numbers := make([]string, len(customers))
	var wg sync.WaitGroup
	for i, c := range customers {
		wg.Add(1)
		go func(i int, c *model.Customer) {
			defer wg.Done()
			res, err := orders.CreateFromCart(ctx, c, "conv-1")
			if assert.NoError(t, err) {
				numbers[i] = res.Order.OrderNumber
			}
		}(i, c)
	}
	wg.Wait()

	assert.NotEqual(t, numbers[0], numbers[1], "each checkout draws its own sequence slot")
}

func TestPlaceholderIdentity(t *testing.T) {
	assert.True(t, IsPlaceholderName("John", "Doe"))
	assert.True(t, IsPlaceholderName("jean", "DUPONT"))
	assert.False(t, IsPlaceholderName("Marie", "Lambert"))

	assert.True(t, IsPlaceholderEmail("foo@example.com"))
	assert.True(t, IsPlaceholderEmail("test@orange.fr"))
	assert.False(t, IsPlaceholderEmail("marie.lambert@orange.fr"))
	assert.False(t, IsPlaceholderEmail("not-an-email"))
}

func TestStatusTransitions(t *testing.T) {
	orders, carts, _, customer := fixture(t)
	ctx := context.Background()

	_, err := carts.Add(ctx, customer.ID, "p-michelin", 1)
	require.NoError(t, err)
	res, err := orders.CreateFromCart(ctx, customer, "conv-1")
	require.NoError(t, err)

	paid, err := orders.MarkPaid(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, paid.Status)
	assert.Equal(t, model.PaymentPaid, paid.PaymentStatus)

	ready, err := orders.UpdateStatus(ctx, res.Order.ID, model.OrderReadyPickup)
	require.NoError(t, err)
	assert.Equal(t, model.OrderReadyPickup, ready.Status)
	assert.Equal(t, model.PaymentPaid, ready.PaymentStatus)

	_, err = orders.MarkPaid(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormatList(t *testing.T) {
	assert.Contains(t, FormatList(nil), "pas encore de commande")

	orders := []model.Order{{
		OrderNumber: "GC-20250601-001",
		Status:      model.OrderConfirmed,
		TotalAmount: 259.80,
		CreatedAt:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}}
	out := FormatList(orders)
	assert.Contains(t, out, "GC-20250601-001")
	assert.Contains(t, out, "01/06/2025")
	assert.Contains(t, out, "259.80 €")
}
