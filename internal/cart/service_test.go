package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	products := []model.Product{
		{ID: "p-michelin", Brand: "Michelin", Model: "Primacy 4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryPremium, PriceRetail: 129.90, StockQuantity: 8},
		{ID: "p-kleber", Brand: "Kleber", Model: "Dynaxer HP4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryStandard, PriceRetail: 89.90, StockQuantity: 4},
	}
	for i := range products {
		require.NoError(t, mem.PutProduct(ctx, &products[i]))
	}
	c := cache.New[*model.Cart]("cart", 30*time.Second, cache.RealClock)
	return NewService(mem, mem, c, logger.NewNop()), mem
}

func TestGetCreatesEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "cust-1", cart.CustomerID)
	assert.Equal(t, TTL, cart.ExpiresAt.Sub(cart.CreatedAt))

	again, err := svc.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID, "same cart on repeat reads")
}

func TestAddIsAdditive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Add(ctx, "cust-1", "p-michelin", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.Add(ctx, "cust-1", "p-michelin", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.InDelta(t, 4*129.90, cart.Total(), 0.001)
}

func TestAddRejectsOverStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "cust-1", "p-kleber", 3)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "cust-1", "p-kleber", 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.Add(ctx, "cust-1", "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMutationInvalidatesSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "cust-1")
	require.NoError(t, err)

	_, err = svc.Add(ctx, "cust-1", "p-michelin", 1)
	require.NoError(t, err)

	// The next read must see the mutation even though the 30s snapshot
	// has not expired.
	cart, err := svc.Get(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
}

func TestUpdateQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "cust-1", "p-michelin", 2)
	require.NoError(t, err)

	cart, err := svc.UpdateQuantity(ctx, "cust-1", "p-michelin", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	// Zero removes the line.
	cart, err = svc.UpdateQuantity(ctx, "cust-1", "p-michelin", 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.UpdateQuantity(ctx, "cust-1", "p-michelin", 2)
	assert.ErrorIs(t, err, ErrItemNotInCart)
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "cust-1", "p-michelin", 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "cust-1", "p-kleber", 2)
	require.NoError(t, err)

	cart, err := svc.Remove(ctx, "cust-1", "p-michelin")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p-kleber", cart.Items[0].ProductID)

	cart, err = svc.Clear(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestReplaceKeepsQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "cust-1", "p-kleber", 4)
	require.NoError(t, err)

	cart, err := svc.Replace(ctx, "cust-1", "p-kleber", "p-michelin", 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p-michelin", cart.Items[0].ProductID)
	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestExpiredCartReplaced(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	mem.Now = func() time.Time { return now }

	first, err := svc.Add(ctx, "cust-1", "p-michelin", 2)
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	svc.cache.Invalidate("cust-1")

	cart, err := svc.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, cart.ID, "expired cart replaced by a fresh one")
	assert.Empty(t, cart.Items)
}

func TestFormat(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Contains(t, Format(cart), "panier est vide")

	cart, err = svc.Add(ctx, "cust-1", "p-michelin", 4)
	require.NoError(t, err)
	out := Format(cart)
	assert.Contains(t, out, "Michelin Primacy 4 ×4")
	assert.Contains(t, out, "Total : 519.60 €")
	assert.Contains(t, out, "4 pneu(s)")
}
