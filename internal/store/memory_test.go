package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

func TestUpsertCustomerByPhone(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	c1, err := s.UpsertCustomerByPhone(ctx, "+590690123456")
	require.NoError(t, err)
	assert.NotEmpty(t, c1.ID)

	c2, err := s.UpsertCustomerByPhone(ctx, "+590690123456")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID, "same phone resolves to same customer")

	c3, err := s.UpsertCustomerByPhone(ctx, "+590690999999")
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c3.ID)
}

func TestUpdateCustomer(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	c, err := s.UpsertCustomerByPhone(ctx, "+590690123456")
	require.NoError(t, err)
	assert.False(t, c.HasCompleteInfo())

	updated, err := s.UpdateCustomer(ctx, c.ID, model.CustomerUpdate{
		FirstName: "Marie",
		LastName:  "Dupont",
		Email:     "marie.dupont@orange.fr",
	})
	require.NoError(t, err)
	assert.True(t, updated.HasCompleteInfo())
	assert.Equal(t, "Marie Dupont", updated.FullName())

	// Empty fields do not clear stored values.
	updated, err = s.UpdateCustomer(ctx, c.ID, model.CustomerUpdate{City: "Pointe-à-Pitre"})
	require.NoError(t, err)
	assert.Equal(t, "Marie", updated.FirstName)
	assert.Equal(t, "Pointe-à-Pitre", updated.City)

	_, err = s.UpdateCustomer(ctx, "missing", model.CustomerUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationLifecycle(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.ActiveConversation(ctx, "cust-1")
	assert.ErrorIs(t, err, ErrNotFound)

	conv := &model.Conversation{CustomerID: "cust-1", PhoneNumber: "+590690123456"}
	require.NoError(t, s.CreateConversation(ctx, conv))
	assert.NotEmpty(t, conv.ID)

	got, err := s.ActiveConversation(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, model.ConversationActive, got.Status)

	updated, err := s.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
		CurrentStep:      model.StringPtr("cart"),
		SearchDimensions: model.StringPtr("205/55R16"),
	})
	require.NoError(t, err)
	assert.Equal(t, "cart", updated.Metadata.CurrentStep)
	assert.False(t, updated.Metadata.LastUpdate.IsZero())

	require.NoError(t, s.CloseConversation(ctx, conv.ID, "commande confirmée"))
	_, err = s.ActiveConversation(ctx, "cust-1")
	assert.ErrorIs(t, err, ErrNotFound)

	closed, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationCompleted, closed.Status)
	assert.NotNil(t, closed.EndedAt)
}

func TestRecentMessagesWindow(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i, body := range []string{"bonjour", "205/55R16", "le premier", "ajoute 4", "valide"} {
		require.NoError(t, s.AppendMessage(ctx, &model.Message{
			ConversationID: "conv-1",
			Role:           model.RoleUser,
			Content:        body,
			CreatedAt:      time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
		}))
	}

	msgs, err := s.RecentMessages(ctx, "conv-1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "le premier", msgs[0].Content)
	assert.Equal(t, "valide", msgs[2].Content)

	n, err := s.MessageCount(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func seedProducts(t *testing.T, s *Memory) []model.Product {
	t.Helper()
	products := []model.Product{
		{SKU: "MICH-205-55-16", Brand: "Michelin", Model: "Primacy 4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryPremium, PriceRetail: 129.90, StockQuantity: 12},
		{SKU: "KLEB-205-55-16", Brand: "Kleber", Model: "Dynaxer HP4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryStandard, PriceRetail: 89.90, StockQuantity: 8},
		{SKU: "SAIL-205-55-16", Brand: "Sailun", Model: "Atrezzo Elite", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryBudget, PriceRetail: 59.90, StockQuantity: 0},
		{SKU: "MICH-225-45-17", Brand: "Michelin", Model: "Pilot Sport 5", Width: 225, Height: 45, Diameter: 17, Category: model.CategoryPremium, PriceRetail: 164.90, StockQuantity: 6},
	}
	ctx := context.Background()
	for i := range products {
		require.NoError(t, s.PutProduct(ctx, &products[i]))
	}
	return products
}

func TestSearchProducts(t *testing.T) {
	s := NewMemory()
	seedProducts(t, s)
	ctx := context.Background()

	got, total, err := s.SearchProducts(ctx, ProductQuery{Width: 205, Height: 55, Diameter: 16})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, "Sailun", got[0].Brand, "cheapest first")

	got, total, err = s.SearchProducts(ctx, ProductQuery{Width: 205, Height: 55, Diameter: 16, InStock: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	got, total, err = s.SearchProducts(ctx, ProductQuery{Width: 205, Height: 55, Diameter: 16, Category: model.CategoryPremium})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Michelin", got[0].Brand)

	got, total, err = s.SearchProducts(ctx, ProductQuery{Width: 205, Height: 55, Diameter: 16, Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Kleber", got[0].Brand)
}

func TestBrands(t *testing.T) {
	s := NewMemory()
	seedProducts(t, s)
	ctx := context.Background()

	brands, err := s.Brands(ctx, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kleber", "Michelin", "Sailun"}, brands)

	brands, err = s.Brands(ctx, 225, 45, 17)
	require.NoError(t, err)
	assert.Equal(t, []string{"Michelin"}, brands)
}

func TestActiveCartSkipsExpired(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	cart := &model.Cart{
		CustomerID: "cust-1",
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
	require.NoError(t, s.PutCart(ctx, cart))

	got, err := s.ActiveCart(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)

	now = now.Add(25 * time.Hour)
	_, err = s.ActiveCart(ctx, "cust-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderNumbersPerDay(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return day }

	require.NoError(t, s.CreateOrder(ctx, &model.Order{OrderNumber: "GC-20250601-001", CustomerID: "cust-1"}))
	require.NoError(t, s.CreateOrder(ctx, &model.Order{OrderNumber: "GC-20250601-002", CustomerID: "cust-1"}))

	n, err := s.OrdersCreatedOn(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.OrdersCreatedOn(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := s.GetOrderByNumber(ctx, "gc-20250601-002")
	require.NoError(t, err)
	assert.Equal(t, "GC-20250601-002", got.OrderNumber)
}

func TestUpdateOrderStatus(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	o := &model.Order{OrderNumber: "GC-20250601-001", CustomerID: "cust-1", Status: model.OrderPending, PaymentStatus: model.PaymentPending}
	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.UpdateOrderStatus(ctx, o.ID, model.OrderConfirmed, model.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, got.Status)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)

	// Empty values leave fields alone.
	got, err = s.UpdateOrderStatus(ctx, o.ID, model.OrderReadyPickup, "")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
}
