package catalog

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

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		in      string
		w, h, d int
		ok      bool
	}{
		{"205/55R16", 205, 55, 16, true},
		{"205/55 R 16", 205, 55, 16, true},
		{"je cherche du 205 55 16 pour ma clio", 205, 55, 16, true},
		{"225-45-17", 225, 45, 17, true},
		{"205/55/16", 205, 55, 16, true},
		{"bonjour", 0, 0, 0, false},
		{"j'ai commandé 4 pneus", 0, 0, 0, false},
	}
	for _, tt := range tests {
		w, h, d, ok := ParseDimensions(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.w, w, tt.in)
			assert.Equal(t, tt.h, h, tt.in)
			assert.Equal(t, tt.d, d, tt.in)
		}
	}
}

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	products := []model.Product{
		{Brand: "Sailun", Model: "Atrezzo Elite", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryBudget, PriceRetail: 59.90, StockQuantity: 10},
		{Brand: "Kleber", Model: "Dynaxer HP4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryStandard, PriceRetail: 89.90, StockQuantity: 8},
		{Brand: "Michelin", Model: "Primacy 4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryPremium, PriceRetail: 129.90, StockQuantity: 12},
		{Brand: "Goodyear", Model: "EfficientGrip", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryStandard, PriceRetail: 99.90, StockQuantity: 0},
	}
	for i := range products {
		require.NoError(t, mem.PutProduct(ctx, &products[i]))
	}
	c := cache.New[*Result]("search", time.Hour, cache.RealClock)
	return NewService(mem, c, logger.NewNop()), mem
}

func TestSearchFiltersOutOfStock(t *testing.T) {
	svc, _ := newTestService(t)

	r, err := svc.Search(context.Background(), Query{Width: 205, Height: 55, Diameter: 16})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Total)
	for _, p := range r.Products {
		assert.Greater(t, p.StockQuantity, 0)
	}
	assert.Equal(t, "Sailun", r.Products[0].Brand, "cheapest first")
}

func TestSearchCached(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	r1, err := svc.Search(ctx, Query{Width: 205, Height: 55, Diameter: 16})
	require.NoError(t, err)

	// A product added after the first search is invisible until the
	// cache entry expires.
	require.NoError(t, mem.PutProduct(ctx, &model.Product{
		Brand: "Pirelli", Model: "Cinturato", Width: 205, Height: 55, Diameter: 16,
		Category: model.CategoryPremium, PriceRetail: 119.90, StockQuantity: 4,
	}))

	r2, err := svc.Search(ctx, Query{Width: 205, Height: 55, Diameter: 16})
	require.NoError(t, err)
	assert.Equal(t, r1.Total, r2.Total)
}

func TestSearchByCategory(t *testing.T) {
	svc, _ := newTestService(t)

	r, err := svc.Search(context.Background(), Query{Width: 205, Height: 55, Diameter: 16, Category: model.CategoryPremium})
	require.NoError(t, err)
	require.Equal(t, 1, r.Total)
	assert.Equal(t, "Michelin", r.Products[0].Brand)
}

func TestFormatResults(t *testing.T) {
	svc, _ := newTestService(t)

	r, err := svc.Search(context.Background(), Query{Width: 205, Height: 55, Diameter: 16})
	require.NoError(t, err)

	out := FormatResults(r, "205/55R16")
	assert.Contains(t, out, "3 pneu(s) en 205/55R16")
	assert.Contains(t, out, "💰 *Économique*")
	assert.Contains(t, out, "Sailun Atrezzo Elite")
	assert.Contains(t, out, "💎 *Premium*")
	assert.NotContains(t, out, "Goodyear", "out of stock hidden")
	assert.NotContains(t, out, "Page", "single page has no pagination footer")
}

func TestResultPositionsMatchRenderedNumbers(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	// A heavy destocking discount makes the premium tyre cheaper than
	// the budget one, so the store returns it first. The rendered list
	// still leads with the budget group; the ID list must number the
	// same way or positional replies pick the wrong product.
	products := []model.Product{
		{Brand: "Michelin", Model: "Pilot Sport 4", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryPremium, PriceRetail: 130, StockQuantity: 6, IsOverstock: true, DiscountPercent: 65},
		{Brand: "Sailun", Model: "Atrezzo Elite", Width: 205, Height: 55, Diameter: 16, Category: model.CategoryBudget, PriceRetail: 60, StockQuantity: 10},
	}
	for i := range products {
		require.NoError(t, mem.PutProduct(ctx, &products[i]))
	}
	svc := NewService(mem, cache.New[*Result]("search", time.Hour, cache.RealClock), logger.NewNop())

	r, err := svc.Search(ctx, Query{Width: 205, Height: 55, Diameter: 16})
	require.NoError(t, err)
	require.Len(t, r.Products, 2)

	byBrand := map[string]string{}
	for i := range r.Products {
		byBrand[r.Products[i].Brand] = r.Products[i].ID
	}

	out := FormatResults(r, "205/55R16")
	assert.Contains(t, out, "1️⃣ Sailun Atrezzo Elite")
	assert.Contains(t, out, "2️⃣ Michelin Pilot Sport 4")

	ids := r.ProductIDs()
	require.Len(t, ids, 2)
	assert.Equal(t, byBrand["Sailun"], ids[0])
	assert.Equal(t, byBrand["Michelin"], ids[1])
}

func TestFormatResultsEmpty(t *testing.T) {
	out := FormatResults(&Result{}, "155/70R12")
	assert.Contains(t, out, "Aucun pneu disponible en 155/70R12")
}

func TestFormatDetailsOverstock(t *testing.T) {
	p := &model.Product{
		Brand: "Kleber", Model: "Dynaxer HP4", Width: 205, Height: 55, Diameter: 16,
		Category: model.CategoryStandard, PriceRetail: 100, StockQuantity: 4,
		IsOverstock: true, DiscountPercent: 20,
	}
	out := FormatDetails(p)
	assert.Contains(t, out, "80.00 €")
	assert.Contains(t, out, "−20% déstockage")
	assert.Contains(t, out, "205/55R16")
}

func TestFormatComparison(t *testing.T) {
	products := []model.Product{
		{Brand: "Michelin", Model: "Primacy 4", Category: model.CategoryPremium, PriceRetail: 129.90, Width: 205, Height: 55, Diameter: 16, StockQuantity: 3},
		{Brand: "Sailun", Model: "Atrezzo Elite", Category: model.CategoryBudget, PriceRetail: 59.90, Width: 205, Height: 55, Diameter: 16, StockQuantity: 9},
	}
	out := FormatComparison(products)
	assert.Contains(t, out, "Comparatif")
	assert.Contains(t, out, "Le plus économique : Sailun Atrezzo Elite à 59.90 €")

	assert.Contains(t, FormatComparison(products[:1]), "au moins 2 pneus")
}
