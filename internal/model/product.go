package model

import "fmt"

// ProductCategory is the pricing tier of a tyre.
type ProductCategory string

const (
	CategoryBudget   ProductCategory = "budget"
	CategoryStandard ProductCategory = "standard"
	CategoryPremium  ProductCategory = "premium"
)

// Product is a tyre in the catalog.
type Product struct {
	ID              string          `json:"id"`
	SKU             string          `json:"sku"`
	Brand           string          `json:"brand"`
	Model           string          `json:"model"`
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	Diameter        int             `json:"diameter"`
	Category        ProductCategory `json:"category"`
	PriceRetail     float64         `json:"price_retail"`
	StockQuantity   int             `json:"stock_quantity"`
	Description     string          `json:"description,omitempty"`
	IsOverstock     bool            `json:"is_overstock,omitempty"`
	DiscountPercent float64         `json:"discount_percent,omitempty"`
}

// Dimensions renders the tyre size in the standard 205/55R16 notation.
func (p *Product) Dimensions() string {
	return fmt.Sprintf("%d/%dR%d", p.Width, p.Height, p.Diameter)
}

// FinalPrice applies the overstock discount when one is active.
func (p *Product) FinalPrice() float64 {
	if p.IsOverstock && p.DiscountPercent > 0 {
		return p.PriceRetail * (1 - p.DiscountPercent/100)
	}
	return p.PriceRetail
}

// CategoryIcon returns the emoji used when presenting the tier.
func (c ProductCategory) CategoryIcon() string {
	switch c {
	case CategoryBudget:
		return "💰"
	case CategoryStandard:
		return "⭐"
	case CategoryPremium:
		return "💎"
	default:
		return "🔧"
	}
}
