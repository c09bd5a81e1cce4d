package catalog

import (
	"fmt"
	"strings"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

// categoryOrder controls presentation: budget options first.
var categoryOrder = []model.ProductCategory{
	model.CategoryBudget,
	model.CategoryStandard,
	model.CategoryPremium,
}

var categoryNames = map[model.ProductCategory]string{
	model.CategoryBudget:   "Économique",
	model.CategoryStandard: "Qualité/Prix",
	model.CategoryPremium:  "Premium",
}

// displayOrder returns the page's indices in presentation order:
// grouped by category, budget first, keeping the store's price order
// within each group. Positional replies resolve against this order, so
// FormatResults and Result.ProductIDs must both go through it.
func displayOrder(products []model.Product) []int {
	order := make([]int, 0, len(products))
	seen := make([]bool, len(products))
	for _, cat := range categoryOrder {
		for i := range products {
			if products[i].Category == cat {
				order = append(order, i)
				seen[i] = true
			}
		}
	}
	for i := range products {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order
}

// FormatResults renders a results page grouped by category, each
// product numbered so the customer can reply with a position.
func FormatResults(r *Result, dimensions string) string {
	if r.Total == 0 {
		return fmt.Sprintf("😕 Aucun pneu disponible en %s pour le moment.\nEssayez d'autres dimensions ou contactez-nous directement.", dimensions)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *%d pneu(s) en %s*\n", r.Total, dimensions)

	n := (r.Page-1)*PageSize + 1
	var current model.ProductCategory
	first := true
	for _, i := range displayOrder(r.Products) {
		p := &r.Products[i]
		if first || p.Category != current {
			fmt.Fprintf(&b, "\n%s *%s*\n", p.Category.CategoryIcon(), categoryNames[p.Category])
			current = p.Category
			first = false
		}
		b.WriteString(FormatProductLine(n, p))
		b.WriteString("\n")
		n++
	}

	if r.Pages > 1 {
		fmt.Fprintf(&b, "\n📄 Page %d/%d · Tapez \"page %d\" pour la suite", r.Page, r.Pages, r.Page+1)
	}
	b.WriteString("\n💬 Répondez avec le numéro du pneu qui vous intéresse.")
	return b.String()
}

// FormatProductLine renders one numbered result line.
func FormatProductLine(n int, p *model.Product) string {
	line := fmt.Sprintf("%d️⃣ %s %s · %.2f €", n, p.Brand, p.Model, p.FinalPrice())
	if p.IsOverstock && p.DiscountPercent > 0 {
		line += fmt.Sprintf(" (−%.0f%% 🔥)", p.DiscountPercent)
	}
	return line
}

// FormatDetails renders the full product card.
func FormatDetails(p *model.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s*\n", p.Category.CategoryIcon(), p.Brand, p.Model)
	fmt.Fprintf(&b, "📐 Dimensions : %s\n", p.Dimensions())
	fmt.Fprintf(&b, "🏷 Gamme : %s\n", categoryNames[p.Category])
	if p.IsOverstock && p.DiscountPercent > 0 {
		fmt.Fprintf(&b, "💶 Prix : ~%.2f €~ *%.2f €* (−%.0f%% déstockage)\n", p.PriceRetail, p.FinalPrice(), p.DiscountPercent)
	} else {
		fmt.Fprintf(&b, "💶 Prix : %.2f €\n", p.PriceRetail)
	}
	if p.StockQuantity > 0 {
		fmt.Fprintf(&b, "📦 Stock : %d disponible(s)\n", p.StockQuantity)
	} else {
		b.WriteString("📦 Stock : épuisé\n")
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "ℹ️ %s\n", p.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatComparison renders a side-by-side comparison of 2 or more
// products, cheapest first.
func FormatComparison(products []model.Product) string {
	if len(products) < 2 {
		return "⚖️ Il faut au moins 2 pneus à comparer."
	}
	var b strings.Builder
	b.WriteString("⚖️ *Comparatif*\n")
	for i := range products {
		p := &products[i]
		fmt.Fprintf(&b, "\n%s *%s %s* (%s)\n", p.Category.CategoryIcon(), p.Brand, p.Model, categoryNames[p.Category])
		fmt.Fprintf(&b, "   💶 %.2f € · 📐 %s · 📦 %d en stock\n", p.FinalPrice(), p.Dimensions(), p.StockQuantity)
	}

	cheapest := 0
	for i := range products {
		if products[i].FinalPrice() < products[cheapest].FinalPrice() {
			cheapest = i
		}
	}
	fmt.Fprintf(&b, "\n💡 Le plus économique : %s %s à %.2f €",
		products[cheapest].Brand, products[cheapest].Model, products[cheapest].FinalPrice())
	return b.String()
}

// FormatBrands renders the brand list for a dimension.
func FormatBrands(brands []string, dimensions string) string {
	if len(brands) == 0 {
		if dimensions != "" {
			return fmt.Sprintf("😕 Aucune marque disponible en %s.", dimensions)
		}
		return "😕 Aucune marque disponible pour le moment."
	}
	var b strings.Builder
	if dimensions != "" {
		fmt.Fprintf(&b, "🏷 *Marques disponibles en %s*\n", dimensions)
	} else {
		b.WriteString("🏷 *Marques disponibles*\n")
	}
	for _, brand := range brands {
		fmt.Fprintf(&b, "• %s\n", brand)
	}
	b.WriteString("💬 Précisez une marque pour filtrer la recherche.")
	return b.String()
}
