package funnel

import "fmt"

// financingThreshold is the cart total above which the 4x payment plan
// is suggested.
const financingThreshold = 400.0

// SuggestionContext carries the facts the hint composer looks at. All
// amounts are in euros.
type SuggestionContext struct {
	CartTotal     float64
	CartUnitCount int
	HasSearched   bool
}

// Suggest returns zero or more short hints for the current step. Pure
// function of its inputs; the caller appends them to the outbound text.
func Suggest(s Step, ctx SuggestionContext) []string {
	var hints []string

	switch s {
	case StepGreeting:
		if !ctx.HasSearched {
			hints = append(hints, "💡 Envoyez vos dimensions (ex : 205/55R16) pour voir nos pneus disponibles.")
		}
	case StepResults, StepSelection:
		if ctx.CartUnitCount == 0 {
			hints = append(hints, "💡 Pour un montage équilibré, pensez à changer les pneus par train complet de 4.")
		}
	case StepCart, StepCheckout:
		if ctx.CartUnitCount > 0 && ctx.CartUnitCount < 4 {
			hints = append(hints, fmt.Sprintf("💡 Vous avez %d pneu(s) au panier. Un train complet de 4 garantit une usure homogène.", ctx.CartUnitCount))
		}
		if ctx.CartTotal > financingThreshold {
			hints = append(hints, "💳 Paiement en 4x sans frais disponible pour ce montant.")
		}
	case StepPayment:
		if ctx.CartTotal > financingThreshold {
			hints = append(hints, "💳 Paiement en 4x sans frais disponible pour ce montant.")
		}
	}

	return hints
}

// QuickActions returns the short list of actions the customer can type
// at the current step, rendered under the reply.
func QuickActions(s Step) []string {
	switch s {
	case StepGreeting, StepSearch:
		return []string{"🔍 Envoyer vos dimensions", "📦 Voir mes commandes"}
	case StepResults:
		return []string{"🎯 Choisir un pneu", "🔍 Nouvelle recherche"}
	case StepSelection:
		return []string{"🛒 Ajouter au panier", "📋 Voir les détails", "⚖️ Comparer"}
	case StepCart:
		return []string{"📦 Passer commande", "➕ Ajouter d'autres pneus", "🗑 Vider le panier"}
	case StepCheckout:
		return []string{"✅ Confirmer la commande", "🛒 Revoir le panier"}
	case StepPayment:
		return []string{"💳 Payer en ligne", "📦 Voir mes commandes"}
	case StepConfirmation:
		return []string{"📦 Suivre ma commande", "🔍 Nouvelle recherche"}
	default:
		return nil
	}
}

// CartLine renders the one-line cart summary appended to replies while
// the cart is non-empty.
func CartLine(ctx SuggestionContext) string {
	if ctx.CartUnitCount == 0 {
		return ""
	}
	return fmt.Sprintf("🛒 Panier : %d pneu(s) · %.2f €", ctx.CartUnitCount, ctx.CartTotal)
}
