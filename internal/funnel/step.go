// Package funnel models the eight-step sales funnel a conversation
// moves through, from greeting to order confirmation. Steps only move
// forward; the single allowed backward hop is one step, which covers a
// customer revisiting the previous screen.
package funnel

// Step identifies a funnel stage.
type Step string

const (
	StepGreeting     Step = "greeting"
	StepSearch       Step = "search"
	StepResults      Step = "results"
	StepSelection    Step = "selection"
	StepCart         Step = "cart"
	StepCheckout     Step = "checkout"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

// steps in funnel order.
var steps = []Step{
	StepGreeting,
	StepSearch,
	StepResults,
	StepSelection,
	StepCart,
	StepCheckout,
	StepPayment,
	StepConfirmation,
}

var stepIndex = func() map[Step]int {
	m := make(map[Step]int, len(steps))
	for i, s := range steps {
		m[s] = i
	}
	return m
}()

// Steps returns the funnel stages in order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Parse maps a stored step name to a Step, defaulting to greeting for
// unknown or empty values so a corrupted metadata bag never wedges a
// conversation.
func Parse(s string) Step {
	if _, ok := stepIndex[Step(s)]; ok {
		return Step(s)
	}
	return StepGreeting
}

// Valid reports whether s names a known stage.
func Valid(s Step) bool {
	_, ok := stepIndex[s]
	return ok
}

// Index returns the zero-based position in the funnel, -1 if unknown.
func (s Step) Index() int {
	if i, ok := stepIndex[s]; ok {
		return i
	}
	return -1
}

// Number returns the one-based position shown to customers.
func (s Step) Number() int { return s.Index() + 1 }

// Progress returns the completion percentage for the step.
func (s Step) Progress() int {
	switch s {
	case StepGreeting:
		return 0
	case StepSearch:
		return 15
	case StepResults:
		return 30
	case StepSelection:
		return 45
	case StepCart:
		return 60
	case StepCheckout:
		return 75
	case StepPayment:
		return 90
	case StepConfirmation:
		return 100
	default:
		return 0
	}
}

// Icon returns the emoji shown next to the step label.
func (s Step) Icon() string {
	switch s {
	case StepGreeting:
		return "👋"
	case StepSearch:
		return "🔍"
	case StepResults:
		return "📋"
	case StepSelection:
		return "🎯"
	case StepCart:
		return "🛒"
	case StepCheckout:
		return "📦"
	case StepPayment:
		return "💳"
	case StepConfirmation:
		return "✅"
	default:
		return "❓"
	}
}

// Label returns the customer-facing French label.
func (s Step) Label() string {
	switch s {
	case StepGreeting:
		return "Accueil"
	case StepSearch:
		return "Recherche"
	case StepResults:
		return "Résultats"
	case StepSelection:
		return "Sélection"
	case StepCart:
		return "Panier"
	case StepCheckout:
		return "Livraison"
	case StepPayment:
		return "Paiement"
	case StepConfirmation:
		return "Confirmation"
	default:
		return string(s)
	}
}

// Context carries the conversation facts the guard checks before
// letting a transition through.
type Context struct {
	HasSearch            bool
	HasSearchResults     bool
	HasSelectedProduct   bool
	CartItemCount        int
	DeliveryInfoComplete bool
	HasPaymentSession    bool
}

// CanAdvance reports whether moving from current to target is allowed.
// Backward moves are limited to a single step; forward moves must meet
// the target's precondition. A rejected move means "stay", never an
// error.
func CanAdvance(current, target Step, ctx Context) bool {
	ci, ok := stepIndex[current]
	if !ok {
		ci = 0
	}
	ti, ok := stepIndex[target]
	if !ok {
		return false
	}
	if ti < ci-1 {
		return false
	}
	switch target {
	case StepResults:
		return ctx.HasSearch
	case StepSelection:
		return ctx.HasSearchResults
	case StepCart:
		return ctx.HasSelectedProduct
	case StepCheckout:
		return ctx.CartItemCount > 0
	case StepPayment:
		return ctx.DeliveryInfoComplete
	case StepConfirmation:
		return ctx.HasPaymentSession
	default:
		return true
	}
}

// Next returns the step after s, or s itself at the end of the funnel.
func (s Step) Next() Step {
	i := s.Index()
	if i < 0 || i >= len(steps)-1 {
		return s
	}
	return steps[i+1]
}
