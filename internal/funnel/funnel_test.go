package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepOrderAndProgress(t *testing.T) {
	want := []struct {
		step     Step
		progress int
	}{
		{StepGreeting, 0},
		{StepSearch, 15},
		{StepResults, 30},
		{StepSelection, 45},
		{StepCart, 60},
		{StepCheckout, 75},
		{StepPayment, 90},
		{StepConfirmation, 100},
	}
	got := Steps()
	assert.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.step, got[i])
		assert.Equal(t, w.progress, w.step.Progress())
		assert.Equal(t, i+1, w.step.Number())
	}
}

func TestParseDefaultsToGreeting(t *testing.T) {
	assert.Equal(t, StepCart, Parse("cart"))
	assert.Equal(t, StepGreeting, Parse(""))
	assert.Equal(t, StepGreeting, Parse("bogus"))
}

func TestCanAdvanceForward(t *testing.T) {
	ctx := Context{
		HasSearch:            true,
		HasSearchResults:     true,
		HasSelectedProduct:   true,
		CartItemCount:        2,
		DeliveryInfoComplete: true,
		HasPaymentSession:    true,
	}
	cur := StepGreeting
	for _, next := range Steps()[1:] {
		assert.True(t, CanAdvance(cur, next, ctx), "from %s to %s", cur, next)
		cur = next
	}
}

func TestCanAdvancePreconditions(t *testing.T) {
	tests := []struct {
		name    string
		current Step
		target  Step
		ctx     Context
		want    bool
	}{
		{"results without search", StepSearch, StepResults, Context{}, false},
		{"results with search", StepSearch, StepResults, Context{HasSearch: true}, true},
		{"selection without results", StepResults, StepSelection, Context{HasSearch: true}, false},
		{"cart without selection", StepSelection, StepCart, Context{HasSearchResults: true}, false},
		{"cart with selection", StepSelection, StepCart, Context{HasSelectedProduct: true}, true},
		{"checkout with empty cart", StepCart, StepCheckout, Context{HasSelectedProduct: true}, false},
		{"checkout with items", StepCart, StepCheckout, Context{CartItemCount: 4}, true},
		{"payment without delivery info", StepCheckout, StepPayment, Context{CartItemCount: 4}, false},
		{"payment with delivery info", StepCheckout, StepPayment, Context{DeliveryInfoComplete: true}, true},
		{"confirmation without session", StepPayment, StepConfirmation, Context{DeliveryInfoComplete: true}, false},
		{"confirmation with session", StepPayment, StepConfirmation, Context{HasPaymentSession: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdvance(tt.current, tt.target, tt.ctx))
		})
	}
}

func TestCanAdvanceBackward(t *testing.T) {
	ctx := Context{HasSearch: true, HasSearchResults: true, HasSelectedProduct: true, CartItemCount: 4}

	// One step back is allowed.
	assert.True(t, CanAdvance(StepCart, StepSelection, ctx))
	// More than one step back is not.
	assert.False(t, CanAdvance(StepCart, StepResults, ctx))
	assert.False(t, CanAdvance(StepPayment, StepCart, ctx))
}

func TestCanAdvanceRejectsUnknownTarget(t *testing.T) {
	assert.False(t, CanAdvance(StepGreeting, Step("bogus"), Context{}))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "[3/8] 📋 Résultats", Compact(StepResults))
	assert.Equal(t, "[8/8] ✅ Confirmation", Compact(StepConfirmation))
}

func TestPanel(t *testing.T) {
	p := Panel(StepCart)
	assert.Contains(t, p, "60%")
	assert.Contains(t, p, "Panier")
	assert.Contains(t, p, "étape 5/8")
	assert.Contains(t, p, "Prochaine étape : 📦 Livraison")
	assert.Contains(t, p, "●●●●◉○○○")

	// Final step has no "next" hint.
	assert.NotContains(t, Panel(StepConfirmation), "Prochaine étape")
}

func TestSuggestFinancing(t *testing.T) {
	hints := Suggest(StepCart, SuggestionContext{CartTotal: 520, CartUnitCount: 4})
	assert.Len(t, hints, 1)
	assert.Contains(t, hints[0], "4x")

	hints = Suggest(StepCart, SuggestionContext{CartTotal: 300, CartUnitCount: 4})
	assert.Empty(t, hints)
}

func TestSuggestFullSet(t *testing.T) {
	hints := Suggest(StepCart, SuggestionContext{CartTotal: 180, CartUnitCount: 2})
	assert.Len(t, hints, 1)
	assert.Contains(t, hints[0], "train complet")
}

func TestCartLine(t *testing.T) {
	assert.Empty(t, CartLine(SuggestionContext{}))
	line := CartLine(SuggestionContext{CartUnitCount: 4, CartTotal: 359.6})
	assert.Contains(t, line, "4 pneu(s)")
	assert.Contains(t, line, "359.60 €")
}
