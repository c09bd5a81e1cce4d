package order

import (
	"fmt"
	"strings"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

var statusLabels = map[model.OrderStatus]string{
	model.OrderPending:     "En attente de paiement",
	model.OrderConfirmed:   "Confirmée",
	model.OrderReadyPickup: "Prête au retrait",
	model.OrderCompleted:   "Terminée",
	model.OrderCancelled:   "Annulée",
}

// ConfirmationMessage renders the full post-checkout message,
// including the payment link. Returned with the order so the caller
// can reply without another model round-trip.
func ConfirmationMessage(o *model.Order, c *model.Customer, payURL string) string {
	var b strings.Builder
	b.WriteString("✅ *Commande enregistrée !*\n\n")
	fmt.Fprintf(&b, "📋 Numéro : *%s*\n", o.OrderNumber)
	fmt.Fprintf(&b, "👤 %s\n\n", c.FullName())
	for i := range o.Items {
		item := &o.Items[i]
		name := item.ProductID
		if item.Product != nil {
			name = item.Product.Brand + " " + item.Product.Model
		}
		fmt.Fprintf(&b, "• %s ×%d · %.2f €\n", name, item.Quantity, item.Subtotal)
	}
	fmt.Fprintf(&b, "\n💶 *Total : %.2f €*\n\n", o.TotalAmount)
	fmt.Fprintf(&b, "💳 Payez en ligne : %s\n", payURL)
	if o.TotalAmount > 400 {
		b.WriteString("💡 Paiement en 4x sans frais disponible au moment du paiement.\n")
	}
	b.WriteString("\n")
	b.WriteString("Une fois le paiement reçu, nous préparons vos pneus et vous prévenons dès qu'ils sont prêts. Merci ! 🙏")
	return b.String()
}

// NotificationMessage renders the push sent to the customer when an
// order changes state. Empty for states that do not warrant a push.
func NotificationMessage(o *model.Order) string {
	switch {
	case o.Status == model.OrderReadyPickup:
		return fmt.Sprintf("📦 Bonne nouvelle ! Votre commande *%s* est prête au retrait en magasin. À très vite ! 🛞", o.OrderNumber)
	case o.PaymentStatus == model.PaymentPaid && o.Status == model.OrderConfirmed:
		return fmt.Sprintf("✅ Paiement reçu pour la commande *%s*. Nous préparons vos pneus et vous prévenons dès qu'ils sont prêts. Merci !", o.OrderNumber)
	case o.Status == model.OrderCancelled:
		return fmt.Sprintf("❌ Votre commande *%s* a été annulée. Répondez à ce message si vous avez une question.", o.OrderNumber)
	}
	return ""
}

// FormatStatus renders one order's status card.
func FormatStatus(o *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Commande %s*\n", o.Status.StatusIcon(), o.OrderNumber)
	fmt.Fprintf(&b, "📅 %s\n", o.CreatedAt.Format("02/01/2006"))
	fmt.Fprintf(&b, "🚦 Statut : %s\n", statusLabels[o.Status])
	for i := range o.Items {
		item := &o.Items[i]
		name := item.ProductID
		if item.Product != nil {
			name = item.Product.Brand + " " + item.Product.Model
		}
		fmt.Fprintf(&b, "• %s ×%d\n", name, item.Quantity)
	}
	fmt.Fprintf(&b, "💶 Total : %.2f €", o.TotalAmount)
	return b.String()
}

// FormatList renders a customer's recent orders, newest first.
func FormatList(orders []model.Order) string {
	if len(orders) == 0 {
		return "📦 Vous n'avez pas encore de commande.\nEnvoyez vos dimensions (ex : 205/55R16) pour commencer."
	}
	var b strings.Builder
	b.WriteString("📦 *Vos commandes*\n")
	for i := range orders {
		o := &orders[i]
		fmt.Fprintf(&b, "%s %s · %s · %.2f €\n",
			o.Status.StatusIcon(), o.OrderNumber, o.CreatedAt.Format("02/01/2006"), o.TotalAmount)
	}
	b.WriteString("\n💬 Envoyez un numéro de commande pour le détail.")
	return b.String()
}
