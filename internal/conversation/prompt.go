package conversation

import (
	"fmt"
	"strings"

	"github.com/garageconnect/conversational-commerce/internal/funnel"
	"github.com/garageconnect/conversational-commerce/internal/model"
)

// welcomeMessage is sent on the first message of a conversation, with
// no model call.
const welcomeMessage = `👋 Bonjour et bienvenue chez *GarageConnect* !

Je suis votre assistant pneus. Je peux :
🔍 Chercher des pneus à vos dimensions
🛒 Préparer votre commande
📦 Suivre vos commandes en cours

Pour commencer, envoyez-moi les dimensions de vos pneus (ex : *205/55R16*).
Vous les trouverez sur le flanc de votre pneu actuel. 🛞`

// apologyMessage is the fixed degraded reply. Every failure in the
// pipeline terminates here; the customer never sees a raw error.
const apologyMessage = `😔 Désolé, nous rencontrons un petit souci technique.
Pouvez-vous réessayer dans un instant ? Votre panier est conservé.`

// MaintenanceMessage is returned while the maintenance gate is on.
const MaintenanceMessage = `🔧 Notre assistant est en maintenance pour quelques instants.
Réessayez un peu plus tard, ou appelez-nous directement. Merci de votre patience !`

var stepGuidance = map[funnel.Step]string{
	funnel.StepGreeting:     "Accueille le client et demande ses dimensions de pneus (format 205/55R16).",
	funnel.StepSearch:       "Le client cherche des pneus. Lance search_tyres dès que tu as largeur, hauteur et diamètre. Ne filtre pas par gamme sauf demande explicite.",
	funnel.StepResults:      "Des résultats sont affichés. Aide le client à choisir : détails (get_product_details), comparaison (compare_products), ou ajout direct au panier.",
	funnel.StepSelection:    "Un pneu intéresse le client. Demande la quantité (2 ou 4 en général) avant add_to_cart.",
	funnel.StepCart:         "Le panier est constitué. Propose de passer commande ou d'ajouter d'autres pneus.",
	funnel.StepCheckout:     "Collecte prénom, nom, email et adresse de livraison. N'invente JAMAIS ces informations ; create_order seulement quand le client les a toutes données.",
	funnel.StepPayment:      "La commande est créée. Rappelle le lien de paiement si besoin et reste disponible.",
	funnel.StepConfirmation: "Commande confirmée. Remercie le client et propose le suivi de commande.",
}

// systemPrompt builds the per-turn instruction block from the customer
// profile and conversation state.
func systemPrompt(customer *model.Customer, conv *model.Conversation, step funnel.Step, cart *model.Cart, orderCount int) string {
	var b strings.Builder

	b.WriteString(`Tu es l'assistant WhatsApp de GarageConnect, vendeur de pneus en Guadeloupe.
Tu réponds en français, avec des messages courts adaptés à WhatsApp (la limite est de 1600 caractères).
Tu utilises les outils fournis pour toute opération réelle : recherche, panier, commande.

Règles outils :
- Utilise uniquement les identifiants produits exacts renvoyés par search_tyres, ou la position du résultat (1, 2, 3...). N'invente jamais d'identifiant.
- Appelle update_progress quand une étape est réellement franchie.
- create_order : uniquement avec le vrai prénom, nom, email et adresse donnés par le client dans cette conversation. Jamais de valeurs inventées ou d'exemple.
`)

	fmt.Fprintf(&b, "\nClient : %s", customerLabel(customer))
	if orderCount > 0 {
		fmt.Fprintf(&b, " (%d commande(s) passée(s))", orderCount)
	}
	b.WriteString("\n")

	md := conv.Metadata
	if md.SearchDimensions != "" {
		fmt.Fprintf(&b, "Dernière recherche : %s (%d résultat(s))\n", md.SearchDimensions, len(md.SearchResultIDs))
	}
	if cart != nil && len(cart.Items) > 0 {
		fmt.Fprintf(&b, "Panier : %d pneu(s), total %.2f €\n", cart.UnitCount(), cart.Total())
	}

	fmt.Fprintf(&b, "\nÉtape actuelle : %s (%d/8)\n%s\n", step.Label(), step.Number(), stepGuidance[step])

	return b.String()
}

func customerLabel(c *model.Customer) string {
	if name := c.FullName(); name != "" {
		return name
	}
	return "nouveau client (" + c.PhoneNumber + ")"
}
