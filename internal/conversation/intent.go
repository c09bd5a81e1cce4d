package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/cart"
	"github.com/garageconnect/conversational-commerce/internal/catalog"
	"github.com/garageconnect/conversational-commerce/internal/funnel"
	"github.com/garageconnect/conversational-commerce/internal/llm"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/order"
	"github.com/garageconnect/conversational-commerce/internal/session"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// Intent labels for the classification fallback. This pipeline runs
// when tool calling is disabled; it classifies each message once with
// the fast model and answers from templates.
const (
	intentSearchTyres   = "search_tyres"
	intentSelectProduct = "select_product"
	intentAddToCart     = "add_to_cart"
	intentViewCart      = "view_cart"
	intentCheckout      = "checkout"
	intentViewOrders    = "view_orders"
	intentShowRules     = "show_rules"
	intentShowTutorial  = "show_tutorial"
	intentLeaveReview   = "leave_review"
	intentGeneralChat   = "general_chat"
)

var intentLabels = []string{
	intentSearchTyres,
	intentSelectProduct,
	intentAddToCart,
	intentViewCart,
	intentCheckout,
	intentViewOrders,
	intentShowRules,
	intentShowTutorial,
	intentLeaveReview,
	intentGeneralChat,
}

// awaitingQuantityKey marks, in the session data bag, that the next
// pure-number message is a quantity for the stored product ID.
const awaitingQuantityKey = "awaiting_quantity_product_id"

func (e *Engine) handleLegacy(ctx context.Context, log *logger.Logger, customer *model.Customer, conv *model.Conversation, step funnel.Step, body string) (string, error) {
	trimmed := strings.TrimSpace(body)

	// A bare number right after a product selection is a quantity, no
	// classification needed.
	if productID := e.awaitingQuantity(ctx, customer.PhoneNumber); productID != "" && pureNumberRe.MatchString(trimmed) {
		qty, _ := strconv.Atoi(trimmed)
		e.clearAwaitingQuantity(ctx, customer.PhoneNumber)
		return e.legacyAdd(ctx, customer, conv, productID, qty)
	}

	intent := e.classify(ctx, trimmed)
	log.Debug("intent classified", zap.String("intent", intent))

	switch intent {
	case intentSearchTyres:
		return e.legacySearch(ctx, customer, conv, trimmed)
	case intentSelectProduct:
		return e.legacySelect(ctx, customer, conv, trimmed)
	case intentAddToCart:
		return e.legacyAddFromText(ctx, customer, conv, trimmed)
	case intentViewCart:
		return e.legacyViewCart(ctx, customer, conv)
	case intentCheckout:
		return e.legacyCheckout(ctx, customer, conv, trimmed)
	case intentViewOrders:
		return e.legacyViewOrders(ctx, customer, conv)
	case intentShowRules:
		return rulesMessage, nil
	case intentShowTutorial:
		return tutorialMessage, nil
	case intentLeaveReview:
		return reviewMessage, nil
	default:
		return e.legacyChat(ctx, customer, conv, step, trimmed)
	}
}

// classify asks the fast model for a single label. On any failure it
// falls back to cheap local heuristics so the turn still resolves.
func (e *Engine) classify(ctx context.Context, body string) string {
	resp, err := e.llm.Complete(ctx, &llm.CompletionRequest{
		Model: e.opts.ModelFast,
		System: "Tu es un classifieur d'intentions pour un vendeur de pneus sur WhatsApp.\n" +
			"Réponds avec exactement un de ces labels, rien d'autre :\n" +
			strings.Join(intentLabels, ", "),
		Messages:  []llm.ChatMessage{{Role: llm.RoleUser, Content: body}},
		MaxTokens: 16,
	})
	if err == nil {
		answer := strings.ToLower(resp.Content)
		for _, label := range intentLabels {
			if strings.Contains(answer, label) {
				return label
			}
		}
	} else {
		e.log.Warn("intent classification failed", zap.Error(err))
	}

	if catalog.LooksLikeDimensions(body) {
		return intentSearchTyres
	}
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "panier"):
		return intentViewCart
	case strings.Contains(lower, "commande"):
		return intentViewOrders
	default:
		return intentGeneralChat
	}
}

func (e *Engine) legacySearch(ctx context.Context, customer *model.Customer, conv *model.Conversation, body string) (string, error) {
	width, height, diameter, ok := catalog.ParseDimensions(body)
	if !ok {
		return "🔍 Indiquez-moi vos dimensions de pneus, par exemple *205/55R16*.\nVous les trouverez sur le flanc du pneu.", nil
	}
	result, err := e.catalog.Search(ctx, catalog.Query{Width: width, Height: height, Diameter: diameter})
	if err != nil {
		return "", fmt.Errorf("legacy search: %w", err)
	}
	dimensions := fmt.Sprintf("%d/%dR%d", width, height, diameter)

	update := model.MetadataUpdate{
		SearchDimensions: model.StringPtr(dimensions),
		SearchResultIDs:  model.StringsPtr(result.ProductIDs()),
		LastAction:       model.StringPtr("search"),
	}
	if result.Total > 0 {
		update.CurrentStep = model.StringPtr(string(funnel.StepResults))
	}
	updated, err := e.store.UpdateMetadata(ctx, conv.ID, update)
	if err != nil {
		return "", fmt.Errorf("recording search: %w", err)
	}
	*conv = *updated

	return catalog.FormatResults(result, dimensions), nil
}

func (e *Engine) legacySelect(ctx context.Context, customer *model.Customer, conv *model.Conversation, body string) (string, error) {
	ids := conv.Metadata.SearchResultIDs
	if len(ids) == 0 {
		return "🔍 Commencez par une recherche : envoyez vos dimensions (ex : 205/55R16).", nil
	}
	n := firstNumber(body)
	if n < 1 || n > len(ids) {
		return fmt.Sprintf("🎯 Indiquez le numéro du pneu qui vous intéresse (1 à %d).", len(ids)), nil
	}
	product, err := e.catalog.Product(ctx, ids[n-1])
	if err != nil {
		return "", fmt.Errorf("loading selection: %w", err)
	}

	updated, err := e.store.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
		SelectedProductID: model.StringPtr(product.ID),
		CurrentStep:       model.StringPtr(string(funnel.StepSelection)),
		HasViewedDetails:  model.BoolPtr(true),
		LastAction:        model.StringPtr("select"),
	})
	if err != nil {
		return "", fmt.Errorf("recording selection: %w", err)
	}
	*conv = *updated

	e.setAwaitingQuantity(ctx, customer.PhoneNumber, product.ID)

	return catalog.FormatDetails(product) + "\n\n🛒 Combien en voulez-vous ? (2 ou 4 en général)", nil
}

func (e *Engine) legacyAddFromText(ctx context.Context, customer *model.Customer, conv *model.Conversation, body string) (string, error) {
	productID := conv.Metadata.SelectedProductID
	if productID == "" {
		return "🎯 Choisissez d'abord un pneu dans les résultats (envoyez son numéro).", nil
	}
	qty := firstNumber(body)
	if qty < 1 {
		e.setAwaitingQuantity(ctx, customer.PhoneNumber, productID)
		return "🛒 Combien de pneus voulez-vous ? (2 ou 4 en général)", nil
	}
	return e.legacyAdd(ctx, customer, conv, productID, qty)
}

func (e *Engine) legacyAdd(ctx context.Context, customer *model.Customer, conv *model.Conversation, productID string, qty int) (string, error) {
	c, err := e.carts.Add(ctx, customer.ID, productID, qty)
	if errors.Is(err, cart.ErrInsufficientStock) {
		return "😕 Stock insuffisant pour cette quantité. " + err.Error(), nil
	}
	if err != nil {
		return "", fmt.Errorf("adding to cart: %w", err)
	}

	updated, err := e.store.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
		CurrentStep: model.StringPtr(string(funnel.StepCart)),
		LastAction:  model.StringPtr("add_to_cart"),
	})
	if err != nil {
		return "", fmt.Errorf("recording cart step: %w", err)
	}
	*conv = *updated

	return "✅ Ajouté au panier !\n\n" + cart.Format(c) + "\n\nEnvoyez *commander* pour passer commande.", nil
}

func (e *Engine) legacyViewCart(ctx context.Context, customer *model.Customer, conv *model.Conversation) (string, error) {
	c, err := e.carts.Get(ctx, customer.ID)
	if err != nil {
		return "", fmt.Errorf("loading cart: %w", err)
	}
	if len(c.Items) > 0 {
		updated, err := e.store.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
			CurrentStep: model.StringPtr(string(funnel.StepCart)),
		})
		if err != nil {
			return "", fmt.Errorf("recording cart step: %w", err)
		}
		*conv = *updated
	}
	return cart.Format(c), nil
}

func (e *Engine) legacyCheckout(ctx context.Context, customer *model.Customer, conv *model.Conversation, body string) (string, error) {
	c, err := e.carts.Get(ctx, customer.ID)
	if err != nil {
		return "", fmt.Errorf("loading cart: %w", err)
	}
	if len(c.Items) == 0 {
		return "🛒 Votre panier est vide. Envoyez vos dimensions (ex : 205/55R16) pour commencer.", nil
	}

	if update, ok := ParseCustomerInfo(body); ok {
		refreshed, err := e.store.UpdateCustomer(ctx, customer.ID, update)
		if err != nil {
			return "", fmt.Errorf("updating customer: %w", err)
		}
		*customer = *refreshed
		e.customers.Invalidate(customer.PhoneNumber)
	}

	if prompt := MissingFieldsPrompt(customer); prompt != "" {
		if _, err := e.store.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
			CurrentStep: model.StringPtr(string(funnel.StepCheckout)),
		}); err != nil {
			return "", fmt.Errorf("recording checkout step: %w", err)
		}
		return prompt, nil
	}

	result, err := e.orders.CreateFromCart(ctx, customer, conv.ID)
	if errors.Is(err, order.ErrPlaceholderIdentity) {
		return "📝 Il me faut votre vrai prénom, nom et email pour valider la commande.", nil
	}
	if err != nil {
		return "", fmt.Errorf("creating order: %w", err)
	}

	updated, err := e.store.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
		CurrentStep:          model.StringPtr(string(funnel.StepConfirmation)),
		DeliveryInfoComplete: model.BoolPtr(true),
		LastAction:           model.StringPtr("create_order"),
	})
	if err != nil {
		return "", fmt.Errorf("recording confirmation: %w", err)
	}
	*conv = *updated

	e.publishEvent(ctx, customer.ID, conv.ID, model.EventOrderCreated, map[string]any{
		"order_number": result.Order.OrderNumber,
	})
	return result.ConfirmationMessage, nil
}

func (e *Engine) legacyViewOrders(ctx context.Context, customer *model.Customer, conv *model.Conversation) (string, error) {
	orders, err := e.orders.ForCustomer(ctx, customer.ID, 5)
	if err != nil {
		return "", fmt.Errorf("loading orders: %w", err)
	}
	if _, err := e.store.UpdateMetadata(ctx, conv.ID, model.MetadataUpdate{
		ViewingOrders: model.BoolPtr(true),
	}); err != nil {
		return "", fmt.Errorf("recording order view: %w", err)
	}
	return order.FormatList(orders), nil
}

// legacyChat answers free conversation with a single fast completion,
// no tools.
func (e *Engine) legacyChat(ctx context.Context, customer *model.Customer, conv *model.Conversation, step funnel.Step, body string) (string, error) {
	history, err := e.history(ctx, conv.ID)
	if err != nil {
		return "", err
	}
	resp, err := e.complete(ctx, &llm.CompletionRequest{
		Model:     e.opts.ModelFast,
		System:    systemPrompt(customer, conv, step, nil, 0),
		Messages:  history,
		MaxTokens: e.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("legacy chat completion: %w", err)
	}
	return e.compose(ctx, customer, conv, resp.Content), nil
}

func (e *Engine) awaitingQuantity(ctx context.Context, phone string) string {
	if e.sessions == nil {
		return ""
	}
	sess, err := e.sessions.Get(ctx, phone)
	if err != nil {
		return ""
	}
	return sess.Data[awaitingQuantityKey]
}

func (e *Engine) setAwaitingQuantity(ctx context.Context, phone, productID string) {
	e.patchSession(ctx, phone, func(sess *session.Session) {
		if sess.Data == nil {
			sess.Data = make(map[string]string)
		}
		sess.Data[awaitingQuantityKey] = productID
	})
}

func (e *Engine) clearAwaitingQuantity(ctx context.Context, phone string) {
	e.patchSession(ctx, phone, func(sess *session.Session) {
		delete(sess.Data, awaitingQuantityKey)
	})
}

func (e *Engine) patchSession(ctx context.Context, phone string, patch func(*session.Session)) {
	if e.sessions == nil {
		return
	}
	sess, err := e.sessions.Get(ctx, phone)
	if err != nil {
		sess = &session.Session{PhoneNumber: phone}
	}
	patch(sess)
	if err := e.sessions.Save(ctx, sess); err != nil {
		e.log.Warn("saving session", zap.Error(err))
	}
}

func firstNumber(s string) int {
	for _, f := range strings.Fields(s) {
		if n, err := strconv.Atoi(strings.Trim(f, ".,!")); err == nil {
			return n
		}
	}
	return 0
}

const rulesMessage = `📜 *Nos conditions*
• Prix TTC, pose non incluse
• Paiement en ligne sécurisé, 4x sans frais dès 400 €
• Retrait en magasin ou livraison en Guadeloupe
• Garantie fabricant sur tous nos pneus`

const tutorialMessage = `📖 *Comment commander*
1️⃣ Envoyez vos dimensions (ex : 205/55R16)
2️⃣ Choisissez un pneu dans la liste (son numéro)
3️⃣ Indiquez la quantité
4️⃣ Envoyez *commander* et vos coordonnées
5️⃣ Payez en ligne via le lien reçu 💳`

const reviewMessage = `⭐ Merci de vouloir partager votre avis !
Laissez-nous une note sur notre page Google : cela nous aide énormément. 🙏`
