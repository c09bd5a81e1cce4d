package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/cart"
	"github.com/garageconnect/conversational-commerce/internal/catalog"
	"github.com/garageconnect/conversational-commerce/internal/funnel"
	"github.com/garageconnect/conversational-commerce/internal/llm"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/order"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
	"github.com/garageconnect/conversational-commerce/pkg/metrics"
)

// Turn is the per-message state the dispatcher reads and mutates.
// SearchResultIDs tracks the most recent results so positional product
// references can be repaired within the same batch.
type Turn struct {
	Customer        *model.Customer
	Conversation    *model.Conversation
	SearchResultIDs []string
}

// Result is the outcome of one tool call. Failures are isolated: a
// failing call never aborts its siblings.
type Result struct {
	CallID  string
	Name    string
	Success bool
	Content string
	Error   string

	// ConfirmationMessage is set by a successful create_order; the
	// caller returns it directly instead of asking the model to
	// compose a reply.
	ConfirmationMessage string
}

// ToolMessage renders the result as the tool-role message fed back to
// the model.
func (r *Result) ToolMessage() llm.ChatMessage {
	content := r.Content
	if !r.Success {
		payload, _ := json.Marshal(map[string]string{"error": r.Error})
		content = string(payload)
	}
	return llm.ChatMessage{Role: llm.RoleTool, Content: content, ToolCallID: r.CallID}
}

// Dispatcher executes model tool calls against the commerce services.
// customerCache is the phone-keyed customer cache shared with the
// engine; tools that rewrite the customer record invalidate it so the
// next turn reloads from the store. Nil disables invalidation.
type Dispatcher struct {
	catalog       *catalog.Service
	carts         *cart.Service
	orders        *order.Service
	customers     store.CustomerStore
	customerCache *cache.Cache[*model.Customer]
	convs         store.ConversationStore
	log           *logger.Logger
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(cat *catalog.Service, carts *cart.Service, orders *order.Service, customers store.CustomerStore, customerCache *cache.Cache[*model.Customer], convs store.ConversationStore, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		catalog:       cat,
		carts:         carts,
		orders:        orders,
		customers:     customers,
		customerCache: customerCache,
		convs:         convs,
		log:           log,
	}
}

// Dispatch runs the batch sequentially, one Result per call in order.
func (d *Dispatcher) Dispatch(ctx context.Context, turn *Turn, calls []llm.ToolCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.dispatchOne(ctx, turn, call))
	}
	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, turn *Turn, call llm.ToolCall) (res Result) {
	res = Result{CallID: call.ID, Name: call.Name}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("tool %s failed: %v", call.Name, r)
			d.log.Error("tool panic", zap.String("tool", call.Name), zap.Any("panic", r))
		}
		metrics.RecordToolCall(call.Name, res.Success)
		if !res.Success {
			d.log.Warn("tool call failed",
				zap.String("tool", call.Name),
				zap.String("customer_id", turn.Customer.ID),
				zap.String("error", res.Error))
		}
	}()

	content, confirmation, err := d.execute(ctx, turn, call)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Content = content
	res.ConfirmationMessage = confirmation
	return res
}

func (d *Dispatcher) execute(ctx context.Context, turn *Turn, call llm.ToolCall) (content, confirmation string, err error) {
	switch call.Name {
	case ToolSearchTyres:
		content, err = d.searchTyres(ctx, turn, call.Arguments)
	case ToolAddToCart:
		content, err = d.addToCart(ctx, turn, call.Arguments)
	case ToolViewCart:
		content, err = d.viewCart(ctx, turn)
	case ToolRemoveFromCart:
		content, err = d.removeFromCart(ctx, turn, call.Arguments)
	case ToolUpdateCartQuantity:
		content, err = d.updateCartQuantity(ctx, turn, call.Arguments)
	case ToolClearCart:
		content, err = d.clearCart(ctx, turn)
	case ToolReplaceProductInCart:
		content, err = d.replaceProduct(ctx, turn, call.Arguments)
	case ToolUpdateProgress:
		content, err = d.updateProgress(ctx, turn, call.Arguments)
	case ToolGetProductDetails:
		content, err = d.productDetails(ctx, turn, call.Arguments)
	case ToolGetAvailableBrands:
		content, err = d.availableBrands(ctx, call.Arguments)
	case ToolGetOrderStatus:
		content, err = d.orderStatus(ctx, call.Arguments)
	case ToolListOrders:
		content, err = d.listOrders(ctx, turn, call.Arguments)
	case ToolCompareProducts:
		content, err = d.compareProducts(ctx, call.Arguments)
	case ToolCreateOrder:
		content, confirmation, err = d.createOrder(ctx, turn, call.Arguments)
	default:
		err = fmt.Errorf("unknown tool %q", call.Name)
	}
	return content, confirmation, err
}

// positionalRe matches a bare 1- or 2-digit position reference.
var positionalRe = regexp.MustCompile(`^\d{1,2}$`)

// repairProductID resolves what the model passed as a product ID. A
// small integer is a 1-based position in the last search results; an
// unknown identifier falls back to the first result. With no results
// to lean on, the call fails instead of guessing.
func (d *Dispatcher) repairProductID(ctx context.Context, turn *Turn, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if positionalRe.MatchString(raw) {
		if len(turn.SearchResultIDs) == 0 {
			return "", fmt.Errorf("product position %q given but no search results in context; run search_tyres first", raw)
		}
		pos, _ := strconv.Atoi(raw)
		if pos < 1 || pos > len(turn.SearchResultIDs) {
			return "", fmt.Errorf("product position %d out of range; last search returned %d results", pos, len(turn.SearchResultIDs))
		}
		return turn.SearchResultIDs[pos-1], nil
	}
	if _, err := d.catalog.Product(ctx, raw); err == nil {
		return raw, nil
	}
	if len(turn.SearchResultIDs) > 0 {
		d.log.Debug("repairing fabricated product id",
			zap.String("raw", raw),
			zap.String("substitute", turn.SearchResultIDs[0]))
		return turn.SearchResultIDs[0], nil
	}
	return "", fmt.Errorf("unknown product %q and no search results in context; run search_tyres first", raw)
}

type searchArgs struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Diameter int     `json:"diameter"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Page     int     `json:"page"`
}

func (d *Dispatcher) searchTyres(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args searchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid search arguments: %w", err)
	}
	if args.Width == 0 || args.Height == 0 || args.Diameter == 0 {
		return "", fmt.Errorf("width, height and diameter are all required")
	}

	result, err := d.catalog.Search(ctx, catalog.Query{
		Width:    args.Width,
		Height:   args.Height,
		Diameter: args.Diameter,
		Brand:    args.Brand,
		Category: model.ProductCategory(args.Category),
		MinPrice: args.MinPrice,
		MaxPrice: args.MaxPrice,
		Page:     args.Page,
	})
	if err != nil {
		return "", err
	}

	dims := fmt.Sprintf("%d/%dR%d", args.Width, args.Height, args.Diameter)
	turn.SearchResultIDs = result.ProductIDs()

	update := model.MetadataUpdate{
		SearchDimensions: model.StringPtr(dims),
		SearchResultIDs:  model.StringsPtr(turn.SearchResultIDs),
		LastAction:       model.StringPtr("search"),
	}
	if result.Total > 0 {
		update.CurrentStep = model.StringPtr(string(funnel.StepResults))
	}
	conv, err := d.convs.UpdateMetadata(ctx, turn.Conversation.ID, update)
	if err != nil {
		return "", fmt.Errorf("recording search: %w", err)
	}
	turn.Conversation = conv

	return catalog.FormatResults(result, dims), nil
}

type cartArgs struct {
	ProductID    string `json:"product_id"`
	OldProductID string `json:"old_product_id"`
	NewProductID string `json:"new_product_id"`
	Quantity     int    `json:"quantity"`
}

func (d *Dispatcher) addToCart(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args cartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid cart arguments: %w", err)
	}
	productID, err := d.repairProductID(ctx, turn, args.ProductID)
	if err != nil {
		return "", err
	}
	c, err := d.carts.Add(ctx, turn.Customer.ID, productID, args.Quantity)
	if err != nil {
		return "", err
	}
	conv, err := d.convs.UpdateMetadata(ctx, turn.Conversation.ID, model.MetadataUpdate{
		SelectedProductID: model.StringPtr(productID),
		CurrentStep:       model.StringPtr(string(funnel.StepCart)),
		LastAction:        model.StringPtr("add_to_cart"),
	})
	if err != nil {
		return "", fmt.Errorf("recording selection: %w", err)
	}
	turn.Conversation = conv
	return cart.Format(c), nil
}

func (d *Dispatcher) viewCart(ctx context.Context, turn *Turn) (string, error) {
	c, err := d.carts.Get(ctx, turn.Customer.ID)
	if err != nil {
		return "", err
	}
	return cart.Format(c), nil
}

func (d *Dispatcher) removeFromCart(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args cartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid cart arguments: %w", err)
	}
	c, err := d.carts.Remove(ctx, turn.Customer.ID, strings.TrimSpace(args.ProductID))
	if err != nil {
		return "", err
	}
	return cart.Format(c), nil
}

func (d *Dispatcher) updateCartQuantity(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args cartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid cart arguments: %w", err)
	}
	c, err := d.carts.UpdateQuantity(ctx, turn.Customer.ID, strings.TrimSpace(args.ProductID), args.Quantity)
	if err != nil {
		return "", err
	}
	return cart.Format(c), nil
}

func (d *Dispatcher) clearCart(ctx context.Context, turn *Turn) (string, error) {
	c, err := d.carts.Clear(ctx, turn.Customer.ID)
	if err != nil {
		return "", err
	}
	return cart.Format(c), nil
}

func (d *Dispatcher) replaceProduct(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args cartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid cart arguments: %w", err)
	}
	newID, err := d.repairProductID(ctx, turn, args.NewProductID)
	if err != nil {
		return "", err
	}
	c, err := d.carts.Replace(ctx, turn.Customer.ID, strings.TrimSpace(args.OldProductID), newID, args.Quantity)
	if err != nil {
		return "", err
	}
	return cart.Format(c), nil
}

type progressArgs struct {
	Step string `json:"step"`
}

func (d *Dispatcher) updateProgress(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args progressArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid progress arguments: %w", err)
	}
	target := funnel.Step(args.Step)
	if !funnel.Valid(target) {
		return "", fmt.Errorf("unknown step %q", args.Step)
	}

	current := funnel.Parse(turn.Conversation.Metadata.CurrentStep)
	fctx, err := d.funnelContext(ctx, turn)
	if err != nil {
		return "", err
	}
	if !funnel.CanAdvance(current, target, fctx) {
		// Guard says stay. Not an error: the model just keeps the
		// customer on the current step.
		payload, _ := json.Marshal(map[string]any{"advanced": false, "step": string(current)})
		return string(payload), nil
	}
	conv, err := d.convs.UpdateMetadata(ctx, turn.Conversation.ID, model.MetadataUpdate{
		CurrentStep: model.StringPtr(string(target)),
		LastAction:  model.StringPtr("update_progress"),
	})
	if err != nil {
		return "", fmt.Errorf("recording step: %w", err)
	}
	turn.Conversation = conv
	payload, _ := json.Marshal(map[string]any{
		"advanced": true,
		"step":     string(target),
		"panel":    funnel.Panel(target),
	})
	return string(payload), nil
}

// funnelContext builds the guard's view of the conversation, fetching
// the cart only when something is in progress to count.
func (d *Dispatcher) funnelContext(ctx context.Context, turn *Turn) (funnel.Context, error) {
	md := turn.Conversation.Metadata
	fctx := funnel.Context{
		HasSearch:            md.SearchDimensions != "",
		HasSearchResults:     len(md.SearchResultIDs) > 0 || len(turn.SearchResultIDs) > 0,
		HasSelectedProduct:   md.SelectedProductID != "",
		DeliveryInfoComplete: md.DeliveryInfoComplete,
		HasPaymentSession:    md.PaymentSessionID != "",
	}
	if md.SelectedProductID != "" {
		c, err := d.carts.Get(ctx, turn.Customer.ID)
		if err != nil {
			return fctx, err
		}
		fctx.CartItemCount = len(c.Items)
	}
	return fctx, nil
}

func (d *Dispatcher) productDetails(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args cartArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	productID, err := d.repairProductID(ctx, turn, args.ProductID)
	if err != nil {
		return "", err
	}
	p, err := d.catalog.Product(ctx, productID)
	if err != nil {
		return "", fmt.Errorf("product %s: %w", productID, err)
	}
	conv, err := d.convs.UpdateMetadata(ctx, turn.Conversation.ID, model.MetadataUpdate{
		HasViewedDetails: model.BoolPtr(true),
		LastAction:       model.StringPtr("product_details"),
	})
	if err != nil {
		return "", fmt.Errorf("recording details view: %w", err)
	}
	turn.Conversation = conv
	return catalog.FormatDetails(p), nil
}

type brandsArgs struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Diameter int `json:"diameter"`
}

func (d *Dispatcher) availableBrands(ctx context.Context, raw json.RawMessage) (string, error) {
	var args brandsArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	brands, err := d.catalog.Brands(ctx, args.Width, args.Height, args.Diameter)
	if err != nil {
		return "", err
	}
	dims := ""
	if args.Width != 0 && args.Height != 0 && args.Diameter != 0 {
		dims = fmt.Sprintf("%d/%dR%d", args.Width, args.Height, args.Diameter)
	}
	return catalog.FormatBrands(brands, dims), nil
}

type orderStatusArgs struct {
	OrderNumber string `json:"order_number"`
}

func (d *Dispatcher) orderStatus(ctx context.Context, raw json.RawMessage) (string, error) {
	var args orderStatusArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	o, err := d.orders.ByNumber(ctx, args.OrderNumber)
	if err != nil {
		return "", fmt.Errorf("order %s: %w", args.OrderNumber, err)
	}
	return order.FormatStatus(o), nil
}

type listOrdersArgs struct {
	Limit int `json:"limit"`
}

func (d *Dispatcher) listOrders(ctx context.Context, turn *Turn, raw json.RawMessage) (string, error) {
	var args listOrdersArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	orders, err := d.orders.ForCustomer(ctx, turn.Customer.ID, args.Limit)
	if err != nil {
		return "", err
	}
	conv, err := d.convs.UpdateMetadata(ctx, turn.Conversation.ID, model.MetadataUpdate{
		ViewingOrders: model.BoolPtr(true),
		LastAction:    model.StringPtr("list_orders"),
	})
	if err != nil {
		return "", fmt.Errorf("recording orders view: %w", err)
	}
	turn.Conversation = conv
	return order.FormatList(orders), nil
}

type compareArgs struct {
	ProductIDs []string `json:"product_ids"`
}

func (d *Dispatcher) compareProducts(ctx context.Context, raw json.RawMessage) (string, error) {
	var args compareArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	products, err := d.catalog.Products(ctx, args.ProductIDs)
	if err != nil {
		return "", err
	}
	if len(products) < 2 {
		return "", fmt.Errorf("need at least 2 known products to compare, got %d", len(products))
	}
	return catalog.FormatComparison(products), nil
}

type createOrderArgs struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

func (d *Dispatcher) createOrder(ctx context.Context, turn *Turn, raw json.RawMessage) (string, string, error) {
	var args createOrderArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", "", fmt.Errorf("invalid order arguments: %w", err)
	}

	// Hard invariant: never create an order from invented identity
	// data. Missing or placeholder values mean the model must go back
	// and ask the customer.
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"first_name", args.FirstName},
		{"last_name", args.LastName},
		{"email", args.Email},
		{"address", args.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", "", fmt.Errorf("missing required customer fields: %s; ask the customer for them", strings.Join(missing, ", "))
	}
	if order.IsPlaceholderName(args.FirstName, args.LastName) {
		return "", "", fmt.Errorf("name %q %q looks like placeholder data; ask the customer for their real name", args.FirstName, args.LastName)
	}
	if order.IsPlaceholderEmail(args.Email) {
		return "", "", fmt.Errorf("email %q looks like placeholder data; ask the customer for their real email", args.Email)
	}

	customer, err := d.customers.UpdateCustomer(ctx, turn.Customer.ID, model.CustomerUpdate{
		FirstName:  strings.TrimSpace(args.FirstName),
		LastName:   strings.TrimSpace(args.LastName),
		Email:      strings.TrimSpace(args.Email),
		Address:    strings.TrimSpace(args.Address),
		City:       strings.TrimSpace(args.City),
		PostalCode: strings.TrimSpace(args.PostalCode),
	})
	if err != nil {
		return "", "", fmt.Errorf("updating customer: %w", err)
	}
	turn.Customer = customer
	if d.customerCache != nil {
		d.customerCache.Invalidate(customer.PhoneNumber)
	}

	res, err := d.orders.CreateFromCart(ctx, customer, turn.Conversation.ID)
	if err != nil {
		return "", "", err
	}

	conv, err := d.convs.UpdateMetadata(ctx, turn.Conversation.ID, model.MetadataUpdate{
		CurrentStep:          model.StringPtr(string(funnel.StepConfirmation)),
		DeliveryInfoComplete: model.BoolPtr(true),
		PaymentSessionID:     model.StringPtr(res.Order.PaymentSessionID),
		LastAction:           model.StringPtr("create_order"),
	})
	if err != nil {
		return "", "", fmt.Errorf("recording order: %w", err)
	}
	turn.Conversation = conv

	return res.ConfirmationMessage, res.ConfirmationMessage, nil
}
