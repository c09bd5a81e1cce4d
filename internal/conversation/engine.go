// Package conversation runs the per-message pipeline: resolve the
// customer, build context, call the model, execute its tool calls and
// compose the reply. Every failure degrades to a fixed apology; the
// customer always gets an answer.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/cart"
	"github.com/garageconnect/conversational-commerce/internal/catalog"
	"github.com/garageconnect/conversational-commerce/internal/funnel"
	"github.com/garageconnect/conversational-commerce/internal/llm"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/order"
	"github.com/garageconnect/conversational-commerce/internal/session"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/internal/tools"
	"github.com/garageconnect/conversational-commerce/internal/transport"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
	"github.com/garageconnect/conversational-commerce/pkg/metrics"
)

// Publisher pushes transcripts and events to the message bus. Publish
// failures are logged, never fatal to a turn.
type Publisher interface {
	PublishMessage(ctx context.Context, customerID string, msg *model.Message) (uint64, error)
	PublishEvent(ctx context.Context, event *model.CommerceEvent) (uint64, error)
}

// Options tune the engine.
type Options struct {
	ModelFull     string
	ModelFast     string
	HistoryWindow int
	TurnTimeout   time.Duration
	ToolCalling   bool
	MaxTokens     int
}

func (o *Options) withDefaults() {
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = 3
	}
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = 30 * time.Second
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
}

// Engine is the conversation orchestrator.
type Engine struct {
	store      store.Store
	customers  *cache.Cache[*model.Customer]
	carts      *cart.Service
	orders     *order.Service
	catalog    *catalog.Service
	dispatcher *tools.Dispatcher
	llm        llm.Client
	publisher  Publisher
	sessions   session.Store
	opts       Options
	log        *logger.Logger

	locks locks
}

// NewEngine wires the orchestrator.
func NewEngine(
	st store.Store,
	customers *cache.Cache[*model.Customer],
	carts *cart.Service,
	orders *order.Service,
	cat *catalog.Service,
	dispatcher *tools.Dispatcher,
	client llm.Client,
	publisher Publisher,
	sessions session.Store,
	opts Options,
	log *logger.Logger,
) *Engine {
	opts.withDefaults()
	return &Engine{
		store:      st,
		customers:  customers,
		carts:      carts,
		orders:     orders,
		catalog:    cat,
		dispatcher: dispatcher,
		llm:        client,
		publisher:  publisher,
		sessions:   sessions,
		opts:       opts,
		log:        log,
		locks:      locks{byKey: make(map[string]*sync.Mutex)},
	}
}

// locks serializes turns per customer so concurrent messages cannot
// race to create conversations or clobber the same cart.
type locks struct {
	mu    sync.Mutex
	byKey map[string]*sync.Mutex
}

func (l *locks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.byKey[key]
	if !ok {
		m = &sync.Mutex{}
		l.byKey[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// HandleMessage processes one inbound message end to end and returns
// the reply text. It never returns an empty reply: failures yield the
// fixed apology.
func (e *Engine) HandleMessage(ctx context.Context, in model.InboundMessage) (reply string) {
	unlock := e.locks.acquire(in.From)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, e.opts.TurnTimeout)
	defer cancel()

	pipeline := "tools"
	if !e.opts.ToolCalling {
		pipeline = "intent"
	}
	start := time.Now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("turn panic", zap.String("from", in.From), zap.Any("panic", r))
			outcome = "panic"
			reply = apologyMessage
		}
		metrics.TurnDuration.WithLabelValues(pipeline, outcome).Observe(time.Since(start).Seconds())
	}()

	out, err := e.handle(ctx, in)
	if err != nil {
		e.log.Error("turn failed",
			zap.String("from", in.From),
			zap.String("body", in.Body),
			zap.Error(err))
		outcome = "error"
		return apologyMessage
	}
	return out
}

// Session data keys for webhook de-duplication. Gateways redeliver on
// slow responses; replaying the stored reply keeps the turn idempotent.
const (
	lastMessageIDKey = "last_message_id"
	lastReplyKey     = "last_reply"
)

func (e *Engine) handle(ctx context.Context, in model.InboundMessage) (string, error) {
	if reply, ok := e.dedup(ctx, in); ok {
		return reply, nil
	}

	customer, err := e.customers.GetOrLoad(in.From, func() (*model.Customer, error) {
		return e.store.UpsertCustomerByPhone(ctx, in.From)
	})
	if err != nil {
		return "", fmt.Errorf("resolving customer: %w", err)
	}

	conv, created, err := e.resolveConversation(ctx, customer)
	if err != nil {
		return "", err
	}
	log := e.log.WithConversation(customer.ID, conv.ID)

	// The inbound message is persisted before anything can fail so the
	// exchange stays auditable even when the turn degrades.
	inbound := &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        in.Body,
	}
	if in.MessageID != "" {
		inbound.Metadata = map[string]any{"transport_message_id": in.MessageID}
	}
	if err := e.store.AppendMessage(ctx, inbound); err != nil {
		return "", fmt.Errorf("persisting inbound message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()
	e.publishMessage(ctx, customer.ID, inbound)

	if created {
		return e.reply(ctx, customer, conv, in, welcomeMessage)
	}

	step := funnel.Parse(conv.Metadata.CurrentStep)

	var text string
	if e.opts.ToolCalling {
		text, err = e.handleWithTools(ctx, log, customer, conv, step, in.Body)
	} else {
		text, err = e.handleLegacy(ctx, log, customer, conv, step, in.Body)
	}
	if err != nil {
		return "", err
	}
	return e.reply(ctx, customer, conv, in, text)
}

// dedup reports whether this exact gateway message was already
// answered and returns the stored reply when it was.
func (e *Engine) dedup(ctx context.Context, in model.InboundMessage) (string, bool) {
	if e.sessions == nil || in.MessageID == "" {
		return "", false
	}
	sess, err := e.sessions.Get(ctx, in.From)
	if err != nil {
		return "", false
	}
	if sess.Data[lastMessageIDKey] != in.MessageID || sess.Data[lastReplyKey] == "" {
		return "", false
	}
	e.log.Info("duplicate delivery, replaying reply", zap.String("message_id", in.MessageID))
	return sess.Data[lastReplyKey], true
}

// resolveConversation returns the customer's active thread, creating
// one (and reporting created=true) on first contact.
func (e *Engine) resolveConversation(ctx context.Context, customer *model.Customer) (*model.Conversation, bool, error) {
	conv, err := e.store.ActiveConversation(ctx, customer.ID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("loading conversation: %w", err)
	}
	conv = &model.Conversation{
		CustomerID:  customer.ID,
		PhoneNumber: customer.PhoneNumber,
		Metadata:    model.Metadata{CurrentStep: string(funnel.StepGreeting)},
	}
	if err := e.store.CreateConversation(ctx, conv); err != nil {
		return nil, false, fmt.Errorf("creating conversation: %w", err)
	}
	metrics.ConversationsActive.Inc()
	return conv, true, nil
}

// handleWithTools is the primary pipeline: one completion with the
// tool menu, dispatch, then either the fast-path confirmation or a
// second completion over the tool results.
func (e *Engine) handleWithTools(ctx context.Context, log *logger.Logger, customer *model.Customer, conv *model.Conversation, step funnel.Step, body string) (string, error) {
	turnCart, err := e.contextCart(ctx, customer, conv, step)
	if err != nil {
		return "", err
	}
	orderCount := e.contextOrderCount(ctx, customer, conv)

	history, err := e.history(ctx, conv.ID)
	if err != nil {
		return "", err
	}

	req := &llm.CompletionRequest{
		Model:     chooseModel(body, e.opts.ModelFull, e.opts.ModelFast),
		System:    systemPrompt(customer, conv, step, turnCart, orderCount),
		Messages:  history,
		Tools:     tools.Definitions(),
		MaxTokens: e.opts.MaxTokens,
	}

	resp, err := e.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("model completion: %w", err)
	}

	if len(resp.ToolCalls) == 0 {
		return e.compose(ctx, customer, conv, resp.Content), nil
	}

	turn := &tools.Turn{
		Customer:        customer,
		Conversation:    conv,
		SearchResultIDs: conv.Metadata.SearchResultIDs,
	}
	results := e.dispatcher.Dispatch(ctx, turn, resp.ToolCalls)

	// create_order's result is already the complete reply; returning
	// it directly skips a full model round-trip.
	for _, r := range results {
		if r.Success && r.ConfirmationMessage != "" {
			log.Info("fast-path confirmation", zap.String("tool", r.Name))
			e.publishEvent(ctx, customer.ID, conv.ID, model.EventOrderCreated, nil)
			return r.ConfirmationMessage, nil
		}
	}

	followup := append([]llm.ChatMessage{}, history...)
	followup = append(followup, llm.ChatMessage{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	for _, r := range results {
		followup = append(followup, r.ToolMessage())
	}

	second, err := e.complete(ctx, &llm.CompletionRequest{
		Model:     req.Model,
		System:    req.System,
		Messages:  followup,
		Tools:     tools.Definitions(),
		MaxTokens: e.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("model followup completion: %w", err)
	}

	return e.compose(ctx, customer, turn.Conversation, second.Content), nil
}

// complete wraps the model call with metrics.
func (e *Engine) complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := e.llm.Complete(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		metrics.RecordCompletion(req.Model, status, time.Since(start).Seconds(), 0, 0)
		return nil, err
	}
	metrics.RecordCompletion(req.Model, status, time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp, nil
}

// contextCart loads the cart only once the funnel has something to put
// in it.
func (e *Engine) contextCart(ctx context.Context, customer *model.Customer, conv *model.Conversation, step funnel.Step) (*model.Cart, error) {
	if step.Index() < funnel.StepSelection.Index() && conv.Metadata.SelectedProductID == "" {
		return nil, nil
	}
	c, err := e.carts.Get(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	return c, nil
}

// contextOrderCount fetches order history only when the customer is
// looking at it.
func (e *Engine) contextOrderCount(ctx context.Context, customer *model.Customer, conv *model.Conversation) int {
	if !conv.Metadata.ViewingOrders {
		return 0
	}
	orders, err := e.orders.ForCustomer(ctx, customer.ID, 10)
	if err != nil {
		e.log.Warn("loading order history", zap.Error(err))
		return 0
	}
	return len(orders)
}

// history maps the recent transcript window to model messages.
func (e *Engine) history(ctx context.Context, conversationID string) ([]llm.ChatMessage, error) {
	msgs, err := e.store.RecentMessages(ctx, conversationID, e.opts.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	out := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

// compose appends the progress line, suggestions and cart footer to
// the model's text.
func (e *Engine) compose(ctx context.Context, customer *model.Customer, conv *model.Conversation, text string) string {
	step := funnel.Parse(conv.Metadata.CurrentStep)

	sctx := funnel.SuggestionContext{HasSearched: conv.Metadata.SearchDimensions != ""}
	if conv.Metadata.SelectedProductID != "" || step.Index() >= funnel.StepCart.Index() {
		if c, err := e.carts.Get(ctx, customer.ID); err == nil {
			sctx.CartTotal = c.Total()
			sctx.CartUnitCount = c.UnitCount()
		}
	}

	parts := []string{strings.TrimSpace(text)}
	if line := funnel.CartLine(sctx); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, funnel.Suggest(step, sctx)...)
	if actions := funnel.QuickActions(step); len(actions) > 0 {
		parts = append(parts, strings.Join(actions, " · "))
	}
	parts = append(parts, funnel.Compact(step))

	return strings.Join(parts, "\n\n")
}

// reply persists and publishes the outbound message, refreshes the
// session and returns the final text.
func (e *Engine) reply(ctx context.Context, customer *model.Customer, conv *model.Conversation, in model.InboundMessage, text string) (string, error) {
	text = transport.Truncate(text)
	outbound := &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        text,
	}
	if err := e.store.AppendMessage(ctx, outbound); err != nil {
		return "", fmt.Errorf("persisting reply: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	e.publishMessage(ctx, customer.ID, outbound)

	if e.sessions != nil {
		sess := &session.Session{
			PhoneNumber:    customer.PhoneNumber,
			ConversationID: conv.ID,
			LastActivity:   time.Now(),
		}
		if existing, err := e.sessions.Get(ctx, customer.PhoneNumber); err == nil {
			sess.Data = existing.Data
		}
		if in.MessageID != "" {
			if sess.Data == nil {
				sess.Data = make(map[string]string)
			}
			sess.Data[lastMessageIDKey] = in.MessageID
			sess.Data[lastReplyKey] = text
		}
		if err := e.sessions.Save(ctx, sess); err != nil {
			e.log.Warn("saving session", zap.Error(err))
		}
	}

	return text, nil
}

func (e *Engine) publishMessage(ctx context.Context, customerID string, msg *model.Message) {
	if e.publisher == nil {
		return
	}
	if _, err := e.publisher.PublishMessage(ctx, customerID, msg); err != nil {
		e.log.Warn("publishing message", zap.Error(err))
	}
}

func (e *Engine) publishEvent(ctx context.Context, customerID, conversationID string, typ model.EventType, payload map[string]any) {
	if e.publisher == nil {
		return
	}
	event := &model.CommerceEvent{
		Type:           typ,
		CustomerID:     customerID,
		ConversationID: conversationID,
		Payload:        payload,
		Timestamp:      time.Now(),
	}
	if _, err := e.publisher.PublishEvent(ctx, event); err != nil {
		e.log.Warn("publishing event", zap.Error(err))
	}
}

// CloseConversation ends the thread and publishes the closing event.
func (e *Engine) CloseConversation(ctx context.Context, conversationID, summary string) error {
	conv, err := e.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := e.store.CloseConversation(ctx, conversationID, summary); err != nil {
		return err
	}
	metrics.ConversationsActive.Dec()
	e.publishEvent(ctx, conv.CustomerID, conv.ID, model.EventConversationClosed, map[string]any{"summary": summary})
	return nil
}
