package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

// Memory is a map-backed Store. Safe for concurrent use.
type Memory struct {
	mu            sync.RWMutex
	customers     map[string]*model.Customer
	byPhone       map[string]string
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	products      map[string]*model.Product
	carts         map[string]*model.Cart
	orders        map[string]*model.Order

	// Now is swappable in tests.
	Now func() time.Time
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		customers:     make(map[string]*model.Customer),
		byPhone:       make(map[string]string),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		products:      make(map[string]*model.Product),
		carts:         make(map[string]*model.Cart),
		orders:        make(map[string]*model.Order),
		Now:           time.Now,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) UpsertCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byPhone[phone]; ok {
		c := *m.customers[id]
		return &c, nil
	}
	now := m.Now()
	c := &model.Customer{
		ID:          uuid.New().String(),
		PhoneNumber: phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.customers[c.ID] = c
	m.byPhone[phone] = c.ID
	out := *c
	return &out, nil
}

func (m *Memory) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *Memory) UpdateCustomer(ctx context.Context, id string, u model.CustomerUpdate) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Apply(u, m.Now())
	out := *c
	return &out, nil
}

func (m *Memory) ActiveConversation(ctx context.Context, customerID string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conv := range m.conversations {
		if conv.CustomerID == customerID && conv.Status == model.ConversationActive {
			out := *conv
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.StartedAt.IsZero() {
		conv.StartedAt = m.Now()
	}
	if conv.Status == "" {
		conv.Status = model.ConversationActive
	}
	cp := *conv
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *Memory) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *conv
	return &out, nil
}

func (m *Memory) UpdateMetadata(ctx context.Context, id string, u model.MetadataUpdate) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	conv.Metadata.Apply(u, m.Now())
	out := *conv
	return &out, nil
}

func (m *Memory) CloseConversation(ctx context.Context, id, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	now := m.Now()
	conv.Status = model.ConversationCompleted
	conv.Summary = summary
	conv.EndedAt = &now
	return nil
}

func (m *Memory) ListConversations(ctx context.Context, limit int) ([]model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) AppendMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.Now()
	}
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

func (m *Memory) RecentMessages(ctx context.Context, conversationID string, n int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) MessageCount(ctx context.Context, conversationID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages[conversationID]), nil
}

func (m *Memory) SearchProducts(ctx context.Context, q ProductQuery) ([]model.Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []model.Product
	for _, p := range m.products {
		if !matches(p, q) {
			continue
		}
		matched = append(matched, *p)
	}
	// Cheapest first within a result page.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].FinalPrice() != matched[j].FinalPrice() {
			return matched[i].FinalPrice() < matched[j].FinalPrice()
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= total {
			return nil, total, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func matches(p *model.Product, q ProductQuery) bool {
	if q.Width != 0 && p.Width != q.Width {
		return false
	}
	if q.Height != 0 && p.Height != q.Height {
		return false
	}
	if q.Diameter != 0 && p.Diameter != q.Diameter {
		return false
	}
	if q.Brand != "" && !strings.EqualFold(p.Brand, q.Brand) {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	price := p.FinalPrice()
	if q.MinPrice > 0 && price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && price > q.MaxPrice {
		return false
	}
	if q.InStock && p.StockQuantity <= 0 {
		return false
	}
	return true
}

func (m *Memory) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) GetProducts(ctx context.Context, ids []string) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *Memory) Brands(ctx context.Context, width, height, diameter int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for _, p := range m.products {
		if width != 0 && p.Width != width {
			continue
		}
		if height != 0 && p.Height != height {
			continue
		}
		if diameter != 0 && p.Diameter != diameter {
			continue
		}
		seen[p.Brand] = true
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) PutProduct(ctx context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *Memory) ActiveCart(ctx context.Context, customerID string) (*model.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.Now()
	for _, c := range m.carts {
		if c.CustomerID == customerID && !c.Expired(now) {
			out := cloneCart(c)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) PutCart(ctx context.Context, cart *model.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	cp := cloneCart(cart)
	m.carts[cart.ID] = &cp
	return nil
}

func (m *Memory) DeleteCart(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	return nil
}

func (m *Memory) DeleteExpiredCarts(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped int
	for id, c := range m.carts {
		if c.Expired(now) {
			delete(m.carts, id)
			dropped++
		}
	}
	return dropped, nil
}

func cloneCart(c *model.Cart) model.Cart {
	out := *c
	out.Items = make([]model.CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

func (m *Memory) CreateOrder(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := m.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	cp := cloneOrder(order)
	m.orders[order.ID] = &cp
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (m *Memory) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if strings.EqualFold(o.OrderNumber, number) {
			out := cloneOrder(o)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListOrders(ctx context.Context, customerID string, limit int) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) OrdersCreatedOn(ctx context.Context, day time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	y, mo, d := day.Date()
	var n int
	for _, o := range m.orders {
		oy, omo, od := o.CreatedAt.Date()
		if oy == y && omo == mo && od == d {
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, payment model.PaymentStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if status != "" {
		o.Status = status
	}
	if payment != "" {
		o.PaymentStatus = payment
	}
	o.UpdatedAt = m.Now()
	out := cloneOrder(o)
	return &out, nil
}

func cloneOrder(o *model.Order) model.Order {
	out := *o
	out.Items = make([]model.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	return out
}
