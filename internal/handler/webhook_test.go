package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/cart"
	"github.com/garageconnect/conversational-commerce/internal/catalog"
	"github.com/garageconnect/conversational-commerce/internal/conversation"
	"github.com/garageconnect/conversational-commerce/internal/llm"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/order"
	"github.com/garageconnect/conversational-commerce/internal/session"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/internal/tools"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

type staticClient struct {
	content string
}

func (c *staticClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: c.content, Model: req.Model}, nil
}

func (c *staticClient) Name() string     { return "fake" }
func (c *staticClient) Models() []string { return nil }

func testEngine(t *testing.T) *conversation.Engine {
	t.Helper()
	log := logger.NewNop()
	mem := store.NewMemory()

	customers := cache.New[*model.Customer]("customer", 5*time.Minute, nil)
	cartCache := cache.New[*model.Cart]("cart", 30*time.Second, nil)
	searchCache := cache.New[*catalog.Result]("search", time.Hour, nil)

	carts := cart.NewService(mem, mem, cartCache, log)
	cat := catalog.NewService(mem, searchCache, log)
	orders := order.NewService(mem, carts, order.NewLinkProvider("https://garageconnect.gp"), log)
	dispatcher := tools.NewDispatcher(cat, carts, orders, mem, customers, mem, log)

	return conversation.NewEngine(mem, customers, carts, orders, cat, dispatcher,
		&staticClient{content: "bien reçu"}, nil, session.NewMemoryStore(time.Hour),
		conversation.Options{ModelFull: "full", ModelFast: "fast", ToolCalling: true}, log)
}

func postForm(h http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestWebhookReceive(t *testing.T) {
	h := NewWebhookHandler(testEngine(t), nil, logger.NewNop())

	rec := postForm(h.Receive, url.Values{
		"From":       {"whatsapp:+590690123456"},
		"Body":       {"bonjour"},
		"MessageSid": {"SM123"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	// First contact gets the canned welcome.
	assert.Contains(t, rec.Body.String(), "bienvenue chez *GarageConnect*")
}

func TestWebhookRejectsBadPhone(t *testing.T) {
	h := NewWebhookHandler(testEngine(t), nil, logger.NewNop())

	rec := postForm(h.Receive, url.Values{
		"From": {"not-a-phone"},
		"Body": {"bonjour"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsEmptyBody(t *testing.T) {
	h := NewWebhookHandler(testEngine(t), nil, logger.NewNop())

	rec := postForm(h.Receive, url.Values{
		"From": {"+590690123456"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMaintenanceGate(t *testing.T) {
	h := NewWebhookHandler(testEngine(t), func() bool { return true }, logger.NewNop())

	rec := postForm(h.Receive, url.Values{
		"From": {"+590690123456"},
		"Body": {"bonjour"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "maintenance")
}

func TestWebhookVerifyEchoesChallenge(t *testing.T) {
	h := NewWebhookHandler(testEngine(t), nil, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?challenge=abc123", nil)
	rec := httptest.NewRecorder()
	h.Verify(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", rec.Body.String())
}
