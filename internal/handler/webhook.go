// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/conversation"
	"github.com/garageconnect/conversational-commerce/internal/middleware"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// WebhookHandler receives inbound WhatsApp messages from the gateway.
type WebhookHandler struct {
	engine      *conversation.Engine
	maintenance func() bool
	logger      *logger.Logger
}

// NewWebhookHandler creates a new webhook handler. maintenance is
// polled on every request so the gate can be flipped at runtime.
func NewWebhookHandler(engine *conversation.Engine, maintenance func() bool, log *logger.Logger) *WebhookHandler {
	if maintenance == nil {
		maintenance = func() bool { return false }
	}
	return &WebhookHandler{
		engine:      engine,
		maintenance: maintenance,
		logger:      log,
	}
}

// Receive handles POST /webhook/whatsapp. The gateway sends
// form-encoded From, Body and MessageSid fields; the response body is
// the reply text.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	from := normalizePhone(r.FormValue("From"))
	body := r.FormValue("Body")
	messageID := r.FormValue("MessageSid")

	if err := middleware.ValidatePhoneNumber(from); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageBody(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.maintenance() {
		replyText(w, conversation.MaintenanceMessage)
		return
	}

	reply := h.engine.HandleMessage(r.Context(), model.InboundMessage{
		From:      from,
		Body:      body,
		MessageID: messageID,
	})

	h.logger.Debug("webhook handled",
		zap.String("from", from),
		zap.Int("reply_len", len(reply)))

	replyText(w, reply)
}

// Verify handles GET /webhook/whatsapp, the gateway's liveness echo.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if challenge := r.URL.Query().Get("challenge"); challenge != "" {
		replyText(w, challenge)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// normalizePhone strips the gateway's channel prefix.
func normalizePhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")
}

func replyText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}
