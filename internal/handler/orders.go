package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/order"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/internal/transport"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// OrderHandler exposes the back-office order endpoints.
type OrderHandler struct {
	orders    *order.Service
	customers store.CustomerStore
	sender    transport.Sender
	logger    *logger.Logger
}

// NewOrderHandler creates a new order handler. sender delivers the
// status-change pushes; it may be nil to disable notifications.
func NewOrderHandler(orders *order.Service, customers store.CustomerStore, sender transport.Sender, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		customers: customers,
		sender:    sender,
		logger:    log,
	}
}

// Get handles GET /api/v1/orders/:number
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.orders.ByNumber(r.Context(), number)
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// ListByCustomer handles GET /api/v1/customers/:id/orders
func (h *OrderHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	orders, err := h.orders.ForCustomer(r.Context(), customerID, limit)
	if err != nil {
		h.logger.Error("failed to list orders")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateStatus handles PATCH /api/v1/orders/:number/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := model.OrderStatus(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	o, err := h.orders.ByNumber(r.Context(), number)
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	updated, err := h.orders.UpdateStatus(r.Context(), o.ID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	h.notify(r.Context(), updated)

	writeJSON(w, http.StatusOK, updated)
}

// MarkPaid handles POST /api/v1/orders/:number/paid, the payment
// provider callback relay.
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.orders.ByNumber(r.Context(), number)
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	updated, err := h.orders.MarkPaid(r.Context(), o.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	h.notify(r.Context(), updated)

	writeJSON(w, http.StatusOK, updated)
}

// notify pushes the status-change message to the customer.
// Best-effort: delivery failure never fails the admin request.
func (h *OrderHandler) notify(ctx context.Context, o *model.Order) {
	if h.sender == nil {
		return
	}
	text := order.NotificationMessage(o)
	if text == "" {
		return
	}
	customer, err := h.customers.GetCustomer(ctx, o.CustomerID)
	if err != nil {
		h.logger.Warn("loading customer for notification", zap.Error(err))
		return
	}
	if err := h.sender.Send(ctx, customer.PhoneNumber, transport.Truncate(text)); err != nil {
		h.logger.Warn("sending notification",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err))
	}
}
