package model

import (
	"time"
)

// EventType classifies commerce events published alongside transcripts.
type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventPaymentSession     EventType = "payment_session"
	EventCartUpdated        EventType = "cart_updated"
	EventStepAdvanced       EventType = "step_advanced"
	EventConversationClosed EventType = "conversation_closed"
	EventError              EventType = "error"
)

// CommerceEvent is the envelope published to the message bus for
// anything that is not a transcript message.
type CommerceEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	CustomerID     string         `json:"customer_id"`
	ConversationID string         `json:"conversation_id"`
	Payload        map[string]any `json:"payload,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
