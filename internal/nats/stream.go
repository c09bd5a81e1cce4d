package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

const (
	// StreamName is the name of the commerce stream.
	StreamName = "COMMERCE"

	// SubjectPrefix is the prefix for all commerce subjects.
	SubjectPrefix = "commerce"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the commerce stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Conversation transcripts and commerce events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a transcript message.
func MessageSubject(customerID, conversationID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, customerID, conversationID, role)
}

// EventSubject returns the subject for a commerce event.
func EventSubject(customerID, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, customerID, conversationID, eventType)
}

// ConversationFilter returns the filter subject for one conversation.
func ConversationFilter(customerID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.>", SubjectPrefix, customerID, conversationID)
}

// PublishMessage publishes a transcript message to JetStream.
func (m *StreamManager) PublishMessage(ctx context.Context, customerID string, msg *model.Message) (uint64, error) {
	subject := MessageSubject(customerID, msg.ConversationID, msg.Role)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// PublishEvent publishes a commerce event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.CommerceEvent) (uint64, error) {
	subject := EventSubject(event.CustomerID, event.ConversationID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}
