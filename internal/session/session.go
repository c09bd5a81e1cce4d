// Package session holds short-lived per-phone conversation state that
// does not belong in the transcript, such as the per-customer turn
// lock bookkeeping and throwaway prompt state. Two backends exist: an
// in-process map and Redis for multi-instance deployments.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no live session exists for a phone.
var ErrNotFound = errors.New("session: not found")

// Session is the ephemeral state attached to a phone number.
type Session struct {
	PhoneNumber    string            `json:"phone_number"`
	ConversationID string            `json:"conversation_id,omitempty"`
	LastActivity   time.Time         `json:"last_activity"`
	Data           map[string]string `json:"data,omitempty"`
}

// Store reads and writes sessions with a fixed TTL.
type Store interface {
	Get(ctx context.Context, phone string) (*Session, error)
	// Save writes the session and resets its TTL.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, phone string) error
}
