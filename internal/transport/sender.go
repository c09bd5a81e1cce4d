// Package transport abstracts the outbound messaging channel. The
// channel caps messages at 1600 characters; Truncate is applied before
// every send.
package transport

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// MaxLength is the hard per-message cap imposed by the channel.
const MaxLength = 1600

const truncationMarker = "...(truncated)"

// Sender delivers a text message to a customer.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Truncate enforces the channel cap, marking cut payloads visibly
// rather than rejecting them.
func Truncate(body string) string {
	if len(body) <= MaxLength {
		return body
	}
	limit := MaxLength - len(truncationMarker)
	var b strings.Builder
	for _, r := range body {
		if b.Len()+utf8.RuneLen(r) > limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + truncationMarker
}

// LogSender writes outbound messages to the log; used in development
// and tests instead of a real provider.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender builds a sender that only logs.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.log.Info("outbound message",
		zap.String("to", to),
		zap.Int("length", len(body)),
		zap.String("body", body))
	return nil
}
