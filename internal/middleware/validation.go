package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"
)

// phoneRe accepts E.164 numbers with an optional whatsapp: prefix, the
// two shapes WhatsApp gateways send.
var phoneRe = regexp.MustCompile(`^(whatsapp:)?\+?[1-9]\d{6,14}$`)

// ValidatePhoneNumber validates an inbound sender number.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return errors.New("phone number cannot be empty")
	}
	if !phoneRe.MatchString(phone) {
		return errors.New("invalid phone number format")
	}
	return nil
}

// ValidateMessageBody validates inbound message content.
func ValidateMessageBody(body string) error {
	if len(body) == 0 {
		return errors.New("message body cannot be empty")
	}
	if len(body) > 4096 {
		return errors.New("message body exceeds maximum length")
	}
	if !utf8.ValidString(body) {
		return errors.New("message body must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}
