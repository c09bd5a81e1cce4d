package conversation

import (
	"regexp"
	"strings"

	"github.com/garageconnect/conversational-commerce/internal/catalog"
)

var (
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pureNumberRe = regexp.MustCompile(`^\d+$`)
)

// chooseModel routes simple messages to the fast tier and anything
// that needs tool-calling accuracy to the full tier. Dimension input
// always takes the full model: a wrong search costs more than the
// cheaper call saves.
func chooseModel(body, fullModel, fastModel string) string {
	trimmed := strings.TrimSpace(body)

	if catalog.LooksLikeDimensions(trimmed) {
		return fullModel
	}
	if pureNumberRe.MatchString(trimmed) {
		return fastModel
	}
	if emailRe.MatchString(trimmed) {
		return fastModel
	}
	if len(strings.Fields(trimmed)) <= 10 {
		return fastModel
	}
	return fullModel
}
