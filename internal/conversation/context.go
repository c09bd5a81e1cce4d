package conversation

import (
	"regexp"
	"strings"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

var (
	findEmailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	namePhrases = []string{
		"je m'appelle ",
		"je m’appelle ",
		"mon nom est ",
		"c'est ",
	}
)

// ValidEmail reports whether s is a plausible email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// ParseCustomerInfo pulls identity fields out of free text during
// checkout: an email anywhere, and a "Prénom Nom" pair either after a
// name phrase or as the leading words of a short message. Returns ok
// when at least one field was found.
func ParseCustomerInfo(text string) (model.CustomerUpdate, bool) {
	var u model.CustomerUpdate
	found := false

	if email := findEmailRe.FindString(text); email != "" {
		u.Email = email
		found = true
	}

	rest := findEmailRe.ReplaceAllString(text, "")
	if first, last, ok := parseName(rest); ok {
		u.FirstName = first
		u.LastName = last
		found = true
	}

	return u, found
}

func parseName(text string) (first, last string, ok bool) {
	lower := strings.ToLower(text)
	for _, phrase := range namePhrases {
		if i := strings.Index(lower, phrase); i >= 0 {
			return splitName(text[i+len(phrase):])
		}
	}
	// A short bare message like "Marie Lambert" is taken as a name.
	words := strings.Fields(text)
	if len(words) == 2 && isNameWord(words[0]) && isNameWord(words[1]) {
		return splitName(text)
	}
	return "", "", false
}

func splitName(s string) (string, string, bool) {
	words := strings.Fields(s)
	if len(words) < 2 || !isNameWord(words[0]) || !isNameWord(words[1]) {
		return "", "", false
	}
	return title(words[0]), title(words[1]), true
}

var nameWordRe = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ'\-]{2,}$`)

func isNameWord(w string) bool {
	return nameWordRe.MatchString(strings.Trim(w, ",."))
}

func title(w string) string {
	w = strings.Trim(w, ",.")
	if w == "" {
		return w
	}
	runes := []rune(strings.ToLower(w))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

// MissingFieldsPrompt asks the customer for whatever checkout still
// needs, in their language.
func MissingFieldsPrompt(c *model.Customer) string {
	labels := map[string]string{
		"first_name": "votre prénom",
		"last_name":  "votre nom",
		"email":      "votre email",
		"address":    "votre adresse de livraison",
	}
	missing := c.MissingFields()
	if c.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) == 0 {
		return ""
	}
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		parts = append(parts, labels[m])
	}
	return "📝 Pour finaliser la commande, il me faut encore : " + strings.Join(parts, ", ") + "."
}
