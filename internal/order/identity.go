package order

import "strings"

// Placeholder identities the model is known to invent when it lacks
// real customer data. An order must never be created with any of
// these.
var (
	denylistNames = []string{
		"john doe",
		"jane doe",
		"jean dupont",
		"marie dupont",
		"test test",
		"foo bar",
		"prenom nom",
		"prénom nom",
	}
	denylistEmailDomains = []string{
		"example.com",
		"example.org",
		"example.fr",
		"test.com",
		"email.com",
		"domain.com",
	}
	denylistEmailLocals = []string{
		"test",
		"example",
		"user",
		"client",
		"email",
	}
)

// IsPlaceholderName reports whether the full name matches a known
// stock identity.
func IsPlaceholderName(firstName, lastName string) bool {
	full := strings.ToLower(strings.TrimSpace(firstName + " " + lastName))
	for _, bad := range denylistNames {
		if full == bad {
			return true
		}
	}
	return false
}

// IsPlaceholderEmail reports whether the email is a known synthetic
// address.
func IsPlaceholderEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	local, domain := email[:at], email[at+1:]
	for _, bad := range denylistEmailDomains {
		if domain == bad {
			return true
		}
	}
	for _, bad := range denylistEmailLocals {
		if local == bad {
			return true
		}
	}
	return false
}
