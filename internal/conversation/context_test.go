package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garageconnect/conversational-commerce/internal/model"
)

func TestParseCustomerInfoEmail(t *testing.T) {
	u, ok := ParseCustomerInfo("mon email c est marie.lambert@orange.fr voilà")
	assert.True(t, ok)
	assert.Equal(t, "marie.lambert@orange.fr", u.Email)
}

func TestParseCustomerInfoNamePhrase(t *testing.T) {
	u, ok := ParseCustomerInfo("Bonjour, je m'appelle marie lambert")
	assert.True(t, ok)
	assert.Equal(t, "Marie", u.FirstName)
	assert.Equal(t, "Lambert", u.LastName)
}

func TestParseCustomerInfoBareName(t *testing.T) {
	u, ok := ParseCustomerInfo("Marie Lambert")
	assert.True(t, ok)
	assert.Equal(t, "Marie", u.FirstName)
	assert.Equal(t, "Lambert", u.LastName)
}

func TestParseCustomerInfoNameAndEmail(t *testing.T) {
	u, ok := ParseCustomerInfo("Marie Lambert marie.lambert@orange.fr")
	assert.True(t, ok)
	assert.Equal(t, "Marie", u.FirstName)
	assert.Equal(t, "Lambert", u.LastName)
	assert.Equal(t, "marie.lambert@orange.fr", u.Email)
}

func TestParseCustomerInfoNothingFound(t *testing.T) {
	_, ok := ParseCustomerInfo("je voudrais des pneus pas trop chers pour ma voiture")
	assert.False(t, ok)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("marie@orange.fr"))
	assert.True(t, ValidEmail("  marie@orange.fr  "))
	assert.False(t, ValidEmail("marie@orange"))
	assert.False(t, ValidEmail("pas un email"))
}

func TestMissingFieldsPrompt(t *testing.T) {
	c := &model.Customer{PhoneNumber: "+590690000000", FirstName: "Marie"}
	prompt := MissingFieldsPrompt(c)
	assert.Contains(t, prompt, "votre nom")
	assert.Contains(t, prompt, "votre email")
	assert.Contains(t, prompt, "votre adresse")
	assert.NotContains(t, prompt, "votre prénom")

	complete := &model.Customer{
		PhoneNumber: "+590690000000",
		FirstName:   "Marie",
		LastName:    "Lambert",
		Email:       "marie@orange.fr",
		Address:     "12 rue des Flamboyants",
	}
	assert.Empty(t, MissingFieldsPrompt(complete))
}
