package transport

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateShortBodyUntouched(t *testing.T) {
	assert.Equal(t, "bonjour", Truncate("bonjour"))

	exact := strings.Repeat("a", MaxLength)
	assert.Equal(t, exact, Truncate(exact))
}

func TestTruncateLongBody(t *testing.T) {
	long := strings.Repeat("a", MaxLength+500)
	got := Truncate(long)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
}

func TestTruncateNeverSplitsRunes(t *testing.T) {
	long := strings.Repeat("é🛞", 900)
	got := Truncate(long)
	assert.LessOrEqual(t, len(got), MaxLength)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
}
