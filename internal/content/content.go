package content

import (
	"errors"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy        = bluemonday.StrictPolicy()
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const minUsernameLen = 3

// Sanitize strips all HTML from outgoing message content.
// The backend stores content verbatim, so the client never sends markup.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// IsBlank reports whether the content is empty or whitespace only.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}

// ValidateUsername checks the minimum length and allowed characters
// (latin letters, digits, dash, underscore) before any registration call.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLen {
		return errors.New("имя пользователя должно содержать минимум 3 символа")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("имя пользователя может содержать только английские буквы, цифры, дефис и подчеркивание")
	}
	return nil
}
