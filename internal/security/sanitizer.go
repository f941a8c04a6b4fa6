package security

import (
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mroshb/islands/pkg/errors"
)

// Island name bounds in runes, measured after sanitising.
const (
	MinIslandNameLength = 3
	MaxIslandNameLength = 32

	maxNameInput = 256
)

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeName strips markup, NUL bytes and control characters from a
// player-supplied display name and trims surrounding whitespace.
func SanitizeName(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	if len(input) > maxNameInput {
		input = input[:maxNameInput]
	}
	input = strings.ToValidUTF8(input, "")

	// The policy entity-escapes what it keeps; names are plain text.
	input = html.UnescapeString(htmlPolicy.Sanitize(input))
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)

	return strings.TrimSpace(input)
}

// ValidateIslandName sanitises name and checks its length.
func ValidateIslandName(name string) (string, error) {
	clean := SanitizeName(name)
	n := utf8.RuneCountInString(clean)
	if n < MinIslandNameLength || n > MaxIslandNameLength {
		return "", errors.New(errors.ErrCodeValidationFailed,
			fmt.Sprintf("island name must be between %d and %d characters", MinIslandNameLength, MaxIslandNameLength))
	}
	return clean, nil
}
