package text

import (
	"strings"
	"unicode"
)

// normalizeLineWhitespace collapses all consecutive whitespace characters (spaces, tabs, etc.)
// into a single space and trims leading/trailing whitespace from a line of text.
func normalizeLineWhitespace(line string) string {
	var strBuilder strings.Builder

	var space bool

	for _, r := range line {
		if unicode.IsSpace(r) {
			if !space {
				strBuilder.WriteRune(' ')

				space = true
			}
		} else {
			strBuilder.WriteRune(r)

			space = false
		}
	}

	return strings.TrimSpace(strBuilder.String())
}

// Normalize cleans a piece of wizard or CLI input: line endings become LF,
// invisible Unicode characters are dropped, control characters become
// spaces, whitespace inside each line is collapsed and the result is trimmed.
func Normalize(input string) string {
	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")

	parts := strings.Split(s, "\n")
	for i := range parts {
		parts[i] = normalizeLineWhitespace(parts[i])
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// IsAllowedText reports whether s is non-blank and consists only of Latin or
// Cyrillic letters, ASCII digits and the allowed punctuation.
func IsAllowedText(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
		case strings.ContainsRune(allowedPunctuation, r):
		default:
			return false
		}
	}

	return true
}
