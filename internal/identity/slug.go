package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// slugify lowers a model name into a safe SQL identifier fragment: NFD
// normalization strips diacritics, anything outside [a-z0-9] collapses to a
// single underscore, and leading/trailing underscores are trimmed. CamelCase
// boundaries become underscores so "OrderItem" and "order_item" agree.
func slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	prevUnderscore := true // swallow leading separators
	prevLower := false
	for _, r := range norm.NFD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark left over from NFD decomposition.
			continue
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
			prevLower = r >= 'a' && r <= 'z'
		case r >= 'A' && r <= 'Z':
			if prevLower && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
			prevLower = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
			}
			prevUnderscore = true
			prevLower = false
		}
	}

	return strings.TrimRight(b.String(), "_")
}

// Slugify exposes the identifier derivation for other compiler stages.
func Slugify(name string) string {
	return slugify(name)
}
