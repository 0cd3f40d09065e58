package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle decomposes a title (NFKD) and drops every rune outside ASCII,
// so "Amélie" becomes "Amelie". Case and punctuation are kept.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNonASCII)))
	out, _, err := transform.String(t, title)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}
