package session

import (
	"strings"

	"github.com/conorfennell/dutchdrill/internal/knol"
)

// CheckAnswer reports whether response matches expected. Case and extra
// whitespace are ignored; expected may list alternatives separated by "/"
// or ";".
func CheckAnswer(response, expected string) bool {
	got := normalizeAnswer(response)
	if got == "" {
		return false
	}
	for _, alt := range Alternatives(expected) {
		if normalizeAnswer(alt) == got {
			return true
		}
	}
	return false
}

// Alternatives splits an answer into its accepted variants.
func Alternatives(expected string) []string {
	parts := strings.FieldsFunc(expected, func(r rune) bool { return r == '/' || r == ';' })
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(knol.NormalizeText(s)), " ")
}
