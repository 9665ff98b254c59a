package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/dutchdrill/internal/domain"
)

// idLength is how many hex characters of the digest make up an item id.
const idLength = 12

// NormalizeText lowercases, trims and unifies line endings.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Normalize joins the identifying fields of an item after cleaning each one.
// Fields are joined with newlines so "de" + "hond" never collides with
// "deh" + "ond".
func Normalize(item domain.Item) string {
	return strings.Join([]string{
		NormalizeText(string(item.Kind)),
		NormalizeText(item.Prompt),
		NormalizeText(item.Answer),
		NormalizeText(item.Category),
	}, "\n")
}

// Hash returns the SHA-256 of the normalized item as a hex string.
func Hash(item domain.Item) string {
	sum := sha256.Sum256([]byte(Normalize(item)))
	return fmt.Sprintf("%x", sum)
}

// ID returns the short stable id used when a deck entry has none.
func ID(item domain.Item) string {
	return Hash(item)[:idLength]
}
