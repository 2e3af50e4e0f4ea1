// Package textnorm strips diacritics and collapses whitespace in text
// cells. It decomposes text with NFKD so accents become combining
// marks, drops the marks, and recomposes, e.g. "Éclat" -> "Eclat".
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize strips combining marks from s and collapses every run of
// whitespace to a single space, trimming the ends. The transform is
// pure and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform failure keeps the raw cell; only the whitespace
		// pass applies.
		stripped = s
	}
	return strings.Join(strings.Fields(stripped), " ")
}
