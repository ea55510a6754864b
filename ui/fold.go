package ui

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining marks so that "Paracétamol" and
// "PARACETAMOL" compare equal. Transformers are not safe for concurrent use,
// so a fresh chain is built per call.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// ContainsFolded reports whether term occurs in text, ignoring case and accents
func ContainsFolded(text, term string) bool {
	return strings.Contains(Fold(text), Fold(term))
}
