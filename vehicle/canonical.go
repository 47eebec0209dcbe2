// Package vehicle holds the feature record shared by the trainer and the
// estimator, together with the model-name canonicalizer both of them use.
package vehicle

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// OtherModel is the bucket for empty names and for models outside the
// training vocabulary.
const OtherModel = "Other"

// compoundPrefixes are first words that only name a model together with the
// word that follows them ("Serie 3", "Clase A", "Range Rover").
var compoundPrefixes = map[string]bool{
	"clase": true,
	"serie": true,
	"range": true,
	"grand": true,
	"rav":   true,
}

// normalize NFC-normalizes, lower-cases and trims s.
func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// NormalizeBrand returns the brand as stored in records: lower-cased and
// trimmed.
func NormalizeBrand(brand string) string {
	return normalize(brand)
}

// CanonicalModel reduces a free-text model name to its bucket.
//
// The brand is stripped from the front of the model as many times as it
// appears, along with any separators after it. A compound first word keeps
// the next word and is title-cased; otherwise only the first word is kept,
// capitalized. Empty input yields OtherModel. It never fails.
//
// Example:
//
//	vehicle.CanonicalModel("BMW", "BMW Serie 3 320d") // "Serie 3"
//	vehicle.CanonicalModel("seat", "León FR")         // "León"
func CanonicalModel(brand, model string) string {
	b := normalize(brand)
	m := normalize(model)
	for b != "" && strings.HasPrefix(m, b) {
		m = strings.TrimLeft(strings.TrimSpace(m[len(b):]), "-:,.")
	}

	words := strings.Fields(m)
	if len(words) == 0 {
		return OtherModel
	}
	if len(words) > 1 && compoundPrefixes[words[0]] {
		return cases.Title(language.Und).String(words[0] + " " + words[1])
	}
	return capitalize(words[0])
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}
