// Package categories normalizes category names for display and publishing.
package categories

import "strings"

// specialCases maps title-cased words to their preferred display form.
// Applied after generic title casing; kept separate from parsing so new
// entries can be added without touching the pipeline.
var specialCases = map[string]string{
	"Ai":    "AI",
	"Us":    "US",
	"Uk":    "UK",
	"Eu":    "EU",
	"Un":    "UN",
	"Nasa":  "NASA",
	"Fbi":   "FBI",
	"Cia":   "CIA",
	"Gdp":   "GDP",
	"Ipo":   "IPO",
	"Nato":  "NATO",
	"Covid": "COVID",
	"Tv":    "TV",
	"And":   "and",
	"Of":    "of",
	"The":   "the",
}

// Normalize title-cases a raw category string and applies the static
// special-case table. The first word is never lowercased.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "General"
	}

	words := strings.Fields(strings.ToLower(trimmed))
	for i, word := range words {
		cased := titleCase(word)
		if replacement, ok := specialCases[cased]; ok {
			// Leading connectives stay title-cased ("The Economy", not "the Economy").
			if i > 0 || replacement != strings.ToLower(replacement) {
				cased = replacement
			}
		}
		words[i] = cased
	}
	return strings.Join(words, " ")
}

// titleCase uppercases the first rune of a word.
func titleCase(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
