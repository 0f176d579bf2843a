package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	wordSeparators = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	apostrophes    = strings.NewReplacer("'", "", "’", "")
)

// Words splits s into words. Any run of characters that are neither letters
// nor digits separates words, apostrophes are dropped, and case transitions
// ("ingestionSources", "APIConfig") start a new word.
func Words(s string) []string {
	s = apostrophes.Replace(s)

	var words []string
	for _, chunk := range wordSeparators.Split(s, -1) {
		if chunk == "" {
			continue
		}
		words = append(words, splitCase(chunk)...)
	}
	return words
}

func splitCase(s string) []string {
	runes := []rune(s)

	var (
		out   []string
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]

		var boundary bool
		switch {
		case (unicode.IsLower(prev) || unicode.IsDigit(prev)) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}

		if boundary {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// LowerCamel converts s to lower camel case: the first word is lowercased and
// every following word is capitalized with the rest of it lowercased.
//
//	LowerCamel("Ingestion Sources") // "ingestionSources"
//	LowerCamel("API_Config-v2")     // "apiConfigV2"
func LowerCamel(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}

	// Casers are stateful, so they are not shared.
	lower := cases.Lower(language.Und)
	title := cases.Title(language.Und)

	var b strings.Builder
	b.WriteString(lower.String(words[0]))
	for _, w := range words[1:] {
		b.WriteString(title.String(w))
	}
	return b.String()
}
