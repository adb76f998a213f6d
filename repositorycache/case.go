package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake lowercases s and joins its words with underscores. A word starts at
// an upper-case letter following a lower-case letter or digit, at the last
// capital of an acronym ("HTTPServer" -> http_server) and at the first digit
// of a run. Any other rune (generic brackets, dots, pointer stars) separates words.
func toSnake(s string) string {
	return strings.Join(splitWords(s), "_")
}

func splitWords(s string) []string {
	runes := []rune(s)
	var (
		words []string
		word  []rune
	)
	flush := func() {
		if len(word) > 0 {
			words = append(words, string(word))
			word = word[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 && startsWord(runes, i) {
			flush()
		}
		word = append(word, unicode.ToLower(r))
	}
	flush()
	return words
}

func startsWord(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	switch {
	case unicode.IsDigit(r):
		return !unicode.IsDigit(prev)
	case unicode.IsUpper(r):
		if unicode.IsLower(prev) || unicode.IsDigit(prev) {
			return true
		}
		return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
	}
	return false
}
