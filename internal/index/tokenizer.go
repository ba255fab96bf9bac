package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Normalize folds full-width characters to their narrow forms, lowercases
// and collapses whitespace.
func Normalize(text string) string {
	folded := width.Fold.String(text)
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Tokenize splits text into index terms. Latin letters and digits form word
// tokens; runs of Han characters are cut into overlapping character bigrams
// (a lone Han character is kept as a unigram). Punctuation separates tokens.
func Tokenize(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}

	var tokens []string
	var word []rune
	var han []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}
	flushHan := func() {
		switch {
		case len(han) == 1:
			tokens = append(tokens, string(han))
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				tokens = append(tokens, string(han[i:i+2]))
			}
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}
