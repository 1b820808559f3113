// Package tokenizer provides text tokenisation for the indexer. It
// lower-cases input and splits on non-alphanumeric boundaries. Every
// word is kept: the index records exact document content, so there is
// no stop-word removal or stemming.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its position in the
// original text, counted in words.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lowercased Tokens.
func Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}
