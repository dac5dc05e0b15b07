// Package textnorm turns scraped titles and bodies into the normalized forms
// used for fingerprinting, similarity and keyword extraction.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize lower-cases text, drops every rune that is not a letter, number,
// mark, underscore or whitespace, and collapses whitespace runs to one space.
// Stopwords are kept: hashing wants the minimal transformation.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if !isWordRune(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits the normalized form of text into words.
func Tokens(input string) []string {
	normalized := Normalize(input)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// SignificantTokens returns the tokens of text that are not stopwords for lang.
// An unknown lang uses the union of every supported stopword list.
func SignificantTokens(input, lang string) []string {
	tokens := Tokens(input)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if IsStopword(token, lang) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// RuneLen counts runes, not bytes; "acción" has six.
func RuneLen(s string) int {
	return len([]rune(s))
}

// CleanWhitespace collapses in-line whitespace while keeping paragraph breaks.
func CleanWhitespace(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(line), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}
	return strings.Join(paragraphs, "\n\n")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}
