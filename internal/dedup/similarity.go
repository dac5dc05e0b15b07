package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"horse.fit/newswire/internal/textnorm"
)

// Similarity scores two titles in [0,1] with a longest-matching-blocks ratio
// over their comparison keys. It is symmetric and Similarity(x, x) == 1 for
// any title with a non-empty key. Empty keys score 0.
func Similarity(a, b string) float64 {
	return keySimilarity(ComparisonKey(a), ComparisonKey(b))
}

// ComparisonKey is the normalized title without stopwords, or the plain
// normalized title when every word is a stopword.
func ComparisonKey(title string) string {
	significant := textnorm.SignificantTokens(title, "")
	if len(significant) > 0 {
		return strings.Join(significant, " ")
	}
	return textnorm.Normalize(title)
}

func keySimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	// difflib picks the earliest of equal-length blocks, which depends on
	// argument order; a fixed order keeps the score symmetric.
	if b < a {
		a, b = b, a
	}
	matcher := difflib.NewMatcherWithJunk(splitRunes(a), splitRunes(b), false, nil)
	return matcher.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
