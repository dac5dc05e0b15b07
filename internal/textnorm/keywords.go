package textnorm

import "sort"

const (
	MinKeywordLength = 4
	MinKeywords      = 5
	MaxKeywords      = 10
)

// Keywords picks the most frequent significant words of text, ties broken
// alphabetically. limit is clamped to [MinKeywords, MaxKeywords]; fewer
// keywords come back when the text does not have enough candidates.
func Keywords(input, lang string, limit int) []string {
	limit = ClampKeywordLimit(limit)

	freq := make(map[string]int)
	for _, token := range SignificantTokens(input, lang) {
		if RuneLen(token) < MinKeywordLength {
			continue
		}
		freq[token]++
	}
	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}
	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	if limit > len(pairs) {
		limit = len(pairs)
	}
	keywords := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		keywords = append(keywords, pairs[i].word)
	}
	return keywords
}

func ClampKeywordLimit(limit int) int {
	if limit < MinKeywords {
		return MinKeywords
	}
	if limit > MaxKeywords {
		return MaxKeywords
	}
	return limit
}
