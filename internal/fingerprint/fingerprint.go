// Package fingerprint derives the lookup keys stored with every article.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"horse.fit/newswire/internal/textnorm"
)

const (
	ContentWordLimit     = 200
	SimilarityTokenCount = 5
	SimilarityTokenMin   = 4
)

// Set holds the three keys of one candidate. ContentHash is empty when the
// normalized content is empty.
type Set struct {
	TitleHash      string
	ContentHash    string
	SimilarityHash string
}

func Compute(title, content string) Set {
	return Set{
		TitleHash:      TitleHash(title),
		ContentHash:    ContentHash(content),
		SimilarityHash: SimilarityHash(title),
	}
}

func TitleHash(title string) string {
	return hashHex(textnorm.Normalize(title))
}

// ContentHash hashes the first ContentWordLimit normalized words of content.
func ContentHash(content string) string {
	tokens := textnorm.Tokens(content)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > ContentWordLimit {
		tokens = tokens[:ContentWordLimit]
	}
	return hashHex(strings.Join(tokens, " "))
}

// SimilarityHash buckets titles by their longest words. Word order in the
// title does not change the result.
func SimilarityHash(title string) string {
	return hashHex(SimilarityKey(title))
}

// SimilarityKey is the pre-hash text of SimilarityHash.
func SimilarityKey(title string) string {
	tokens := textnorm.Tokens(title)
	long := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if textnorm.RuneLen(token) >= SimilarityTokenMin {
			long = append(long, token)
		}
	}

	sort.SliceStable(long, func(i, j int) bool {
		li, lj := textnorm.RuneLen(long[i]), textnorm.RuneLen(long[j])
		if li == lj {
			return long[i] < long[j]
		}
		return li > lj
	})
	if len(long) > SimilarityTokenCount {
		long = long[:SimilarityTokenCount]
	}
	sort.Strings(long)
	return strings.Join(long, " ")
}

func hashHex(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
