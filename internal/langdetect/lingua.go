// Package langdetect guesses the language of scraped text when the scraper
// gave no usable hint.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/newswire/internal/language"
)

// Only languages the sources publish in; a smaller model set keeps short
// headlines from being claimed by unrelated languages.
var candidates = []lingua.Language{
	lingua.Spanish,
	lingua.English,
	lingua.Portuguese,
	lingua.French,
	lingua.Italian,
	lingua.German,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Resolve returns the scraper hint when it names a language, otherwise the
// detected language of text, otherwise "".
func Resolve(hint, text string) string {
	if code := language.NormalizeCode(hint); code != "" {
		return code
	}
	return DetectISO6391(text)
}

func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 12 {
		return ""
	}

	detected, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			WithMinimumRelativeDistance(0.05).
			Build()
	})
	return detector
}
