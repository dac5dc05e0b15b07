// Package language normalizes the language hints scrapers attach to items.
package language

import "strings"

var aliases = map[string]string{
	"spa":        "es",
	"esp":        "es",
	"spanish":    "es",
	"español":    "es",
	"espanol":    "es",
	"castellano": "es",
	"eng":        "en",
	"english":    "en",
	"inglés":     "en",
	"ingles":     "en",
	"por":        "pt",
	"portuguese": "pt",
	"português":  "pt",
	"portugues":  "pt",
}

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the two-letter primary subtag for a hint such as
// "es-PE", "spa" or "Español". Unrecognized hints return "".
func NormalizeCode(raw string) string {
	if code, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return code
	}
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		tag = tag[:dash]
	}
	if code, ok := aliases[tag]; ok {
		return code
	}
	if len(tag) != 2 {
		return ""
	}
	return tag
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
