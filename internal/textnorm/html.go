package textnorm

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the visible text of raw when it looks like markup and
// raw itself otherwise. Script and style bodies are dropped.
func StripHTML(raw string) string {
	if !looksLikeHTML(raw) {
		return raw
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("p, li, h1, h2, h3, h4, blockquote").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return CleanWhitespace(doc.Text())
	}
	return CleanWhitespace(strings.Join(parts, "\n"))
}

func looksLikeHTML(raw string) bool {
	open := strings.IndexByte(raw, '<')
	if open < 0 {
		return false
	}
	return strings.IndexByte(raw[open:], '>') > 0
}
