package ingest

import (
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"horse.fit/newswire/internal/globaltime"
	"horse.fit/newswire/internal/langdetect"
	"horse.fit/newswire/internal/textnorm"
)

// prepared is a candidate after the side-effect free cleanup pass.
type prepared struct {
	index       int
	title       string
	content     string
	link        string
	category    string
	sourceName  string
	imageURL    string
	language    string
	publishedAt *time.Time
	extractedAt time.Time
	err         error
}

func (p prepared) label() string {
	if p.title != "" {
		return clip(p.title, 60)
	}
	if p.link != "" {
		return p.link
	}
	return "untitled"
}

// prepareBatch cleans every candidate. Candidates of different sources are
// handled concurrently; output order always matches input order.
func prepareBatch(candidates []Candidate, concurrency int) []prepared {
	out := make([]prepared, len(candidates))

	bySource := make(map[string][]int)
	var order []string
	for i, c := range candidates {
		key := strings.TrimSpace(c.SourceName)
		if _, ok := bySource[key]; !ok {
			order = append(order, key)
		}
		bySource[key] = append(bySource[key], i)
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	now := globaltime.UTC()

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, key := range order {
		indexes := bySource[key]
		g.Go(func() error {
			for _, i := range indexes {
				out[i] = prepareOne(i, candidates[i], now)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func prepareOne(index int, c Candidate, now time.Time) prepared {
	p := prepared{
		index:       index,
		title:       strings.Join(strings.Fields(textnorm.StripHTML(c.Title)), " "),
		content:     textnorm.CleanWhitespace(textnorm.StripHTML(c.Content)),
		link:        strings.TrimSpace(c.Link),
		category:    strings.TrimSpace(c.Category),
		sourceName:  strings.TrimSpace(c.SourceName),
		imageURL:    strings.TrimSpace(c.ImageURL),
		publishedAt: parsePublishedAt(c.PublishedAt),
		extractedAt: now,
	}
	if c.ExtractedAt != nil && !c.ExtractedAt.IsZero() {
		p.extractedAt = c.ExtractedAt.UTC()
	}

	if textnorm.Normalize(p.title) == "" {
		p.err = ErrEmptyTitle
		return p
	}
	p.language = langdetect.Resolve(c.Language, p.title+" "+p.content)
	return p
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
