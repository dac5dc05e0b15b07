package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/textnorm"
)

const DefaultMinContentLength = 100

type BackfillRequest struct {
	Title    string
	Existing string
	Category string
	Link     string
}

// ContentSource produces replacement prose for a thin article.
type ContentSource interface {
	Name() string
	Generate(ctx context.Context, req BackfillRequest) (string, error)
}

// Backfill tries its sources in order and falls back to a template, so
// Generate never returns an empty string.
type Backfill struct {
	sources   []ContentSource
	minLength int
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewBackfill(minLength int, timeout time.Duration, logger zerolog.Logger, sources ...ContentSource) *Backfill {
	if minLength <= 0 {
		minLength = DefaultMinContentLength
	}
	return &Backfill{
		sources:   sources,
		minLength: minLength,
		timeout:   timeout,
		logger:    logger,
	}
}

// NeedsBackfill reports whether content is shorter than the minimum length.
func (b *Backfill) NeedsBackfill(content string) bool {
	return textnorm.RuneLen(strings.TrimSpace(content)) < b.minLength
}

func (b *Backfill) Generate(ctx context.Context, req BackfillRequest) Outcome[string] {
	var reasons []string
	for _, src := range b.sources {
		out := Bounded(ctx, b.timeout, "", func(ctx context.Context) (string, error) {
			return src.Generate(ctx, req)
		})
		if out.Fallback {
			reasons = append(reasons, fmt.Sprintf("%s: %s", src.Name(), out.Reason))
			b.logger.Debug().Str("backfill_source", src.Name()).Str("reason", out.Reason).Msg("backfill source failed")
			continue
		}
		text := strings.TrimSpace(out.Value)
		if textnorm.RuneLen(text) < b.minLength {
			reasons = append(reasons, fmt.Sprintf("%s: %d chars below minimum %d", src.Name(), textnorm.RuneLen(text), b.minLength))
			continue
		}
		return OK(text)
	}

	text := TemplateContent(req.Title, req.Existing, req.Category)
	if len(reasons) == 0 {
		return Fallback(text, "no backfill source configured")
	}
	return Fallback(text, strings.Join(reasons, "; "))
}
