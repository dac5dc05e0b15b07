// Package trending recomputes article trending scores from daily keyword
// mention counts.
package trending

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/globaltime"
)

const (
	DefaultWindow   = 48 * time.Hour
	DefaultHalfLife = 12 * time.Hour
)

// Store is implemented by *db.Pool.
type Store interface {
	RecentArticleKeywords(ctx context.Context, since time.Time) ([]db.ArticleKeywords, error)
	KeywordMentionCounts(ctx context.Context, since time.Time) (map[string]int64, error)
	UpdateTrendingScores(ctx context.Context, scores map[int64]float64) (int, error)
}

type Result struct {
	Window   string    `json:"window"`
	Since    time.Time `json:"since"`
	Articles int       `json:"articles"`
	Updated  int       `json:"updated"`
	MaxScore float64   `json:"max_score"`
}

type Service struct {
	store    Store
	halfLife time.Duration
	logger   zerolog.Logger
}

func NewService(store Store, halfLife time.Duration, logger zerolog.Logger) *Service {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &Service{store: store, halfLife: halfLife, logger: logger}
}

// Recompute scores every article extracted inside window.
func (s *Service) Recompute(ctx context.Context, window time.Duration) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("trending service is not initialized")
	}
	if window <= 0 {
		window = DefaultWindow
	}

	now := globaltime.UTC()
	since := now.Add(-window)
	result := Result{Window: window.String(), Since: since}

	articles, err := s.store.RecentArticleKeywords(ctx, since)
	if err != nil {
		return result, err
	}
	result.Articles = len(articles)
	if len(articles) == 0 {
		return result, nil
	}

	mentions, err := s.store.KeywordMentionCounts(ctx, since)
	if err != nil {
		return result, err
	}

	scores := make(map[int64]float64, len(articles))
	for _, article := range articles {
		score := Score(article.Keywords, mentions, now.Sub(article.ExtractedAt), s.halfLife)
		scores[article.ArticleID] = score
		if score > result.MaxScore {
			result.MaxScore = score
		}
	}

	updated, err := s.store.UpdateTrendingScores(ctx, scores)
	if err != nil {
		return result, err
	}
	result.Updated = updated

	s.logger.Info().
		Int("articles", result.Articles).
		Int("updated", updated).
		Float64("max_score", result.MaxScore).
		Str("window", result.Window).
		Msg("trending scores recomputed")
	return result, nil
}

// Score sums log-damped keyword mentions and halves the total every halfLife
// of article age. A keyword mentioned once contributes nothing.
func Score(keywords []string, mentions map[string]int64, age, halfLife time.Duration) float64 {
	if len(keywords) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(keywords))
	var raw float64
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if n := mentions[kw]; n > 0 {
			raw += math.Log(float64(n))
		}
	}
	if age < 0 {
		age = 0
	}
	decay := math.Pow(0.5, float64(age)/float64(halfLife))
	return math.Round(raw*decay*1e4) / 1e4
}
