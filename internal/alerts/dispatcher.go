package alerts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/globaltime"
)

// Store is the write side the dispatcher needs inside a unit of work.
type Store interface {
	RecordAlertTrigger(ctx context.Context, trigger *db.AlertTrigger) (bool, error)
	MarkArticleAlert(ctx context.Context, articleID int64, urgency string) error
}

type Dispatcher struct {
	logger zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Dispatch records one trigger per matching rule for a staged article and
// flags the article with the highest fired urgency. It returns the number
// of triggers written.
func (d *Dispatcher) Dispatch(ctx context.Context, store Store, matcher *Matcher, article *db.Article, sourceName string) (int, error) {
	if article == nil || article.ID == 0 {
		return 0, fmt.Errorf("article must be staged before dispatch")
	}

	matches := matcher.Match(article.Title+" "+article.Content, article.Category, sourceName)
	if len(matches) == 0 {
		return 0, nil
	}

	firedAt := globaltime.UTC()
	triggered := 0
	urgency := ""
	for _, match := range matches {
		inserted, err := store.RecordAlertTrigger(ctx, &db.AlertTrigger{
			RuleID:         match.RuleID,
			ArticleID:      article.ID,
			MatchedKeyword: match.Keyword,
			UrgencyLevel:   match.Urgency,
			FiredAt:        firedAt,
		})
		if err != nil {
			return triggered, err
		}
		if !inserted {
			continue
		}
		triggered++
		urgency = HigherUrgency(urgency, match.Urgency)

		d.logger.Info().
			Int64("article_id", article.ID).
			Int64("rule_id", match.RuleID).
			Str("rule", match.RuleName).
			Str("keyword", match.Keyword).
			Str("urgency", match.Urgency).
			Msg("alert triggered")
	}

	if triggered == 0 {
		return 0, nil
	}
	if err := store.MarkArticleAlert(ctx, article.ID, urgency); err != nil {
		return triggered, err
	}
	article.IsAlert = true
	article.UrgencyLevel = &urgency
	return triggered, nil
}
