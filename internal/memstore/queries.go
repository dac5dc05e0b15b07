package memstore

import (
	"context"
	"sort"
	"time"

	"horse.fit/newswire/internal/db"
)

// PendingAlerts mirrors db.Pool.PendingAlerts over committed state.
func (s *Store) PendingAlerts(_ context.Context, limit, maxAttempts int) ([]db.PendingAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := make(map[int64]db.AlertRule, len(s.committed.rules))
	for _, r := range s.committed.rules {
		rules[r.ID] = r
	}
	articles := make(map[int64]db.Article, len(s.committed.articles))
	for _, a := range s.committed.articles {
		articles[a.ID] = a
	}

	var out []db.PendingAlert
	for _, t := range s.committed.triggers {
		if t.Notified || (maxAttempts > 0 && t.Attempts >= maxAttempts) {
			continue
		}
		rule, article := rules[t.RuleID], articles[t.ArticleID]
		out = append(out, db.PendingAlert{
			TriggerID:      t.ID,
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			Channels:       rule.Channels,
			Target:         rule.Target,
			ArticleID:      article.ID,
			Title:          article.Title,
			Link:           article.Link,
			Category:       article.Category,
			MatchedKeyword: t.MatchedKeyword,
			UrgencyLevel:   t.UrgencyLevel,
			FiredAt:        t.FiredAt,

			Attempts:          t.Attempts,
			DeliveredChannels: append([]string(nil), t.DeliveredChannels...),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts < out[j].Attempts
		}
		if !out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].FiredAt.Before(out[j].FiredAt)
		}
		return out[i].TriggerID < out[j].TriggerID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkAlertNotified(_ context.Context, triggerID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.committed.triggers {
		t := &s.committed.triggers[i]
		if t.ID == triggerID && !t.Notified {
			t.Notified = true
			notifiedAt := at.UTC()
			t.NotifiedAt = &notifiedAt
		}
	}
	return nil
}

func (s *Store) RecordAlertAttempt(_ context.Context, triggerID int64, delivered []string, cause string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.committed.triggers {
		t := &s.committed.triggers[i]
		if t.ID == triggerID && !t.Notified {
			t.Attempts++
			t.DeliveredChannels = append([]string(nil), delivered...)
			lastError, attemptAt := cause, at.UTC()
			t.LastError = &lastError
			t.LastAttemptAt = &attemptAt
		}
	}
	return nil
}

func (s *Store) RecentArticleKeywords(_ context.Context, since time.Time) ([]db.ArticleKeywords, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.ArticleKeywords
	for _, a := range s.committed.articles {
		if a.ExtractedAt.Before(since) {
			continue
		}
		out = append(out, db.ArticleKeywords{ArticleID: a.ID, Keywords: a.Keywords, ExtractedAt: a.ExtractedAt})
	}
	return out, nil
}

func (s *Store) KeywordMentionCounts(_ context.Context, since time.Time) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := since.UTC().Truncate(24 * time.Hour)
	out := make(map[string]int64)
	for k, v := range s.committed.trends {
		if k.day.Before(day) {
			continue
		}
		out[k.keyword] += v
	}
	return out, nil
}

func (s *Store) UpdateTrendingScores(_ context.Context, scores map[int64]float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for i := range s.committed.articles {
		if score, ok := scores[s.committed.articles[i].ID]; ok {
			s.committed.articles[i].TrendingScore = score
			updated++
		}
	}
	return updated, nil
}
