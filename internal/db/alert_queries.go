package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PendingAlert is an un-notified trigger joined with its rule and article.
type PendingAlert struct {
	TriggerID      int64
	RuleID         int64
	RuleName       string
	Channels       []string
	Target         string
	ArticleID      int64
	Title          string
	Link           *string
	Category       string
	MatchedKeyword string
	UrgencyLevel   string
	FiredAt        time.Time

	Attempts          int
	DeliveredChannels []string
}

// PendingAlerts returns up to limit un-notified triggers with fewer than
// maxAttempts failed deliveries. Least-tried triggers come first, so a pile
// of failing triggers cannot hold back fresh ones.
func (p *Pool) PendingAlerts(ctx context.Context, limit, maxAttempts int) ([]PendingAlert, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("maxAttempts must be > 0")
	}

	const q = `
SELECT
	t.id,
	r.id,
	r.name,
	COALESCE(r.channels, '[]'::jsonb)::text,
	r.target,
	a.id,
	a.title,
	a.link,
	a.category,
	t.matched_keyword,
	t.urgency_level,
	t.fired_at,
	t.attempts,
	COALESCE(t.delivered_channels, '[]'::jsonb)::text
FROM news.alert_triggers t
JOIN news.alert_rules r ON r.id = t.rule_id
JOIN news.articles a ON a.id = t.article_id
WHERE NOT t.notified
  AND t.attempts < $2
ORDER BY t.attempts ASC, t.fired_at ASC, t.id ASC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("query pending alerts: %w", err)
	}
	defer rows.Close()

	out := make([]PendingAlert, 0, limit)
	for rows.Next() {
		var row PendingAlert
		var channelsJSON, deliveredJSON string
		if err := rows.Scan(
			&row.TriggerID,
			&row.RuleID,
			&row.RuleName,
			&channelsJSON,
			&row.Target,
			&row.ArticleID,
			&row.Title,
			&row.Link,
			&row.Category,
			&row.MatchedKeyword,
			&row.UrgencyLevel,
			&row.FiredAt,
			&row.Attempts,
			&deliveredJSON,
		); err != nil {
			return nil, fmt.Errorf("scan pending alert row: %w", err)
		}
		if err := json.Unmarshal([]byte(channelsJSON), &row.Channels); err != nil {
			return nil, fmt.Errorf("decode channels for rule %d: %w", row.RuleID, err)
		}
		if err := json.Unmarshal([]byte(deliveredJSON), &row.DeliveredChannels); err != nil {
			return nil, fmt.Errorf("decode delivered channels for trigger %d: %w", row.TriggerID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending alert rows: %w", err)
	}
	return out, nil
}

// MarkAlertNotified flips the notified flag of one trigger.
func (p *Pool) MarkAlertNotified(ctx context.Context, triggerID int64, at time.Time) error {
	const q = `
UPDATE news.alert_triggers
SET notified = TRUE, notified_at = $2, last_error = NULL
WHERE id = $1 AND NOT notified
`
	if _, err := p.Exec(ctx, q, triggerID, at.UTC()); err != nil {
		return fmt.Errorf("mark alert trigger %d notified: %w", triggerID, err)
	}
	return nil
}

// RecordAlertAttempt stores a failed delivery: the channels that have
// accepted the trigger so far and the error of this attempt.
func (p *Pool) RecordAlertAttempt(ctx context.Context, triggerID int64, delivered []string, cause string, at time.Time) error {
	deliveredJSON, err := json.Marshal(delivered)
	if err != nil {
		return fmt.Errorf("encode delivered channels: %w", err)
	}
	const q = `
UPDATE news.alert_triggers
SET attempts = attempts + 1,
	delivered_channels = $2::jsonb,
	last_error = $3,
	last_attempt_at = $4
WHERE id = $1 AND NOT notified
`
	if _, err := p.Exec(ctx, q, triggerID, string(deliveredJSON), cause, at.UTC()); err != nil {
		return fmt.Errorf("record alert trigger %d attempt: %w", triggerID, err)
	}
	return nil
}
