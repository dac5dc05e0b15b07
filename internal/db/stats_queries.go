package db

import (
	"context"
	"fmt"
	"time"
)

// SourceCount stores per-source article counts.
type SourceCount struct {
	Source        string     `json:"source"`
	Active        bool       `json:"active"`
	Articles      int64      `json:"articles"`
	Alerts        int64      `json:"alerts"`
	LatestArticle *time.Time `json:"latest_article_at,omitempty"`
}

// RunTotals aggregates ingest_runs rows started inside the stats window.
type RunTotals struct {
	Runs            int64 `json:"runs"`
	Failed          int64 `json:"failed"`
	Received        int64 `json:"received"`
	Saved           int64 `json:"saved"`
	Duplicates      int64 `json:"duplicates"`
	Skipped         int64 `json:"skipped"`
	AlertsTriggered int64 `json:"alerts_triggered"`
	Errors          int64 `json:"errors"`
}

// IngestStats is the read model returned by the stats command.
type IngestStats struct {
	Day           string        `json:"day"`
	Sources       []SourceCount `json:"sources"`
	TotalArticles int64         `json:"total_articles"`
	PendingAlerts int64         `json:"pending_alerts"`
	Runs          RunTotals     `json:"runs"`
}

// QueryIngestStats returns per-source counts plus ingest run totals for one day.
func (p *Pool) QueryIngestStats(ctx context.Context, dayStart, dayEnd time.Time) (*IngestStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &IngestStats{
		Day:     startUTC.Format("2006-01-02"),
		Sources: make([]SourceCount, 0, 16),
	}

	const countsQuery = `
SELECT
	s.name,
	s.active,
	COUNT(a.id)::BIGINT AS articles,
	COUNT(a.id) FILTER (WHERE a.is_alert)::BIGINT AS alerts,
	MAX(a.extracted_at) AS latest_article_at
FROM news.sources s
LEFT JOIN news.articles a
	ON a.source_id = s.id
GROUP BY s.id, s.name, s.active
ORDER BY s.name
`

	rows, err := p.Query(ctx, countsQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row SourceCount
		if err := rows.Scan(&row.Source, &row.Active, &row.Articles, &row.Alerts, &row.LatestArticle); err != nil {
			return nil, fmt.Errorf("scan stats source row: %w", err)
		}
		stats.Sources = append(stats.Sources, row)
		stats.TotalArticles += row.Articles
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats source rows: %w", err)
	}

	const runsQuery = `
SELECT
	COUNT(*)::BIGINT,
	COUNT(*) FILTER (WHERE status = 'failed')::BIGINT,
	COALESCE(SUM(items_received), 0)::BIGINT,
	COALESCE(SUM(items_saved), 0)::BIGINT,
	COALESCE(SUM(items_duplicate), 0)::BIGINT,
	COALESCE(SUM(items_skipped), 0)::BIGINT,
	COALESCE(SUM(alerts_triggered), 0)::BIGINT,
	COALESCE(SUM(error_count), 0)::BIGINT,
	(SELECT COUNT(*) FROM news.alert_triggers WHERE NOT notified)::BIGINT
FROM news.ingest_runs
WHERE started_at >= $1
  AND started_at < $2
`

	if err := p.QueryRow(ctx, runsQuery, startUTC, endUTC).Scan(
		&stats.Runs.Runs,
		&stats.Runs.Failed,
		&stats.Runs.Received,
		&stats.Runs.Saved,
		&stats.Runs.Duplicates,
		&stats.Runs.Skipped,
		&stats.Runs.AlertsTriggered,
		&stats.Runs.Errors,
		&stats.PendingAlerts,
	); err != nil {
		return nil, fmt.Errorf("query stats run totals: %w", err)
	}

	return stats, nil
}
