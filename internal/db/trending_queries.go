package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ArticleKeywords is the trending input for one article.
type ArticleKeywords struct {
	ArticleID   int64
	Keywords    []string
	ExtractedAt time.Time
}

// RecentArticleKeywords lists articles extracted at or after since.
func (p *Pool) RecentArticleKeywords(ctx context.Context, since time.Time) ([]ArticleKeywords, error) {
	const q = `
SELECT id, COALESCE(keywords, '[]'::jsonb)::text, extracted_at
FROM news.articles
WHERE extracted_at >= $1
ORDER BY extracted_at DESC, id DESC
`
	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query recent article keywords: %w", err)
	}
	defer rows.Close()

	out := make([]ArticleKeywords, 0, 64)
	for rows.Next() {
		var row ArticleKeywords
		var raw string
		if err := rows.Scan(&row.ArticleID, &raw, &row.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scan article keywords row: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &row.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords for article %d: %w", row.ArticleID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article keywords rows: %w", err)
	}
	return out, nil
}

// KeywordMentionCounts sums daily mentions per keyword from since's day on.
func (p *Pool) KeywordMentionCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	const q = `
SELECT keyword, SUM(mentions)::BIGINT
FROM news.keyword_trends
WHERE day >= $1::date
GROUP BY keyword
`
	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query keyword mention counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, 256)
	for rows.Next() {
		var keyword string
		var mentions int64
		if err := rows.Scan(&keyword, &mentions); err != nil {
			return nil, fmt.Errorf("scan keyword mention row: %w", err)
		}
		out[keyword] = mentions
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword mention rows: %w", err)
	}
	return out, nil
}

// UpdateTrendingScores writes scores in one transaction.
func (p *Pool) UpdateTrendingScores(ctx context.Context, scores map[int64]float64) (int, error) {
	if len(scores) == 0 {
		return 0, nil
	}
	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `UPDATE news.articles SET trending_score = $2, updated_at = NOW() WHERE id = $1`
	updated := 0
	for id, score := range scores {
		tag, err := tx.Exec(ctx, q, id, score)
		if err != nil {
			return 0, fmt.Errorf("update trending score for article %d: %w", id, err)
		}
		updated += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit trending scores: %w", err)
	}
	return updated, nil
}
