package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ArticleListOptions controls article listing queries.
type ArticleListOptions struct {
	Source     string
	Category   string
	AlertsOnly bool
	// ByTrending orders by trending_score instead of recency.
	ByTrending bool
	From       time.Time
	To         time.Time
	Limit      int
}

// ArticleListItem is used by the articles CLI command.
type ArticleListItem struct {
	ArticleID      int64      `json:"article_id"`
	Title          string     `json:"title"`
	Link           *string    `json:"link,omitempty"`
	Source         string     `json:"source"`
	Category       string     `json:"category"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ExtractedAt    time.Time  `json:"extracted_at"`
	SentimentLabel *string    `json:"sentiment_label,omitempty"`
	GeographicType *string    `json:"geographic_type,omitempty"`
	IsAlert        bool       `json:"is_alert"`
	UrgencyLevel   *string    `json:"urgency_level,omitempty"`
	TrendingScore  float64    `json:"trending_score"`
}

// ListArticles lists stored articles in a UTC extracted_at window.
func (p *Pool) ListArticles(ctx context.Context, opts ArticleListOptions) ([]ArticleListItem, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	from := opts.From.UTC()
	to := opts.To.UTC()
	if !from.Before(to) {
		return nil, fmt.Errorf("from must be before to")
	}

	b := psql.Select(
		"a.id",
		"a.title",
		"a.link",
		"s.name",
		"a.category",
		"a.published_at",
		"a.extracted_at",
		"a.sentiment_label",
		"a.geographic_type",
		"a.is_alert",
		"a.urgency_level",
		"a.trending_score",
	).
		From("news.articles a").
		Join("news.sources s ON s.id = a.source_id").
		Where(sq.GtOrEq{"a.extracted_at": from}).
		Where(sq.Lt{"a.extracted_at": to})

	if source := strings.TrimSpace(opts.Source); source != "" {
		b = b.Where(sq.Eq{"s.name": source})
	}
	if category := strings.TrimSpace(opts.Category); category != "" {
		b = b.Where(sq.Eq{"lower(a.category)": strings.ToLower(category)})
	}
	if opts.AlertsOnly {
		b = b.Where(sq.Eq{"a.is_alert": true})
	}
	if opts.ByTrending {
		b = b.OrderBy("a.trending_score DESC")
	}
	b = b.OrderBy("a.extracted_at DESC", "a.id DESC").Limit(uint64(opts.Limit))

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article list query: %w", err)
	}

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	items := make([]ArticleListItem, 0, opts.Limit)
	for rows.Next() {
		var row ArticleListItem
		if err := rows.Scan(
			&row.ArticleID,
			&row.Title,
			&row.Link,
			&row.Source,
			&row.Category,
			&row.PublishedAt,
			&row.ExtractedAt,
			&row.SentimentLabel,
			&row.GeographicType,
			&row.IsAlert,
			&row.UrgencyLevel,
			&row.TrendingScore,
		); err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}

	return items, nil
}
