package dedup

import (
	"context"
	"time"
)

// StoredArticle is the slice of a persisted article the detector compares against.
type StoredArticle struct {
	ID          int64
	Title       string
	SourceID    int64
	ExtractedAt time.Time
}

// Window bounds hash and similarity lookups. SourceID > 0 restricts results to
// one source; PreferSourceID > 0 orders that source's rows first.
type Window struct {
	Since          time.Time
	SourceID       int64
	PreferSourceID int64
}

// Lookup is the read side of the article store as seen by the detector.
// Rows staged earlier in the same unit of work must be visible.
type Lookup interface {
	ArticleByLink(ctx context.Context, link string) (StoredArticle, bool, error)
	ArticleByTitleHash(ctx context.Context, titleHash string, w Window) (StoredArticle, bool, error)
	ArticleByContentHash(ctx context.Context, contentHash string, w Window) (StoredArticle, bool, error)
	ArticlesBySimilarityHash(ctx context.Context, similarityHash string, w Window, limit int) ([]StoredArticle, error)
	RecentArticles(ctx context.Context, w Window, limit int) ([]StoredArticle, error)
}
