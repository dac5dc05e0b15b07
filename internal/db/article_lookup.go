package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"horse.fit/newswire/internal/dedup"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func storedArticleSelect() sq.SelectBuilder {
	return psql.Select("id", "title", "source_id", "extracted_at").From("news.articles")
}

// windowed narrows b to w and orders newest first, preferred source first.
func windowed(b sq.SelectBuilder, w dedup.Window) sq.SelectBuilder {
	if !w.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"extracted_at": w.Since.UTC()})
	}
	if w.SourceID > 0 {
		b = b.Where(sq.Eq{"source_id": w.SourceID})
	}
	if w.PreferSourceID > 0 {
		b = b.OrderByClause("(source_id = ?) DESC", w.PreferSourceID)
	}
	return b.OrderBy("extracted_at DESC", "id DESC")
}

func (u *UnitOfWork) ArticleByLink(ctx context.Context, link string) (dedup.StoredArticle, bool, error) {
	b := storedArticleSelect().Where(sq.Eq{"link": link}).OrderBy("id").Limit(1)
	return u.findOne(ctx, b, "link")
}

func (u *UnitOfWork) ArticleByTitleHash(ctx context.Context, titleHash string, w dedup.Window) (dedup.StoredArticle, bool, error) {
	b := windowed(storedArticleSelect().Where(sq.Eq{"title_hash": titleHash}), w).Limit(1)
	return u.findOne(ctx, b, "title_hash")
}

func (u *UnitOfWork) ArticleByContentHash(ctx context.Context, contentHash string, w dedup.Window) (dedup.StoredArticle, bool, error) {
	if contentHash == "" {
		return dedup.StoredArticle{}, false, nil
	}
	b := windowed(storedArticleSelect().Where(sq.Eq{"content_hash": contentHash}), w).Limit(1)
	return u.findOne(ctx, b, "content_hash")
}

func (u *UnitOfWork) ArticlesBySimilarityHash(ctx context.Context, similarityHash string, w dedup.Window, limit int) ([]dedup.StoredArticle, error) {
	b := windowed(storedArticleSelect().Where(sq.Eq{"similarity_hash": similarityHash}), w)
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return u.findMany(ctx, b, "similarity_hash")
}

func (u *UnitOfWork) RecentArticles(ctx context.Context, w dedup.Window, limit int) ([]dedup.StoredArticle, error) {
	if limit <= 0 {
		return nil, nil
	}
	b := windowed(storedArticleSelect(), w).Limit(uint64(limit))
	return u.findMany(ctx, b, "recent")
}

func (u *UnitOfWork) findOne(ctx context.Context, b sq.SelectBuilder, label string) (dedup.StoredArticle, bool, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return dedup.StoredArticle{}, false, fmt.Errorf("build %s lookup: %w", label, err)
	}

	var row dedup.StoredArticle
	err = u.raw.QueryRow(ctx, query, args...).Scan(&row.ID, &row.Title, &row.SourceID, &row.ExtractedAt)
	if err != nil {
		if IsNoRows(err) {
			return dedup.StoredArticle{}, false, nil
		}
		return dedup.StoredArticle{}, false, fmt.Errorf("find article by %s: %w", label, err)
	}
	return row, true, nil
}

func (u *UnitOfWork) findMany(ctx context.Context, b sq.SelectBuilder, label string) ([]dedup.StoredArticle, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", label, err)
	}

	rows, err := u.raw.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles by %s: %w", label, err)
	}
	defer rows.Close()

	out := make([]dedup.StoredArticle, 0, 16)
	for rows.Next() {
		var row dedup.StoredArticle
		if err := rows.Scan(&row.ID, &row.Title, &row.SourceID, &row.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scan %s article row: %w", label, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s article rows: %w", label, err)
	}
	return out, nil
}
