package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"horse.fit/newswire/internal/globaltime"
)

// articleWriterLockKey serializes dedup-check-then-stage across processes.
const articleWriterLockKey int64 = 0x6e77_6172_7469

// ErrDuplicateLink is returned by StageArticle when the link already exists.
var ErrDuplicateLink = errors.New("article link already stored")

// UnitOfWork is one batch transaction. Rows staged through it are visible to
// its own lookups immediately and to everyone else only after Commit.
type UnitOfWork struct {
	tx  *gorm.DB
	raw *gormTx
}

// BeginUnitOfWork opens a transaction and takes the article writer lock,
// which is held until Commit or Rollback.
func (p *Pool) BeginUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	tx := p.gdb.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", articleWriterLockKey).Error; err != nil {
		_ = tx.Rollback().Error
		return nil, fmt.Errorf("acquire article writer lock: %w", err)
	}
	return &UnitOfWork{tx: tx, raw: &gormTx{db: tx}}, nil
}

func (u *UnitOfWork) SourceByName(ctx context.Context, name string) (Source, bool, error) {
	var src Source
	err := u.tx.WithContext(ctx).Where("name = ?", name).Take(&src).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Source{}, false, nil
		}
		return Source{}, false, fmt.Errorf("find source %q: %w", name, err)
	}
	return src, true, nil
}

// StageArticle inserts article and fills its ID without committing.
func (u *UnitOfWork) StageArticle(ctx context.Context, article *Article) (int64, error) {
	if article == nil {
		return 0, fmt.Errorf("article is nil")
	}
	if err := u.tx.WithContext(ctx).Create(article).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateLink, derefOr(article.Link, ""))
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return article.ID, nil
}

// BumpKeywordTrends adds one mention per distinct keyword for day.
func (u *UnitOfWork) BumpKeywordTrends(ctx context.Context, keywords []string, day time.Time) error {
	rows := keywordTrendRows(keywords, day)
	if len(rows) == 0 {
		return nil
	}
	err := u.tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "keyword"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"mentions":   gorm.Expr("keyword_trends.mentions + EXCLUDED.mentions"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("bump keyword trends: %w", err)
	}
	return nil
}

func (u *UnitOfWork) ActiveAlertRules(ctx context.Context) ([]AlertRule, error) {
	var rules []AlertRule
	if err := u.tx.WithContext(ctx).Where("active = ?", true).Order("id").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("load active alert rules: %w", err)
	}
	return rules, nil
}

// RecordAlertTrigger inserts trigger unless one already exists for the
// same (rule, article) pair. It reports whether a row was written.
func (u *UnitOfWork) RecordAlertTrigger(ctx context.Context, trigger *AlertTrigger) (bool, error) {
	res := u.tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rule_id"}, {Name: "article_id"}},
		DoNothing: true,
	}).Create(trigger)
	if res.Error != nil {
		return false, fmt.Errorf("insert alert trigger rule_id=%d article_id=%d: %w", trigger.RuleID, trigger.ArticleID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (u *UnitOfWork) MarkArticleAlert(ctx context.Context, articleID int64, urgency string) error {
	res := u.tx.WithContext(ctx).Model(&Article{}).
		Where("id = ?", articleID).
		Updates(map[string]any{"is_alert": true, "urgency_level": urgency})
	if res.Error != nil {
		return fmt.Errorf("flag article %d as alert: %w", articleID, res.Error)
	}
	return nil
}

func (u *UnitOfWork) Savepoint(ctx context.Context, name string) error {
	return u.raw.Savepoint(ctx, name)
}

func (u *UnitOfWork) RollbackToSavepoint(ctx context.Context, name string) error {
	return u.raw.RollbackToSavepoint(ctx, name)
}

func (u *UnitOfWork) ReleaseSavepoint(ctx context.Context, name string) error {
	return u.raw.ReleaseSavepoint(ctx, name)
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	return u.raw.Commit(ctx)
}

func (u *UnitOfWork) Rollback(ctx context.Context) error {
	return u.raw.Rollback(ctx)
}

func keywordTrendRows(keywords []string, day time.Time) []KeywordTrend {
	day = day.UTC().Truncate(24 * time.Hour)
	now := globaltime.UTC()
	seen := make(map[string]struct{}, len(keywords))
	rows := make([]KeywordTrend, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		rows = append(rows, KeywordTrend{Keyword: kw, Day: day, Mentions: 1, UpdatedAt: now})
	}
	return rows
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
