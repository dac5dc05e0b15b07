package ingest

import (
	"context"
	"time"

	"horse.fit/newswire/internal/alerts"
	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/dedup"
)

// UnitOfWork is one batch transaction. Staged articles must be visible to
// the dedup lookups of the same unit of work before Commit.
type UnitOfWork interface {
	dedup.Lookup
	alerts.Store

	SourceByName(ctx context.Context, name string) (db.Source, bool, error)
	StageArticle(ctx context.Context, article *db.Article) (int64, error)
	BumpKeywordTrends(ctx context.Context, keywords []string, day time.Time) error
	ActiveAlertRules(ctx context.Context) ([]db.AlertRule, error)

	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens units of work. Begin must serialize writers: it returns only
// once no other unit of work can stage articles.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

type StoreFunc func(ctx context.Context) (UnitOfWork, error)

func (f StoreFunc) Begin(ctx context.Context) (UnitOfWork, error) {
	return f(ctx)
}

// PoolStore opens Postgres units of work holding the article writer lock.
func PoolStore(pool *db.Pool) Store {
	return StoreFunc(func(ctx context.Context) (UnitOfWork, error) {
		uow, err := pool.BeginUnitOfWork(ctx)
		if err != nil {
			return nil, err
		}
		return uow, nil
	})
}

// PendingNotifier is satisfied by *alerts.Notifier.
type PendingNotifier interface {
	NotifyPending(ctx context.Context, limit int) (alerts.NotifyResult, error)
}
