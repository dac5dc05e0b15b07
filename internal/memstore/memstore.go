// Package memstore is an in-memory article store with the same unit of work
// semantics as the Postgres one: staged rows are visible to lookups in the
// same unit of work, savepoints nest, and one writer runs at a time.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/dedup"
	"horse.fit/newswire/internal/globaltime"
	"horse.fit/newswire/internal/ingest"
)

var ErrClosed = errors.New("unit of work already finished")

type trendKey struct {
	keyword string
	day     time.Time
}

type data struct {
	nextArticleID int64
	nextTriggerID int64
	sources       map[string]db.Source
	articles      []db.Article
	rules         []db.AlertRule
	triggers      []db.AlertTrigger
	trends        map[trendKey]int64
}

func newData() *data {
	return &data{
		sources: make(map[string]db.Source),
		trends:  make(map[trendKey]int64),
	}
}

// clone copies every table. Article fields behind pointers are replaced,
// never mutated in place, so sharing them is safe.
func (d *data) clone() *data {
	out := &data{
		nextArticleID: d.nextArticleID,
		nextTriggerID: d.nextTriggerID,
		sources:       make(map[string]db.Source, len(d.sources)),
		articles:      append([]db.Article(nil), d.articles...),
		rules:         append([]db.AlertRule(nil), d.rules...),
		triggers:      append([]db.AlertTrigger(nil), d.triggers...),
		trends:        make(map[trendKey]int64, len(d.trends)),
	}
	for k, v := range d.sources {
		out.sources[k] = v
	}
	for k, v := range d.trends {
		out.trends[k] = v
	}
	return out
}

// Store holds committed state. The zero value is not usable; call New.
type Store struct {
	writer sync.Mutex

	mu        sync.Mutex
	committed *data
	nextRunID int64
	runs      []db.IngestRun

	// StageHook, when set, runs before each staged insert; a non-nil error
	// is returned from StageArticle as-is.
	StageHook func(article *db.Article) error
	// TriggerErr, when set, fails RecordAlertTrigger.
	TriggerErr error
	// LookupErr, when set, fails every dedup lookup.
	LookupErr error
	// CommitErr, when set, fails Commit (the unit of work is discarded).
	CommitErr error
}

func New() *Store {
	return &Store{committed: newData()}
}

func (s *Store) Begin(ctx context.Context) (ingest.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.writer.Lock()
	s.mu.Lock()
	work := s.committed.clone()
	s.mu.Unlock()
	return &UnitOfWork{store: s, work: work, savepoints: make(map[string]*data)}, nil
}

func (s *Store) AddSource(name string, active bool) db.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := db.Source{ID: int64(len(s.committed.sources) + 1), Name: name, Active: active}
	s.committed.sources[name] = src
	return src
}

func (s *Store) AddAlertRule(rule db.AlertRule) db.AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule.ID = int64(len(s.committed.rules) + 1)
	s.committed.rules = append(s.committed.rules, rule)
	return rule
}

// AddArticle commits article directly, bypassing the unit of work.
func (s *Store) AddArticle(article db.Article) db.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.nextArticleID++
	article.ID = s.committed.nextArticleID
	s.committed.articles = append(s.committed.articles, article)
	return article
}

func (s *Store) Articles() []db.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Article(nil), s.committed.articles...)
}

func (s *Store) Triggers() []db.AlertTrigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.AlertTrigger(nil), s.committed.triggers...)
}

// Mentions sums committed daily mentions of keyword.
func (s *Store) Mentions(keyword string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for k, v := range s.committed.trends {
		if k.keyword == keyword {
			total += v
		}
	}
	return total
}

// UnitOfWork implements ingest.UnitOfWork over a private copy of the store.
type UnitOfWork struct {
	store      *Store
	work       *data
	savepoints map[string]*data
	done       bool
}

func (u *UnitOfWork) check() error {
	if u.done {
		return ErrClosed
	}
	return nil
}

func (u *UnitOfWork) SourceByName(_ context.Context, name string) (db.Source, bool, error) {
	if err := u.check(); err != nil {
		return db.Source{}, false, err
	}
	src, ok := u.work.sources[name]
	return src, ok, nil
}

func (u *UnitOfWork) StageArticle(_ context.Context, article *db.Article) (int64, error) {
	if err := u.check(); err != nil {
		return 0, err
	}
	if article == nil {
		return 0, fmt.Errorf("article is nil")
	}
	if hook := u.store.StageHook; hook != nil {
		if err := hook(article); err != nil {
			return 0, err
		}
	}
	if article.Link != nil {
		for _, existing := range u.work.articles {
			if existing.Link != nil && *existing.Link == *article.Link {
				return 0, fmt.Errorf("%w: %s", db.ErrDuplicateLink, *article.Link)
			}
		}
	}
	now := globaltime.UTC()
	u.work.nextArticleID++
	article.ID = u.work.nextArticleID
	article.CreatedAt = now
	article.UpdatedAt = now
	u.work.articles = append(u.work.articles, *article)
	return article.ID, nil
}

func (u *UnitOfWork) BumpKeywordTrends(_ context.Context, keywords []string, day time.Time) error {
	if err := u.check(); err != nil {
		return err
	}
	day = day.UTC().Truncate(24 * time.Hour)
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup || kw == "" {
			continue
		}
		seen[kw] = struct{}{}
		u.work.trends[trendKey{keyword: kw, day: day}]++
	}
	return nil
}

func (u *UnitOfWork) ActiveAlertRules(context.Context) ([]db.AlertRule, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	var out []db.AlertRule
	for _, r := range u.work.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (u *UnitOfWork) RecordAlertTrigger(_ context.Context, trigger *db.AlertTrigger) (bool, error) {
	if err := u.check(); err != nil {
		return false, err
	}
	if u.store.TriggerErr != nil {
		return false, u.store.TriggerErr
	}
	for _, t := range u.work.triggers {
		if t.RuleID == trigger.RuleID && t.ArticleID == trigger.ArticleID {
			return false, nil
		}
	}
	u.work.nextTriggerID++
	trigger.ID = u.work.nextTriggerID
	u.work.triggers = append(u.work.triggers, *trigger)
	return true, nil
}

func (u *UnitOfWork) MarkArticleAlert(_ context.Context, articleID int64, urgency string) error {
	if err := u.check(); err != nil {
		return err
	}
	for i := range u.work.articles {
		if u.work.articles[i].ID == articleID {
			level := urgency
			u.work.articles[i].IsAlert = true
			u.work.articles[i].UrgencyLevel = &level
			return nil
		}
	}
	return fmt.Errorf("article %d not found", articleID)
}

func (u *UnitOfWork) Savepoint(_ context.Context, name string) error {
	if err := u.check(); err != nil {
		return err
	}
	u.savepoints[name] = u.work.clone()
	return nil
}

func (u *UnitOfWork) RollbackToSavepoint(_ context.Context, name string) error {
	if err := u.check(); err != nil {
		return err
	}
	snap, ok := u.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	u.work = snap.clone()
	return nil
}

func (u *UnitOfWork) ReleaseSavepoint(_ context.Context, name string) error {
	if err := u.check(); err != nil {
		return err
	}
	if _, ok := u.savepoints[name]; !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	delete(u.savepoints, name)
	return nil
}

func (u *UnitOfWork) Commit(context.Context) error {
	if err := u.check(); err != nil {
		return err
	}
	u.done = true
	defer u.store.writer.Unlock()
	if err := u.store.CommitErr; err != nil {
		return err
	}
	u.store.mu.Lock()
	u.store.committed = u.work
	u.store.mu.Unlock()
	return nil
}

// Rollback discards the unit of work. It is a no-op once finished.
func (u *UnitOfWork) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.writer.Unlock()
	return nil
}

func (u *UnitOfWork) ArticleByLink(_ context.Context, link string) (dedup.StoredArticle, bool, error) {
	if err := u.lookupErr(); err != nil {
		return dedup.StoredArticle{}, false, err
	}
	for _, a := range u.work.articles {
		if a.Link != nil && *a.Link == link {
			return stored(a), true, nil
		}
	}
	return dedup.StoredArticle{}, false, nil
}

func (u *UnitOfWork) ArticleByTitleHash(_ context.Context, titleHash string, w dedup.Window) (dedup.StoredArticle, bool, error) {
	return u.first(w, func(a db.Article) bool { return a.TitleHash == titleHash })
}

func (u *UnitOfWork) ArticleByContentHash(_ context.Context, contentHash string, w dedup.Window) (dedup.StoredArticle, bool, error) {
	return u.first(w, func(a db.Article) bool { return a.ContentHash != nil && *a.ContentHash == contentHash })
}

func (u *UnitOfWork) ArticlesBySimilarityHash(_ context.Context, similarityHash string, w dedup.Window, limit int) ([]dedup.StoredArticle, error) {
	if err := u.lookupErr(); err != nil {
		return nil, err
	}
	return u.windowed(w, limit, func(a db.Article) bool { return a.SimilarityHash == similarityHash }), nil
}

func (u *UnitOfWork) RecentArticles(_ context.Context, w dedup.Window, limit int) ([]dedup.StoredArticle, error) {
	if err := u.lookupErr(); err != nil {
		return nil, err
	}
	return u.windowed(w, limit, func(db.Article) bool { return true }), nil
}

func (u *UnitOfWork) lookupErr() error {
	if err := u.check(); err != nil {
		return err
	}
	return u.store.LookupErr
}

func (u *UnitOfWork) first(w dedup.Window, match func(db.Article) bool) (dedup.StoredArticle, bool, error) {
	if err := u.lookupErr(); err != nil {
		return dedup.StoredArticle{}, false, err
	}
	rows := u.windowed(w, 1, match)
	if len(rows) == 0 {
		return dedup.StoredArticle{}, false, nil
	}
	return rows[0], true, nil
}

// windowed mirrors the SQL lookups: rows inside the window, preferred source
// first, newest first, id descending; limit <= 0 means all.
func (u *UnitOfWork) windowed(w dedup.Window, limit int, match func(db.Article) bool) []dedup.StoredArticle {
	var rows []db.Article
	for _, a := range u.work.articles {
		if a.ExtractedAt.Before(w.Since) {
			continue
		}
		if w.SourceID > 0 && a.SourceID != w.SourceID {
			continue
		}
		if match(a) {
			rows = append(rows, a)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if w.PreferSourceID > 0 {
			pi, pj := rows[i].SourceID == w.PreferSourceID, rows[j].SourceID == w.PreferSourceID
			if pi != pj {
				return pi
			}
		}
		if !rows[i].ExtractedAt.Equal(rows[j].ExtractedAt) {
			return rows[i].ExtractedAt.After(rows[j].ExtractedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]dedup.StoredArticle, 0, len(rows))
	for _, a := range rows {
		out = append(out, stored(a))
	}
	return out
}

func stored(a db.Article) dedup.StoredArticle {
	return dedup.StoredArticle{ID: a.ID, Title: a.Title, SourceID: a.SourceID, ExtractedAt: a.ExtractedAt}
}
