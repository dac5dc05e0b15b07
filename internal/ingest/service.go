// Package ingest turns batches of scraped candidates into stored articles:
// dedup, enrichment, staging and alert dispatch inside one unit of work.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/alerts"
	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/dedup"
	"horse.fit/newswire/internal/enrich"
	"horse.fit/newswire/internal/fingerprint"
	"horse.fit/newswire/internal/globaltime"
	"horse.fit/newswire/internal/metrics"
	"horse.fit/newswire/internal/textnorm"
)

const (
	stageSavepoint = "ingest_stage"
	alertSavepoint = "ingest_alerts"
)

type Options struct {
	KeywordLimit       int
	MaxErrors          int
	PrepareConcurrency int
	NotifyAfterCommit  bool
	NotifyLimit        int
	TriggeredBy        string
}

func DefaultOptions() Options {
	return Options{
		KeywordLimit:       8,
		MaxErrors:          100,
		PrepareConcurrency: 4,
		NotifyAfterCommit:  true,
		NotifyLimit:        100,
	}
}

// Deps are the collaborators of a Service. Store is required; nil
// Detector, Backfill and Dispatcher get defaults, the rest are optional.
type Deps struct {
	Store       Store
	Detector    *dedup.Detector
	Backfill    *enrich.Backfill
	Classifiers enrich.Classifiers
	Dispatcher  *alerts.Dispatcher
	Notifier    PendingNotifier
	Ledger      RunLedger
	Metrics     *metrics.Collector
}

type Service struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger

	// mu keeps this process to one batch at a time; Store.Begin serializes
	// across processes.
	mu sync.Mutex
}

func NewService(deps Deps, opts Options, logger zerolog.Logger) *Service {
	if deps.Detector == nil {
		deps.Detector = dedup.NewDetector(dedup.DefaultOptions(), logger)
	}
	if deps.Backfill == nil {
		deps.Backfill = enrich.NewBackfill(enrich.DefaultMinContentLength, 0, logger)
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = alerts.NewDispatcher(logger)
	}
	opts.KeywordLimit = textnorm.ClampKeywordLimit(opts.KeywordLimit)
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultOptions().MaxErrors
	}
	if opts.PrepareConcurrency <= 0 {
		opts.PrepareConcurrency = 1
	}
	if opts.NotifyLimit <= 0 {
		opts.NotifyLimit = DefaultOptions().NotifyLimit
	}
	return &Service{deps: deps, opts: opts, logger: logger}
}

// RunOptions adjust a single batch.
type RunOptions struct {
	// DryRun evaluates the batch and rolls it back; no run row is written.
	DryRun      bool
	TriggeredBy string
}

func (s *Service) IngestBatch(ctx context.Context, candidates []Candidate) (BatchResult, error) {
	return s.IngestBatchWith(ctx, candidates, RunOptions{})
}

// IngestBatchWith processes candidates in input order and commits once.
// Item-scoped failures land in BatchResult.Errors; any other error rolls the
// whole batch back and is returned. When ctx ends mid-batch no further
// candidates are started and the staged portion is still committed.
func (s *Service) IngestBatchWith(ctx context.Context, candidates []Candidate, run RunOptions) (BatchResult, error) {
	if s == nil || s.deps.Store == nil {
		return BatchResult{}, ErrNotInitialized
	}

	startedAt := globaltime.UTC()
	b := &batch{
		maxErrors: s.opts.MaxErrors,
		result: BatchResult{
			BatchID:        uuid.NewString(),
			Received:       len(candidates),
			Errors:         []string{},
			DuplicateTypes: make(map[string]int),
			DryRun:         run.DryRun,
		},
	}
	// Store calls run detached from cancellation; ctx only gates new candidates.
	dbCtx := context.WithoutCancel(ctx)
	logger := s.logger.With().Str("batch_id", b.result.BatchID).Logger()

	triggeredBy := run.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = s.opts.TriggeredBy
	}
	if s.deps.Ledger != nil && !run.DryRun {
		runID, err := s.deps.Ledger.StartRun(dbCtx, b.result.BatchID, triggeredBy, len(candidates), startedAt)
		if err != nil {
			return b.result, err
		}
		b.result.RunID = runID
		logger = logger.With().Int64("run_id", runID).Logger()
	}

	items := prepareBatch(candidates, s.opts.PrepareConcurrency)

	s.mu.Lock()
	err := s.runBatch(ctx, dbCtx, items, b, logger, run.DryRun)
	s.mu.Unlock()

	finishedAt := globaltime.UTC()
	status := "completed"
	if err != nil {
		status = "failed"
		b.result.Saved = 0
		b.result.SavedIDs = nil
		b.result.AlertsTriggered = 0
		if s.deps.Ledger != nil && b.result.RunID != 0 {
			if markErr := s.deps.Ledger.FailRun(dbCtx, b.result.RunID, countsOf(b.result), err, finishedAt); markErr != nil {
				err = fmt.Errorf("%w (also failed to mark run failed: %v)", err, markErr)
			}
		}
		logger.Error().Err(err).Int("received", b.result.Received).Msg("ingest batch rolled back")
	} else {
		if s.deps.Ledger != nil && b.result.RunID != 0 {
			summary := strings.Join(b.result.Errors, "\n")
			if markErr := s.deps.Ledger.CompleteRun(dbCtx, b.result.RunID, countsOf(b.result), summary, finishedAt); markErr != nil {
				logger.Warn().Err(markErr).Msg("failed to mark ingest run completed")
			}
		}
		if !run.DryRun {
			s.notifyAfterCommit(dbCtx, b.result, logger)
		}
		logger.Info().
			Int("received", b.result.Received).
			Int("saved", b.result.Saved).
			Int("duplicates", b.result.Duplicates).
			Int("skipped", b.result.Skipped).
			Int("alerts_triggered", b.result.AlertsTriggered).
			Int("error_count", b.result.ErrorCount).
			Bool("truncated", b.result.Truncated).
			Bool("dry_run", run.DryRun).
			Msg("ingest batch finished")
	}

	s.deps.Metrics.ObserveBatch(metrics.BatchOutcome{
		Status:          status,
		Saved:           b.result.Saved,
		Duplicates:      b.result.Duplicates,
		Skipped:         b.result.Skipped,
		Errors:          b.result.ErrorCount,
		AlertsTriggered: b.result.AlertsTriggered,
		DuplicateTypes:  b.result.DuplicateTypes,
		Duration:        finishedAt.Sub(startedAt),
		FinishedAt:      finishedAt,
	})
	return b.result, err
}

func (s *Service) runBatch(ctx, dbCtx context.Context, items []prepared, b *batch, logger zerolog.Logger, dryRun bool) error {
	uow, err := s.deps.Store.Begin(dbCtx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	rollback := func(cause error) error {
		if rbErr := uow.Rollback(dbCtx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", cause, rbErr)
		}
		return cause
	}

	rules, err := uow.ActiveAlertRules(dbCtx)
	if err != nil {
		return rollback(err)
	}
	matcher := alerts.NewMatcher(rules)

	for i, item := range items {
		if ctx.Err() != nil {
			b.result.Truncated = true
			b.result.Remaining = len(items) - i
			logger.Warn().
				Err(ctx.Err()).
				Int("remaining", b.result.Remaining).
				Msg("batch deadline reached; committing staged items")
			break
		}
		if err := s.processItem(dbCtx, uow, matcher, item, b, logger); err != nil {
			return rollback(err)
		}
	}

	if dryRun {
		if err := uow.Rollback(dbCtx); err != nil {
			return fmt.Errorf("roll back dry run: %w", err)
		}
		return nil
	}
	if err := uow.Commit(dbCtx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// processItem takes one candidate through its state machine. A returned
// error is batch-fatal; item-scoped problems are recorded on b instead.
func (s *Service) processItem(ctx context.Context, uow UnitOfWork, matcher *alerts.Matcher, item prepared, b *batch, logger zerolog.Logger) error {
	log := logger.With().Int("item", item.index+1).Str("source", item.sourceName).Logger()

	if item.err != nil {
		b.skip(item, item.err)
		log.Warn().Err(item.err).Msg("candidate rejected")
		return nil
	}

	src, found, err := uow.SourceByName(ctx, item.sourceName)
	if err != nil {
		return err
	}
	if !found {
		b.skip(item, fmt.Errorf("%w: %q", ErrSourceNotFound, item.sourceName))
		log.Warn().Msg("skipping candidate from unknown source")
		return nil
	}
	if !src.Active {
		log.Warn().Int64("source_id", src.ID).Msg("source is inactive")
	}

	detection, err := s.deps.Detector.Check(ctx, uow, dedup.Item{
		Title:       item.title,
		Content:     item.content,
		Link:        item.link,
		SourceID:    src.ID,
		ExtractedAt: item.extractedAt,
	})
	if err != nil {
		if errors.Is(err, dedup.ErrEmptyTitle) {
			b.skip(item, ErrEmptyTitle)
			return nil
		}
		return fmt.Errorf("duplicate check for item %d: %w", item.index+1, err)
	}
	if detection.IsDuplicate {
		b.result.Duplicates++
		b.result.DuplicateTypes[string(detection.DuplicateType)]++
		ev := log.Info().
			Str("duplicate_type", string(detection.DuplicateType)).
			Float64("similarity", detection.SimilarityScore).
			Str("link", item.link)
		if detection.MatchedID != nil {
			ev = ev.Int64("matched_id", *detection.MatchedID)
		}
		ev.Msg("duplicate rejected")
		return nil
	}

	article := s.buildArticle(ctx, item, src, log)

	if err := uow.Savepoint(ctx, stageSavepoint); err != nil {
		return err
	}
	if _, err := uow.StageArticle(ctx, article); err != nil {
		if !errors.Is(err, db.ErrDuplicateLink) {
			return fmt.Errorf("stage item %d: %w", item.index+1, err)
		}
		if rbErr := uow.RollbackToSavepoint(ctx, stageSavepoint); rbErr != nil {
			return rbErr
		}
		b.skip(item, err)
		return nil
	}
	if err := uow.BumpKeywordTrends(ctx, article.Keywords, item.extractedAt); err != nil {
		return err
	}
	if err := uow.ReleaseSavepoint(ctx, stageSavepoint); err != nil {
		return err
	}
	b.result.Saved++
	b.result.SavedIDs = append(b.result.SavedIDs, article.ID)

	if matcher.RuleCount() > 0 {
		if err := uow.Savepoint(ctx, alertSavepoint); err != nil {
			return err
		}
		triggered, err := s.deps.Dispatcher.Dispatch(ctx, uow, matcher, article, src.Name)
		if err != nil {
			if rbErr := uow.RollbackToSavepoint(ctx, alertSavepoint); rbErr != nil {
				return rbErr
			}
			b.itemError(item, fmt.Errorf("alert dispatch: %w", err))
			log.Warn().Err(err).Int64("article_id", article.ID).Msg("alert dispatch failed; article kept")
			return nil
		}
		if err := uow.ReleaseSavepoint(ctx, alertSavepoint); err != nil {
			return err
		}
		b.result.AlertsTriggered += triggered
	}

	log.Debug().Int64("article_id", article.ID).Msg("article staged")
	return nil
}

// buildArticle backfills, classifies and fingerprints a unique candidate.
func (s *Service) buildArticle(ctx context.Context, item prepared, src db.Source, log zerolog.Logger) *db.Article {
	content := item.content
	keywordText := item.title + " " + item.content
	if s.deps.Backfill.NeedsBackfill(content) {
		out := s.deps.Backfill.Generate(ctx, enrich.BackfillRequest{
			Title:    item.title,
			Existing: item.content,
			Category: item.category,
			Link:     item.link,
		})
		if out.Fallback {
			s.deps.Metrics.ObserveFallback("backfill")
			log.Info().Str("reason", out.Reason).Msg("content backfilled from template")
		} else {
			keywordText = item.title + " " + out.Value
		}
		content = out.Value
	}

	article := &db.Article{
		Title:       item.title,
		Content:     content,
		Link:        optional(item.link),
		Category:    item.category,
		SourceID:    src.ID,
		PublishedAt: item.publishedAt,
		ExtractedAt: item.extractedAt,
		Keywords:    textnorm.Keywords(keywordText, item.language, s.opts.KeywordLimit),
		Language:    optional(item.language),
		ImageURL:    optional(item.imageURL),
	}

	sentiment := s.deps.Classifiers.ClassifySentiment(ctx, item.title, content)
	if sentiment.Fallback {
		s.deps.Metrics.ObserveFallback("sentiment")
		log.Warn().Str("reason", sentiment.Reason).Msg("sentiment classification fell back")
	} else {
		article.SentimentLabel = optional(sentiment.Value.Label)
		article.SentimentConfidence = &sentiment.Value.Confidence
	}

	geo := s.deps.Classifiers.ClassifyGeo(ctx, item.title, content)
	if geo.Fallback {
		s.deps.Metrics.ObserveFallback("geo")
		log.Warn().Str("reason", geo.Reason).Msg("geographic classification fell back")
	} else {
		article.GeographicType = optional(geo.Value.Type)
		article.GeographicConfidence = &geo.Value.Confidence
	}

	// Hashes cover the scraped text so a re-crawl of the same item matches
	// even when the stored content was backfilled.
	fp := fingerprint.Compute(item.title, item.content)
	article.TitleHash = fp.TitleHash
	article.ContentHash = optional(fp.ContentHash)
	article.SimilarityHash = fp.SimilarityHash
	return article
}

func (s *Service) notifyAfterCommit(ctx context.Context, result BatchResult, logger zerolog.Logger) {
	if s.deps.Notifier == nil || !s.opts.NotifyAfterCommit || result.AlertsTriggered == 0 {
		return
	}
	sent, err := s.deps.Notifier.NotifyPending(ctx, s.opts.NotifyLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("post-commit alert notification failed")
		return
	}
	logger.Info().Int("sent", sent.Sent).Int("failed", sent.Failed).Msg("alerts notified")
}

type batch struct {
	result    BatchResult
	maxErrors int
}

func (b *batch) skip(item prepared, err error) {
	b.result.Skipped++
	b.itemError(item, err)
}

func (b *batch) itemError(item prepared, err error) {
	b.result.ErrorCount++
	if len(b.result.Errors) >= b.maxErrors {
		return
	}
	b.result.Errors = append(b.result.Errors, fmt.Sprintf("item %d (%s): %v", item.index+1, item.label(), err))
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
