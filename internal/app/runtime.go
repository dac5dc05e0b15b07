package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newswire/internal/alerts"
	"horse.fit/newswire/internal/cli"
	"horse.fit/newswire/internal/config"
	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/dedup"
	"horse.fit/newswire/internal/enrich"
	"horse.fit/newswire/internal/ingest"
	"horse.fit/newswire/internal/logging"
	"horse.fit/newswire/internal/metrics"
	"horse.fit/newswire/internal/reader"
)

const backfillMaxChars = 4000

// environment is what every database-backed command starts from.
type environment struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func loadEnvironment(envLoader *cli.EnvLoader) (*environment, error) {
	if envLoader != nil {
		envLoader.LoadOptional()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel, logging.WithFile(logging.FileSink{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAgeDays: cfg.LogFileMaxAgeDays,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &environment{cfg: cfg, logger: logger}, nil
}

func (e *environment) connect(ctx context.Context) (*db.Pool, error) {
	pool, err := db.NewPool(ctx, e.cfg)
	if err != nil {
		e.logger.Error().Err(err).Msg("database connection failed")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func (e *environment) detectorOptions() dedup.Options {
	return dedup.Options{
		Lookback:            e.cfg.DedupLookback,
		SimilarityThreshold: e.cfg.DedupSimilarityThreshold,
		RecentSample:        e.cfg.DedupRecentSample,
		BucketLimit:         e.cfg.DedupBucketLimit,
		SameSourceOnly:      e.cfg.DedupSameSourceOnly,
		PreferSameSource:    e.cfg.DedupPreferSameSource,
	}
}

func (e *environment) backfill() *enrich.Backfill {
	var sources []enrich.ContentSource
	if e.cfg.BackfillFetchEnabled {
		sources = append(sources, enrich.ReaderSource{
			Fetcher:  reader.NewFetcher(reader.FetchOptions{Timeout: e.cfg.BackfillFetchTimeout}),
			MaxChars: backfillMaxChars,
		})
	}
	if strings.TrimSpace(e.cfg.OpenAIAPIKey) != "" {
		sources = append(sources, enrich.NewLLMSource(e.cfg.OpenAIAPIKey, e.cfg.OpenAIBaseURL, e.cfg.OpenAIModel))
	}

	// Fetching can take longer than a classifier call.
	timeout := e.cfg.EnrichTimeout
	if e.cfg.BackfillFetchEnabled && e.cfg.BackfillFetchTimeout > timeout {
		timeout = e.cfg.BackfillFetchTimeout
	}
	return enrich.NewBackfill(e.cfg.ContentMinLength, timeout, e.logger, sources...)
}

func (e *environment) notifier(pool *db.Pool) *alerts.Notifier {
	senders := []alerts.Sender{alerts.NewLogSender(e.logger)}
	if strings.TrimSpace(e.cfg.TelegramBotToken) != "" {
		senders = append(senders, alerts.NewTelegramSender(e.cfg.TelegramBotToken, e.cfg.TelegramChatID))
	}
	notifier := alerts.NewNotifier(pool, e.logger, senders...)
	notifier.MaxAttempts = e.cfg.NotifyMaxAttempts
	return notifier
}

func (e *environment) ingestService(pool *db.Pool, collector *metrics.Collector) *ingest.Service {
	deps := ingest.Deps{
		Store:    ingest.PoolStore(pool),
		Detector: dedup.NewDetector(e.detectorOptions(), e.logger),
		Backfill: e.backfill(),
		Classifiers: enrich.Classifiers{
			Sentiment: enrich.NewLexiconSentiment(),
			Geo:       enrich.NewLexiconGeo(),
			Timeout:   e.cfg.EnrichTimeout,
		},
		Dispatcher: alerts.NewDispatcher(e.logger),
		Ledger:     ingest.NewPoolLedger(pool),
		Metrics:    collector,
	}
	if e.cfg.NotifyAfterCommit {
		deps.Notifier = e.notifier(pool)
	}

	opts := ingest.DefaultOptions()
	opts.KeywordLimit = e.cfg.KeywordLimit
	opts.MaxErrors = e.cfg.IngestMaxErrors
	opts.PrepareConcurrency = e.cfg.PrepareConcurrency
	opts.NotifyAfterCommit = e.cfg.NotifyAfterCommit

	return ingest.NewService(deps, opts, e.logger)
}

func failf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return 1
}
