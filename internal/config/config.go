package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	LogFile           string `envconfig:"LOG_FILE" default:""`
	LogFileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"50"`
	LogFileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"5"`
	LogFileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"14"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"NW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NW_DB_MAX_CONNS" default:"8"`

	DedupLookback            time.Duration `envconfig:"DEDUP_LOOKBACK" default:"72h"`
	DedupSimilarityThreshold float64       `envconfig:"DEDUP_SIMILARITY_THRESHOLD" default:"0.85"`
	DedupRecentSample        int           `envconfig:"DEDUP_RECENT_SAMPLE" default:"100"`
	DedupBucketLimit         int           `envconfig:"DEDUP_BUCKET_LIMIT" default:"0"`
	DedupSameSourceOnly      bool          `envconfig:"DEDUP_SAME_SOURCE_ONLY" default:"false"`
	DedupPreferSameSource    bool          `envconfig:"DEDUP_PREFER_SAME_SOURCE" default:"true"`

	ContentMinLength     int           `envconfig:"CONTENT_MIN_LENGTH" default:"100"`
	KeywordLimit         int           `envconfig:"KEYWORD_LIMIT" default:"8"`
	EnrichTimeout        time.Duration `envconfig:"ENRICH_TIMEOUT" default:"5s"`
	BackfillFetchEnabled bool          `envconfig:"BACKFILL_FETCH_ENABLED" default:"true"`
	BackfillFetchTimeout time.Duration `envconfig:"BACKFILL_FETCH_TIMEOUT" default:"8s"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`

	TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramChatID    string `envconfig:"TELEGRAM_CHAT_ID" default:""`
	NotifyAfterCommit bool   `envconfig:"NOTIFY_AFTER_COMMIT" default:"true"`
	NotifyMaxAttempts int    `envconfig:"NOTIFY_MAX_ATTEMPTS" default:"5"`

	IngestMaxErrors    int `envconfig:"INGEST_MAX_ERRORS" default:"100"`
	PrepareConcurrency int `envconfig:"PREPARE_CONCURRENCY" default:"4"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("NW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NW_DB_MIN_CONNS (%d) cannot exceed NW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.LogFileMaxSizeMB < 1 {
		return fmt.Errorf("LOG_FILE_MAX_SIZE_MB must be >= 1")
	}
	if c.LogFileMaxBackups < 0 || c.LogFileMaxAgeDays < 0 {
		return fmt.Errorf("LOG_FILE_MAX_BACKUPS and LOG_FILE_MAX_AGE_DAYS must be >= 0")
	}
	if c.DedupLookback <= 0 {
		return fmt.Errorf("DEDUP_LOOKBACK must be > 0")
	}
	if c.DedupSimilarityThreshold <= 0 || c.DedupSimilarityThreshold > 1 {
		return fmt.Errorf("DEDUP_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.DedupRecentSample < 1 {
		return fmt.Errorf("DEDUP_RECENT_SAMPLE must be >= 1")
	}
	if c.DedupBucketLimit < 0 {
		return fmt.Errorf("DEDUP_BUCKET_LIMIT must be >= 0")
	}
	if c.ContentMinLength < 1 {
		return fmt.Errorf("CONTENT_MIN_LENGTH must be >= 1")
	}
	if c.KeywordLimit < 5 || c.KeywordLimit > 10 {
		return fmt.Errorf("KEYWORD_LIMIT must be between 5 and 10")
	}
	if c.EnrichTimeout <= 0 {
		return fmt.Errorf("ENRICH_TIMEOUT must be > 0")
	}
	if c.BackfillFetchTimeout <= 0 {
		return fmt.Errorf("BACKFILL_FETCH_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) != "" && strings.TrimSpace(c.OpenAIModel) == "" {
		return fmt.Errorf("OPENAI_MODEL is required when OPENAI_API_KEY is set")
	}
	if c.NotifyMaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be >= 1")
	}
	if c.IngestMaxErrors < 1 {
		return fmt.Errorf("INGEST_MAX_ERRORS must be >= 1")
	}
	if c.PrepareConcurrency < 1 {
		return fmt.Errorf("PREPARE_CONCURRENCY must be >= 1")
	}
	return nil
}
