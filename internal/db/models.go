package db

import (
	"time"
)

// Source maps news.sources.
type Source struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex:ux_sources_name"`
	URL       string    `gorm:"column:url;type:text;not null;default:''"`
	Active    bool      `gorm:"column:active;type:boolean;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "news.sources" }

// Article maps news.articles. Field names follow the export contract used by
// reporting tooling; do not rename columns.
type Article struct {
	ID                   int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Title                string     `gorm:"column:title;type:text;not null"`
	Content              string     `gorm:"column:content;type:text;not null;default:''"`
	Link                 *string    `gorm:"column:link;type:text"`
	Category             string     `gorm:"column:category;type:text;not null;default:''"`
	SourceID             int64      `gorm:"column:source_id;type:bigint;not null;index:ix_articles_source_extracted,priority:1"`
	PublishedAt          *time.Time `gorm:"column:published_at;type:timestamptz"`
	ExtractedAt          time.Time  `gorm:"column:extracted_at;type:timestamptz;not null;index:ix_articles_extracted_at;index:ix_articles_source_extracted,priority:2"`
	TitleHash            string     `gorm:"column:title_hash;type:char(32);not null"`
	ContentHash          *string    `gorm:"column:content_hash;type:char(32)"`
	SimilarityHash       string     `gorm:"column:similarity_hash;type:char(32);not null"`
	SentimentLabel       *string    `gorm:"column:sentiment_label;type:text"`
	SentimentConfidence  *float64   `gorm:"column:sentiment_confidence;type:double precision"`
	GeographicType       *string    `gorm:"column:geographic_type;type:text"`
	GeographicConfidence *float64   `gorm:"column:geographic_confidence;type:double precision"`
	Keywords             []string   `gorm:"column:keywords;type:jsonb;serializer:json"`
	IsAlert              bool       `gorm:"column:is_alert;type:boolean;not null;default:false"`
	UrgencyLevel         *string    `gorm:"column:urgency_level;type:text"`
	Language             *string    `gorm:"column:language;type:text"`
	ImageURL             *string    `gorm:"column:image_url;type:text"`
	TrendingScore        float64    `gorm:"column:trending_score;type:double precision;not null;default:0"`
	CreatedAt            time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "news.articles" }

// AlertRule maps news.alert_rules.
type AlertRule struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name;type:text;not null;uniqueIndex:ux_alert_rules_name"`
	Keywords     []string  `gorm:"column:keywords;type:jsonb;not null;serializer:json"`
	Categories   []string  `gorm:"column:categories;type:jsonb;serializer:json"`
	Sources      []string  `gorm:"column:sources;type:jsonb;serializer:json"`
	UrgencyLevel string    `gorm:"column:urgency_level;type:text;not null;default:medium"`
	Channels     []string  `gorm:"column:channels;type:jsonb;serializer:json"`
	Target       string    `gorm:"column:target;type:text;not null;default:''"`
	Active       bool      `gorm:"column:active;type:boolean;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (AlertRule) TableName() string { return "news.alert_rules" }

// AlertTrigger maps news.alert_triggers. After insert only the delivery
// bookkeeping columns change.
type AlertTrigger struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	RuleID         int64      `gorm:"column:rule_id;type:bigint;not null;uniqueIndex:ux_alert_triggers_rule_article,priority:1"`
	ArticleID      int64      `gorm:"column:article_id;type:bigint;not null;uniqueIndex:ux_alert_triggers_rule_article,priority:2"`
	MatchedKeyword string     `gorm:"column:matched_keyword;type:text;not null"`
	UrgencyLevel   string     `gorm:"column:urgency_level;type:text;not null"`
	FiredAt        time.Time  `gorm:"column:fired_at;type:timestamptz;not null;default:now()"`
	Notified       bool       `gorm:"column:notified;type:boolean;not null;default:false;index:ix_alert_triggers_pending"`
	NotifiedAt     *time.Time `gorm:"column:notified_at;type:timestamptz"`

	// DeliveredChannels lists channels that already accepted this trigger.
	DeliveredChannels []string   `gorm:"column:delivered_channels;type:jsonb;serializer:json"`
	Attempts          int        `gorm:"column:attempts;type:integer;not null;default:0"`
	LastAttemptAt     *time.Time `gorm:"column:last_attempt_at;type:timestamptz"`
	LastError         *string    `gorm:"column:last_error;type:text"`
}

func (AlertTrigger) TableName() string { return "news.alert_triggers" }

// IngestRun maps news.ingest_runs. One row per batch, written outside the
// batch transaction.
type IngestRun struct {
	RunID           int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	IngestRunUUID   string     `gorm:"column:ingest_run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	BatchID         string     `gorm:"column:batch_id;type:uuid;not null"`
	TriggeredBy     *string    `gorm:"column:triggered_by;type:text"`
	StartedAt       time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt      *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status          string     `gorm:"column:status;type:news.ingest_run_status;not null;default:running"`
	ItemsReceived   int        `gorm:"column:items_received;type:integer;not null;default:0"`
	ItemsSaved      int        `gorm:"column:items_saved;type:integer;not null;default:0"`
	ItemsDuplicate  int        `gorm:"column:items_duplicate;type:integer;not null;default:0"`
	ItemsSkipped    int        `gorm:"column:items_skipped;type:integer;not null;default:0"`
	AlertsTriggered int        `gorm:"column:alerts_triggered;type:integer;not null;default:0"`
	ErrorCount      int        `gorm:"column:error_count;type:integer;not null;default:0"`
	ErrorMessage    *string    `gorm:"column:error_message;type:text"`
	CreatedAt       time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (IngestRun) TableName() string { return "news.ingest_runs" }

// KeywordTrend maps news.keyword_trends: daily mention counts per keyword.
type KeywordTrend struct {
	Keyword   string    `gorm:"column:keyword;type:text;primaryKey"`
	Day       time.Time `gorm:"column:day;type:date;primaryKey"`
	Mentions  int64     `gorm:"column:mentions;type:bigint;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (KeywordTrend) TableName() string { return "news.keyword_trends" }

func autoMigrateModels() []any {
	return []any{
		&Source{},
		&Article{},
		&AlertRule{},
		&AlertTrigger{},
		&IngestRun{},
		&KeywordTrend{},
	}
}
