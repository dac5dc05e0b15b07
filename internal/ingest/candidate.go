package ingest

import (
	"errors"
	"time"
)

var (
	ErrNotInitialized = errors.New("ingest service is not initialized")
	ErrSourceNotFound = errors.New("source not found")
	ErrEmptyTitle     = errors.New("title is required")
)

// Candidate is one scraped item as produced by a scraper adapter.
// PublishedAt is kept raw: unparseable values degrade to unknown instead of
// failing the item.
type Candidate struct {
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	Link        string     `json:"link,omitempty"`
	Category    string     `json:"category"`
	SourceName  string     `json:"source_name"`
	PublishedAt string     `json:"published_at,omitempty"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Language    string     `json:"language,omitempty"`
}

// BatchResult reports what one IngestBatch call did. Errors is bounded;
// ErrorCount is always exact.
type BatchResult struct {
	BatchID         string         `json:"batch_id"`
	RunID           int64          `json:"run_id,omitempty"`
	Received        int            `json:"received"`
	Saved           int            `json:"saved"`
	Duplicates      int            `json:"duplicates"`
	Skipped         int            `json:"skipped"`
	AlertsTriggered int            `json:"alerts_triggered"`
	ErrorCount      int            `json:"error_count"`
	Errors          []string       `json:"errors"`
	Truncated       bool           `json:"truncated"`
	Remaining       int            `json:"remaining"`
	DuplicateTypes  map[string]int `json:"duplicate_types"`
	SavedIDs        []int64        `json:"saved_ids,omitempty"`
	DryRun          bool           `json:"dry_run,omitempty"`
}
