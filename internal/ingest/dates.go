package ingest

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePublishedAt accepts a date-only value or an ISO datetime and falls
// back to lenient day-first parsing. Anything else is unknown (nil). Values without a
// zone are read as UTC.
func parsePublishedAt(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	t, err := dateparse.ParseIn(value, time.UTC,
		dateparse.PreferMonthFirst(false),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
	if err != nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
