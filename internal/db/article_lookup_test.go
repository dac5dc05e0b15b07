package db

import (
	"strings"
	"testing"
	"time"

	"horse.fit/newswire/internal/dedup"
)

func TestWindowedBuildsSourcePreferenceOrdering(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := windowed(storedArticleSelect().Where("title_hash = ?", "abc"), dedup.Window{
		Since:          since,
		PreferSourceID: 4,
	}).Limit(1)

	query, args, err := b.ToSql()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	want := "SELECT id, title, source_id, extracted_at FROM news.articles WHERE title_hash = $1 AND extracted_at >= $2 ORDER BY (source_id = $3) DESC, extracted_at DESC, id DESC LIMIT 1"
	if query != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", query, want)
	}
	if len(args) != 3 || args[0] != "abc" || args[2] != int64(4) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestWindowedSameSourceFilter(t *testing.T) {
	t.Parallel()

	query, args, err := windowed(storedArticleSelect(), dedup.Window{SourceID: 9}).ToSql()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	if !strings.Contains(query, "WHERE source_id = $1") {
		t.Fatalf("expected source filter, got %s", query)
	}
	if strings.Contains(query, "extracted_at >=") {
		t.Fatalf("zero window must not filter by time: %s", query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestKeywordTrendRowsDeduplicates(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 1, 17, 30, 0, 0, time.UTC)
	rows := keywordTrendRows([]string{"lima", "sismo", "lima", ""}, day)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if !row.Day.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("expected day truncated to midnight, got %s", row.Day)
		}
		if row.Mentions != 1 {
			t.Fatalf("expected one mention, got %d", row.Mentions)
		}
	}
}

func TestQuoteSavepoint(t *testing.T) {
	t.Parallel()

	if got := quoteSavepoint("item_3; DROP"); got != "item_3DROP" {
		t.Fatalf("unexpected savepoint name %q", got)
	}
	if got := quoteSavepoint("--"); got != "sp" {
		t.Fatalf("unexpected fallback savepoint name %q", got)
	}
}
