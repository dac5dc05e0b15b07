package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/newswire/internal/db"
)

const maxRunErrorLength = 4000

// RunCounts is the bookkeeping written to a finished run.
type RunCounts struct {
	Received        int
	Saved           int
	Duplicates      int
	Skipped         int
	AlertsTriggered int
	ErrorCount      int
}

func countsOf(r BatchResult) RunCounts {
	return RunCounts{
		Received:        r.Received,
		Saved:           r.Saved,
		Duplicates:      r.Duplicates,
		Skipped:         r.Skipped,
		AlertsTriggered: r.AlertsTriggered,
		ErrorCount:      r.ErrorCount,
	}
}

// RunLedger records one news.ingest_runs row per batch. It writes outside
// the batch transaction so failed batches stay visible.
type RunLedger interface {
	StartRun(ctx context.Context, batchID, triggeredBy string, received int, startedAt time.Time) (int64, error)
	CompleteRun(ctx context.Context, runID int64, counts RunCounts, summary string, finishedAt time.Time) error
	FailRun(ctx context.Context, runID int64, counts RunCounts, cause error, finishedAt time.Time) error
}

type sqlRunner interface {
	QueryRow(ctx context.Context, query string, args ...any) *db.Row
	Exec(ctx context.Context, query string, args ...any) (db.CommandTag, error)
}

// PoolLedger is the Postgres RunLedger.
type PoolLedger struct {
	db sqlRunner
}

func NewPoolLedger(pool *db.Pool) *PoolLedger {
	return &PoolLedger{db: pool}
}

func (l *PoolLedger) StartRun(ctx context.Context, batchID, triggeredBy string, received int, startedAt time.Time) (int64, error) {
	const q = `
INSERT INTO news.ingest_runs (
	batch_id,
	triggered_by,
	started_at,
	status,
	items_received,
	created_at,
	updated_at
)
VALUES ($1::uuid, $2, $3, 'running', $4, $3, $3)
RETURNING run_id
`
	var runID int64
	if err := l.db.QueryRow(ctx, q, batchID, nullableString(triggeredBy), startedAt, received).Scan(&runID); err != nil {
		return 0, fmt.Errorf("insert ingest run: %w", err)
	}
	return runID, nil
}

// CompleteRun stores summary (the bounded item error list, if any) in
// error_message so partial failures stay queryable.
func (l *PoolLedger) CompleteRun(ctx context.Context, runID int64, counts RunCounts, summary string, finishedAt time.Time) error {
	const q = `
UPDATE news.ingest_runs
SET
	status = 'completed',
	items_received = $2,
	items_saved = $3,
	items_duplicate = $4,
	items_skipped = $5,
	alerts_triggered = $6,
	error_count = $7,
	error_message = $8,
	finished_at = $9,
	updated_at = $9
WHERE run_id = $1
`
	_, err := l.db.Exec(ctx, q,
		runID,
		counts.Received,
		counts.Saved,
		counts.Duplicates,
		counts.Skipped,
		counts.AlertsTriggered,
		counts.ErrorCount,
		nullableString(truncateMessage(summary)),
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("mark ingest run %d completed: %w", runID, err)
	}
	return nil
}

// FailRun keeps the counts at zero saved: a failed batch committed nothing.
func (l *PoolLedger) FailRun(ctx context.Context, runID int64, counts RunCounts, cause error, finishedAt time.Time) error {
	const q = `
UPDATE news.ingest_runs
SET
	status = 'failed',
	items_received = $2,
	items_saved = 0,
	error_count = $3,
	error_message = $4,
	finished_at = $5,
	updated_at = $5
WHERE run_id = $1
`
	msg := "unknown error"
	if cause != nil {
		msg = truncateMessage(cause.Error())
	}
	if _, err := l.db.Exec(ctx, q, runID, counts.Received, counts.ErrorCount, msg, finishedAt); err != nil {
		return fmt.Errorf("mark ingest run %d failed: %w", runID, err)
	}
	return nil
}

func truncateMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxRunErrorLength {
		return msg
	}
	cut := maxRunErrorLength
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
