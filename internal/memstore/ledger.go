package memstore

import (
	"context"
	"fmt"
	"time"

	"horse.fit/newswire/internal/db"
	"horse.fit/newswire/internal/ingest"
)

func (s *Store) StartRun(_ context.Context, batchID, triggeredBy string, received int, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRunID++
	run := db.IngestRun{
		RunID:         s.nextRunID,
		BatchID:       batchID,
		StartedAt:     startedAt,
		Status:        "running",
		ItemsReceived: received,
	}
	if triggeredBy != "" {
		run.TriggeredBy = &triggeredBy
	}
	s.runs = append(s.runs, run)
	return run.RunID, nil
}

func (s *Store) CompleteRun(_ context.Context, runID int64, counts ingest.RunCounts, summary string, finishedAt time.Time) error {
	return s.finishRun(runID, "completed", counts, summary, finishedAt)
}

func (s *Store) FailRun(_ context.Context, runID int64, counts ingest.RunCounts, cause error, finishedAt time.Time) error {
	counts.Saved = 0
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.finishRun(runID, "failed", counts, msg, finishedAt)
}

func (s *Store) finishRun(runID int64, status string, counts ingest.RunCounts, message string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].RunID != runID {
			continue
		}
		run := &s.runs[i]
		run.Status = status
		run.ItemsReceived = counts.Received
		run.ItemsSaved = counts.Saved
		run.ItemsDuplicate = counts.Duplicates
		run.ItemsSkipped = counts.Skipped
		run.AlertsTriggered = counts.AlertsTriggered
		run.ErrorCount = counts.ErrorCount
		run.FinishedAt = &finishedAt
		if message != "" {
			run.ErrorMessage = &message
		}
		return nil
	}
	return fmt.Errorf("ingest run %d not found", runID)
}

func (s *Store) Runs() []db.IngestRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.IngestRun(nil), s.runs...)
}
