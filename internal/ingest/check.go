package ingest

import (
	"context"
	"fmt"

	"horse.fit/newswire/internal/dedup"
	"horse.fit/newswire/internal/globaltime"
)

// CheckDuplicate runs the duplicate cascade for one candidate without
// writing anything. The unit of work is always rolled back.
func (s *Service) CheckDuplicate(ctx context.Context, candidate Candidate) (dedup.Result, error) {
	if s == nil || s.deps.Store == nil {
		return dedup.Result{}, ErrNotInitialized
	}

	item := prepareOne(0, candidate, globaltime.UTC())
	if item.err != nil {
		return dedup.Result{}, item.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uow, err := s.deps.Store.Begin(ctx)
	if err != nil {
		return dedup.Result{}, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		_ = uow.Rollback(context.WithoutCancel(ctx))
	}()

	src, found, err := uow.SourceByName(ctx, item.sourceName)
	if err != nil {
		return dedup.Result{}, err
	}
	if !found {
		return dedup.Result{}, fmt.Errorf("%w: %q", ErrSourceNotFound, item.sourceName)
	}

	return s.deps.Detector.Check(ctx, uow, dedup.Item{
		Title:       item.title,
		Content:     item.content,
		Link:        item.link,
		SourceID:    src.ID,
		ExtractedAt: item.extractedAt,
	})
}
