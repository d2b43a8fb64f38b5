package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"
)

// CoverService answers cover polling from the stored results.
type CoverService interface {
	// Latest returns the stored result or the in-progress placeholder when none has arrived.
	Latest(ctx context.Context, taskID string) (domain.CoverResult, error)
}

type coverService struct {
	store  persistence.CoverResultStorage
	logger *slog.Logger
}

func NewCoverService(store persistence.CoverResultStorage, logger *slog.Logger) CoverService {
	return &coverService{store: store, logger: logger}
}

func (s *coverService) Latest(ctx context.Context, taskID string) (domain.CoverResult, error) {
	rec, err := s.store.Get(ctx, taskID)
	if errors.Is(err, persistence.ErrNotFound) {
		return domain.CoverPending(taskID), nil
	}
	if err != nil {
		s.logger.Warn("cover result lookup failed", "task_id", taskID, "err", err)
		return domain.CoverResult{}, err
	}
	return *rec, nil
}
