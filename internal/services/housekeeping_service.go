package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/osvaldoandrade/songbridge/internal/metrics"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"
)

// HousekeepingService bounds the processed-callback sets. Each kind is checked on
// its own; once a set grows past the threshold it is dropped whole. Entries are
// never expired one by one.
type HousekeepingService interface {
	Start(ctx context.Context)
	Sweep(ctx context.Context) (bool, error)
}

type housekeepingService struct {
	store     persistence.PluginPersistence
	logger    *slog.Logger
	threshold int
	interval  time.Duration
}

func NewHousekeepingService(store persistence.PluginPersistence, logger *slog.Logger, threshold int, intervalSeconds int) HousekeepingService {
	if threshold <= 0 {
		threshold = 1000
	}
	if intervalSeconds <= 0 {
		intervalSeconds = 3600
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &housekeepingService{
		store:     store,
		logger:    logger,
		threshold: threshold,
		interval:  time.Duration(intervalSeconds) * time.Second,
	}
}

func (s *housekeepingService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("processed callback sweep failed", "err", err)
			}
		}
	}
}

// Sweep clears every set holding more than threshold keys and reports whether any was cleared.
func (s *housekeepingService) Sweep(ctx context.Context) (bool, error) {
	var cleared bool
	var errs []error
	for _, kind := range domain.DedupKinds {
		ok, err := s.sweepKind(ctx, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", kind, err))
		}
		cleared = cleared || ok
	}
	return cleared, errors.Join(errs...)
}

func (s *housekeepingService) sweepKind(ctx context.Context, kind domain.TaskKind) (bool, error) {
	set := s.store.ProcessedCallbacks(kind)
	n, err := set.Len(ctx)
	if err != nil {
		return false, err
	}
	if n <= s.threshold {
		return false, nil
	}
	if err := set.Clear(ctx); err != nil {
		return false, err
	}
	metrics.ProcessedClearsTotal.WithLabelValues(string(kind)).Inc()
	s.logger.Info("processed callback cache cleared", "kind", kind, "count", n)
	return true, nil
}
