package services

import (
	"context"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"
)

type StatsService interface {
	Snapshot(ctx context.Context) (domain.BridgeStats, error)
}

type statsService struct {
	dispatcher DispatcherService
	store      persistence.PluginPersistence
}

func NewStatsService(dispatcher DispatcherService, store persistence.PluginPersistence) StatsService {
	return &statsService{dispatcher: dispatcher, store: store}
}

func (s *statsService) Snapshot(ctx context.Context) (domain.BridgeStats, error) {
	stats := domain.BridgeStats{
		PendingSubscriptions: s.dispatcher.Pending(),
		ProcessedByKind:      make(map[domain.TaskKind]int, len(domain.DedupKinds)),
	}
	for _, kind := range domain.DedupKinds {
		n, err := s.store.ProcessedCallbacks(kind).Len(ctx)
		if err != nil {
			return domain.BridgeStats{}, err
		}
		stats.ProcessedByKind[kind] = n
		stats.ProcessedCallbacks += n
	}
	return stats, nil
}
