package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"
)

// Plugin implements PluginPersistence in process memory.
// Nothing survives a restart and nothing is shared between instances.
type Plugin struct {
	mu        sync.Mutex
	processed map[domain.TaskKind]map[string]struct{}
	covers    map[string]domain.CoverResult
	retention time.Duration
	now       func() time.Time
}

// NewPlugin creates a new in-memory persistence plugin
func NewPlugin(config persistence.PluginConfig) (persistence.PluginPersistence, error) {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	retention := config.CoverRetention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Plugin{
		processed: make(map[domain.TaskKind]map[string]struct{}),
		covers:    make(map[string]domain.CoverResult),
		retention: retention,
		now:       now,
	}, nil
}

func (p *Plugin) ProcessedCallbacks(kind domain.TaskKind) persistence.ProcessedCallbackStorage {
	return &processedStorage{plugin: p, kind: kind}
}

func (p *Plugin) CoverResults() persistence.CoverResultStorage {
	return &coverStorage{plugin: p}
}

// Health always returns nil for in-memory storage
func (p *Plugin) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op for in-memory storage
func (p *Plugin) Close() error {
	return nil
}

func init() {
	persistence.RegisterProvider("memory", NewPlugin)
}

type processedStorage struct {
	plugin *Plugin
	kind   domain.TaskKind
}

func (s *processedStorage) AddIfAbsent(ctx context.Context, key string) (bool, error) {
	s.plugin.mu.Lock()
	defer s.plugin.mu.Unlock()

	set, ok := s.plugin.processed[s.kind]
	if !ok {
		set = make(map[string]struct{})
		s.plugin.processed[s.kind] = set
	}
	if _, seen := set[key]; seen {
		return false, nil
	}
	set[key] = struct{}{}
	return true, nil
}

func (s *processedStorage) Len(ctx context.Context) (int, error) {
	s.plugin.mu.Lock()
	defer s.plugin.mu.Unlock()
	return len(s.plugin.processed[s.kind]), nil
}

func (s *processedStorage) Clear(ctx context.Context) error {
	s.plugin.mu.Lock()
	defer s.plugin.mu.Unlock()
	delete(s.plugin.processed, s.kind)
	return nil
}

type coverStorage struct {
	plugin *Plugin
}

func (s *coverStorage) Save(ctx context.Context, rec domain.CoverResult) error {
	s.plugin.mu.Lock()
	defer s.plugin.mu.Unlock()

	now := s.plugin.now()
	if rec.Timestamp == 0 {
		rec.Timestamp = now.UnixMilli()
	}
	rec.Data.Images = slices.Clone(rec.Data.Images)
	s.plugin.covers[rec.Data.TaskID] = rec
	s.sweepLocked(now)
	return nil
}

func (s *coverStorage) Get(ctx context.Context, taskID string) (*domain.CoverResult, error) {
	s.plugin.mu.Lock()
	defer s.plugin.mu.Unlock()

	s.sweepLocked(s.plugin.now())
	rec, ok := s.plugin.covers[taskID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	rec.Data.Images = slices.Clone(rec.Data.Images)
	return &rec, nil
}

// sweepLocked drops every result older than the retention window. Callers hold plugin.mu.
func (s *coverStorage) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.plugin.retention).UnixMilli()
	for id, rec := range s.plugin.covers {
		if rec.Timestamp < cutoff {
			delete(s.plugin.covers, id)
		}
	}
}
