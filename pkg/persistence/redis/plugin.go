package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"

	"github.com/go-redis/redis/v8"
)

// Config holds Redis-specific configuration
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
}

// Plugin implements PluginPersistence for Redis/KVRocks.
// Cover results expire through key TTLs; the processed set is cleared by housekeeping.
type Plugin struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
}

// NewPlugin creates a new Redis persistence plugin
func NewPlugin(config persistence.PluginConfig) (persistence.PluginPersistence, error) {
	var cfg Config
	if len(config.Config) > 0 {
		if err := json.Unmarshal(config.Config, &cfg); err != nil {
			return nil, fmt.Errorf("redis persistence config: %w", err)
		}
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis persistence config: addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})

	return newPluginWithClient(client, config), nil
}

func newPluginWithClient(client *redis.Client, config persistence.PluginConfig) *Plugin {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	retention := config.CoverRetention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Plugin{client: client, retention: retention, now: now}
}

func (p *Plugin) ProcessedCallbacks(kind domain.TaskKind) persistence.ProcessedCallbackStorage {
	return &processedStorage{rdb: p.client, key: keyProcessed(kind)}
}

func (p *Plugin) CoverResults() persistence.CoverResultStorage {
	return &coverStorage{rdb: p.client, retention: p.retention, now: p.now}
}

// Health checks if Redis is healthy
func (p *Plugin) Health(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases Redis connection
func (p *Plugin) Close() error {
	return p.client.Close()
}

func init() {
	persistence.RegisterProvider("redis", NewPlugin)
}

func keyProcessed(kind domain.TaskKind) string {
	return fmt.Sprintf("songbridge:callbacks:processed:%s", kind)
}
func keyCover(taskID string) string {
	return fmt.Sprintf("songbridge:cover:%s", taskID)
}

type processedStorage struct {
	rdb *redis.Client
	key string
}

func (s *processedStorage) AddIfAbsent(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.SAdd(ctx, s.key, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis SADD processed: %w", err)
	}
	return n == 1, nil
}

func (s *processedStorage) Len(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis SCARD processed: %w", err)
	}
	return int(n), nil
}

func (s *processedStorage) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis DEL processed: %w", err)
	}
	return nil
}

type coverStorage struct {
	rdb       *redis.Client
	retention time.Duration
	now       func() time.Time
}

func (s *coverStorage) Save(ctx context.Context, rec domain.CoverResult) error {
	if rec.Timestamp == 0 {
		rec.Timestamp = s.now().UnixMilli()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cover result: %w", err)
	}
	if err := s.rdb.Set(ctx, keyCover(rec.Data.TaskID), string(b), s.retention).Err(); err != nil {
		return fmt.Errorf("redis SET cover: %w", err)
	}
	return nil
}

func (s *coverStorage) Get(ctx context.Context, taskID string) (*domain.CoverResult, error) {
	js, err := s.rdb.Get(ctx, keyCover(taskID)).Result()
	if err == redis.Nil {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET cover: %w", err)
	}
	var rec domain.CoverResult
	if err := json.Unmarshal([]byte(js), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cover result: %w", err)
	}
	return &rec, nil
}
