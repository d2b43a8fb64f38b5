package persistence

import (
	"context"
	"errors"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

var (
	// ErrNotFound is returned when a key does not exist
	ErrNotFound = errors.New("not found")
)

// PluginPersistence provides the state behind callback deduplication and cover polling.
// Pending push subscriptions are live connections and never go through a plugin.
type PluginPersistence interface {
	// ProcessedCallbacks returns the processed-callback markers of one kind.
	// Kinds never share keys or a clear threshold.
	ProcessedCallbacks(kind domain.TaskKind) ProcessedCallbackStorage

	// CoverResults returns the stored cover results
	CoverResults() CoverResultStorage

	// Health checks if the persistence backend is healthy
	Health(ctx context.Context) error

	// Close releases resources held by the persistence backend
	Close() error
}

// ProcessedCallbackStorage is a bounded set of dedup keys. It is cleared wholesale, never per key.
type ProcessedCallbackStorage interface {
	// AddIfAbsent records key and reports whether it was not present before.
	AddIfAbsent(ctx context.Context, key string) (bool, error)

	// Len returns the number of recorded keys
	Len(ctx context.Context) (int, error)

	// Clear drops every recorded key
	Clear(ctx context.Context) error
}

// CoverResultStorage keeps the latest cover result per task for a fixed retention window.
type CoverResultStorage interface {
	// Save stores rec, overwriting any previous result for the same task
	Save(ctx context.Context, rec domain.CoverResult) error

	// Get returns the stored result or ErrNotFound
	Get(ctx context.Context, taskID string) (*domain.CoverResult, error)
}
