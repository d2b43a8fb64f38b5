package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/osvaldoandrade/songbridge/pkg/persistence"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPlugin(t *testing.T, clock *fakeClock) persistence.PluginPersistence {
	t.Helper()
	plugin, err := NewPlugin(persistence.PluginConfig{
		Config:         []byte("{}"),
		CoverRetention: 24 * time.Hour,
		Now:            clock.Now,
	})
	if err != nil {
		t.Fatalf("Failed to create plugin: %v", err)
	}
	t.Cleanup(func() { _ = plugin.Close() })
	return plugin
}

func TestMemoryPluginRegistered(t *testing.T) {
	plugin, err := persistence.NewPersistence(persistence.ProviderConfig{Type: "memory"}, persistence.PluginConfig{})
	if err != nil {
		t.Fatalf("NewPersistence(memory): %v", err)
	}
	if err := plugin.Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestProcessedCallbacksAddIfAbsent(t *testing.T) {
	ctx := context.Background()
	plugin := newTestPlugin(t, &fakeClock{now: time.Now()})
	set := plugin.ProcessedCallbacks(domain.KindMusic)

	added, err := set.AddIfAbsent(ctx, "task-1_SUCCESS_complete")
	if err != nil || !added {
		t.Fatalf("first AddIfAbsent = %v, %v; want true, nil", added, err)
	}
	added, err = set.AddIfAbsent(ctx, "task-1_SUCCESS_complete")
	if err != nil || added {
		t.Fatalf("second AddIfAbsent = %v, %v; want false, nil", added, err)
	}
	if n, _ := set.Len(ctx); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}

	if err := set.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := set.Len(ctx); n != 0 {
		t.Errorf("Len after Clear = %d, want 0", n)
	}
	added, _ = set.AddIfAbsent(ctx, "task-1_SUCCESS_complete")
	if !added {
		t.Error("expected key to be accepted again after Clear")
	}
}

func TestProcessedCallbacksSeparatePerKind(t *testing.T) {
	ctx := context.Background()
	plugin := newTestPlugin(t, &fakeClock{now: time.Now()})
	music := plugin.ProcessedCallbacks(domain.KindMusic)
	lyrics := plugin.ProcessedCallbacks(domain.KindLyrics)

	_, _ = music.AddIfAbsent(ctx, "shared")
	if added, _ := lyrics.AddIfAbsent(ctx, "shared"); !added {
		t.Fatal("lyrics set must not see music keys")
	}
	if err := music.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := lyrics.Len(ctx); n != 1 {
		t.Fatalf("clearing music dropped lyrics keys, Len = %d", n)
	}
}

func TestProcessedCallbacksConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	plugin := newTestPlugin(t, &fakeClock{now: time.Now()})
	set := plugin.ProcessedCallbacks(domain.KindLyrics)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := set.AddIfAbsent(ctx, "lyrics_task-3_200"); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("winners = %d, want 1", got)
	}
}

func TestCoverResultsSaveAndGet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	plugin := newTestPlugin(t, clock)
	covers := plugin.CoverResults()

	if _, err := covers.Get(ctx, "task-9"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	rec := domain.CoverResult{
		Code: 200,
		Msg:  "success",
		Data: domain.CoverResultData{TaskID: "task-9", Images: []string{"a.png", "b.png"}},
	}
	if err := covers.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := covers.Get(ctx, "task-9")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Timestamp != clock.Now().UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", got.Timestamp, clock.Now().UnixMilli())
	}
	if len(got.Data.Images) != 2 || got.Data.Images[0] != "a.png" {
		t.Errorf("Images = %v", got.Data.Images)
	}

	// last write wins
	rec.Msg = "second"
	rec.Timestamp = 0
	if err := covers.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = covers.Get(ctx, "task-9")
	if got.Msg != "second" {
		t.Errorf("Msg = %q, want second", got.Msg)
	}
}

func TestCoverResultsExpireLazily(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	plugin := newTestPlugin(t, clock)
	covers := plugin.CoverResults()

	_ = covers.Save(ctx, domain.CoverResult{Code: 200, Data: domain.CoverResultData{TaskID: "old"}})

	clock.Advance(23 * time.Hour)
	_ = covers.Save(ctx, domain.CoverResult{Code: 200, Data: domain.CoverResultData{TaskID: "young"}})
	if _, err := covers.Get(ctx, "old"); err != nil {
		t.Fatalf("old result should still be inside the window: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := covers.Get(ctx, "old"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("old result should have expired, got %v", err)
	}
	if _, err := covers.Get(ctx, "young"); err != nil {
		t.Fatalf("young result should survive: %v", err)
	}
}

func TestCoverResultsManyTasks(t *testing.T) {
	ctx := context.Background()
	plugin := newTestPlugin(t, &fakeClock{now: time.Now()})
	covers := plugin.CoverResults()

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("task-%d", i)
		if err := covers.Save(ctx, domain.CoverResult{Code: 200, Data: domain.CoverResultData{TaskID: id}}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	for i := 0; i < 20; i++ {
		if _, err := covers.Get(ctx, fmt.Sprintf("task-%d", i)); err != nil {
			t.Errorf("Get task-%d: %v", i, err)
		}
	}
}
