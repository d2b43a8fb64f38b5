package push

import (
	"errors"
	"strings"
	"sync"
)

var ErrEmptyTaskID = errors.New("task id is required")

// Registry maps a task id to the one stream waiting for it. Entries live in
// process memory only.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Register inserts sub for taskID, replacing and returning any previous entry.
func (r *Registry) Register(taskID string, sub *Subscription) (*Subscription, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, ErrEmptyTaskID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.subs[taskID]
	r.subs[taskID] = sub
	if prev == sub {
		prev = nil
	}
	return prev, nil
}

// Unregister removes the entry for taskID if it still points at sub.
// A stream that was replaced by a newer one leaves the newer entry alone.
func (r *Registry) Unregister(taskID string, sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.subs[taskID]; ok && cur == sub {
		delete(r.subs, taskID)
	}
}

func (r *Registry) Lookup(taskID string) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[taskID]
	return sub, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
