package push

import "sync"

// Subscription is one waiting stream for a task. It receives at most one
// payload and is closed right after it, or when cancelled.
type Subscription struct {
	TaskID string

	ch   chan []byte
	once sync.Once
}

func NewSubscription(taskID string) *Subscription {
	return &Subscription{TaskID: taskID, ch: make(chan []byte, 1)}
}

// Events yields the delivered payload, if any, and is then closed.
func (s *Subscription) Events() <-chan []byte { return s.ch }

// Deliver hands payload to the stream and closes it. It reports false when the
// subscription was already delivered to or cancelled.
func (s *Subscription) Deliver(payload []byte) bool {
	delivered := false
	s.once.Do(func() {
		s.ch <- payload
		close(s.ch)
		delivered = true
	})
	return delivered
}

// Cancel closes the subscription without a payload. Safe to call repeatedly.
func (s *Subscription) Cancel() {
	s.once.Do(func() { close(s.ch) })
}
