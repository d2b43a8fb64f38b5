package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/osvaldoandrade/songbridge/internal/metrics"
	"github.com/osvaldoandrade/songbridge/internal/push"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

// DispatcherService owns the pending push subscriptions and delivers each one at most once.
type DispatcherService interface {
	// Subscribe registers a new stream for taskID. Any stream already waiting on the
	// same task is cancelled.
	Subscribe(taskID string) (*push.Subscription, error)
	Unsubscribe(sub *push.Subscription)
	// Dispatch reports whether n reached a waiting stream. Nothing waiting is not an error.
	Dispatch(ctx context.Context, n domain.Notification) (bool, error)
	Pending() int
}

type dispatcherService struct {
	registry *push.Registry
	logger   *slog.Logger
}

func NewDispatcherService(registry *push.Registry, logger *slog.Logger) DispatcherService {
	if registry == nil {
		registry = push.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcherService{registry: registry, logger: logger}
}

func (d *dispatcherService) Subscribe(taskID string) (*push.Subscription, error) {
	sub := push.NewSubscription(taskID)
	prev, err := d.registry.Register(taskID, sub)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		prev.Cancel()
		d.logger.Info("push subscription replaced", "task_id", taskID)
	}
	return sub, nil
}

func (d *dispatcherService) Unsubscribe(sub *push.Subscription) {
	if sub == nil {
		return
	}
	d.registry.Unregister(sub.TaskID, sub)
	sub.Cancel()
}

func (d *dispatcherService) Dispatch(ctx context.Context, n domain.Notification) (bool, error) {
	kind := string(n.Type.Kind())
	sub, ok := d.registry.Lookup(n.TaskID)
	if !ok {
		metrics.PushDeliveriesTotal.WithLabelValues(kind, "no_subscriber").Inc()
		d.logger.Debug("no subscriber for notification", "task_id", n.TaskID, "type", n.Type)
		return false, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		metrics.PushDeliveriesTotal.WithLabelValues(kind, "failure").Inc()
		return false, fmt.Errorf("encode notification: %w", err)
	}

	delivered := sub.Deliver(payload)
	d.registry.Unregister(n.TaskID, sub)
	if !delivered {
		metrics.PushDeliveriesTotal.WithLabelValues(kind, "closed").Inc()
		return false, nil
	}
	metrics.PushDeliveriesTotal.WithLabelValues(kind, "delivered").Inc()
	d.logger.Info("notification pushed", "task_id", n.TaskID, "type", n.Type)
	return true, nil
}

func (d *dispatcherService) Pending() int {
	return d.registry.Len()
}
