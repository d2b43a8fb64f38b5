package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// StateSource reports the live bridge state read at scrape time.
type StateSource interface {
	Snapshot(ctx context.Context) (domain.BridgeStats, error)
}

type stateCollector struct {
	src    StateSource
	logger *slog.Logger

	pendingDesc   *prometheus.Desc
	processedDesc *prometheus.Desc
}

func newStateCollector(src StateSource, logger *slog.Logger) *stateCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &stateCollector{
		src:    src,
		logger: logger,
		pendingDesc: prometheus.NewDesc(
			"songbridge_pending_subscriptions",
			"Current number of browser streams waiting for a task result.",
			nil,
			nil,
		),
		processedDesc: prometheus.NewDesc(
			"songbridge_processed_callbacks",
			"Current size of the processed-callback set.",
			nil,
			nil,
		),
	}
}

func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pendingDesc
	ch <- c.processedDesc
}

func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	if c.src == nil {
		return
	}

	// Keep backend reads bounded so scrapes do not hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, err := c.src.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("prometheus state collector failed", "err", err)
		return
	}
	emitGauge(ch, c.pendingDesc, float64(st.PendingSubscriptions))
	emitGauge(ch, c.processedDesc, float64(st.ProcessedCallbacks))
}

func emitGauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, v float64, labelValues ...string) {
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v, labelValues...)
	if err != nil {
		return
	}
	ch <- m
}

var registerStateOnce sync.Once

// RegisterStateCollector registers the bridge state gauges with the default registry.
// Later calls are ignored.
func RegisterStateCollector(src StateSource, logger *slog.Logger) {
	registerStateOnce.Do(func() {
		prometheus.MustRegister(newStateCollector(src, logger))
	})
}
