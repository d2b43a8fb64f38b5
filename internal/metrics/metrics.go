package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "songbridge"

var (
	CallbacksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_received_total",
			Help:      "Total number of provider callbacks received, labeled by task kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	CallbackAckLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "callback_ack_latency_seconds",
			Help:      "Time from receiving a callback to acknowledging it (seconds).",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"kind"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of normalized notification events, labeled by event type.",
		},
		[]string{"type"},
	)

	PushDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_deliveries_total",
			Help:      "Total number of push dispatch attempts, labeled by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	DeferredFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_failures_total",
			Help:      "Total number of failures in deferred callback processing.",
		},
		[]string{"kind"},
	)

	ProcessedClearsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processed_callbacks_clears_total",
			Help:      "Total number of wholesale clears of a processed-callback set, labeled by task kind.",
		},
		[]string{"kind"},
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of requests to the generation provider, labeled by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	RateLimitHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of generate requests rejected by the rate limiter, labeled by generation kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		CallbacksReceivedTotal,
		CallbackAckLatencySeconds,
		NotificationsTotal,
		PushDeliveriesTotal,
		DeferredFailuresTotal,
		ProcessedClearsTotal,
		ProviderRequestsTotal,
		RateLimitHitsTotal,
	)
}
