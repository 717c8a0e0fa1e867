package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exchange_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_requests_total",
			Help: "Total number of exchange request operations",
		},
		[]string{"operation", "outcome"},
	)

	CoinsEscrowedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_coins_escrowed_total",
			Help: "Total coins moved into escrow on exchange creation",
		},
	)

	CoinsRefundedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_coins_refunded_total",
			Help: "Total coins refunded on rejection, cancellation or expiration",
		},
	)

	CoinsSettledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_coins_settled_total",
			Help: "Total coins settled to card owners on acceptance",
		},
	)

	SweeperExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_sweeper_expired_total",
			Help: "Total number of requests expired by the sweeper",
		},
	)

	SweeperRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exchange_sweeper_run_duration_seconds",
			Help:    "Duration of a single sweeper pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_outbox_published_total",
			Help: "Total number of outbox messages published",
		},
		[]string{"event_type", "outcome"},
	)

	OutboxPendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_outbox_pending",
			Help: "Number of pending outbox messages seen in the last poll",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordExchange(operation, outcome string) {
	ExchangesTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordOutboxPublish(eventType, outcome string) {
	OutboxPublishedTotal.WithLabelValues(eventType, outcome).Inc()
}
