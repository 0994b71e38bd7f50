// Package metrics holds the process's Prometheus collectors: request
// latency, exchange/parse/persist outcome counters, and token histograms.
// Recording into them is additive observability and never changes which
// error surfaces to the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration observes forwarder latency in seconds, labeled by
	// outcome so timeouts and transport failures are distinguishable from
	// successful forwards.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_request_duration_seconds",
		Help:    "Time spent forwarding a request to the upstream and back",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	// ExchangesRecorded counts the recorder's successful Store.Add calls.
	ExchangesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_exchanges_recorded_total",
		Help: "Number of exchanges successfully persisted",
	})

	// ParseFailures counts calls classified as LLM calls whose body the
	// token-usage parser could not extract usage from (ERR_PARSE_BODY).
	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_parse_failures_total",
		Help: "LLM-classified exchanges whose response body yielded no token usage",
	})

	// PersistFailures counts ERR_PERSIST occurrences: failed writes and
	// writes rejected while the circuit breaker is open. Nothing is retried.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_persist_failures_total",
		Help: "Exchanges dropped because the store could not accept the write",
	})

	// UpstreamErrors counts forwarding failures by kind
	// (timeout/transport). Client cancellations are not counted.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_upstream_errors_total",
		Help: "Forwarding failures, labeled by error kind",
	}, []string{"kind"})

	// TokenHistogram observes per-exchange token counts, labeled by
	// direction (input/output).
	TokenHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_tokens",
		Help:    "Token count per recorded exchange",
		Buckets: []float64{1, 10, 50, 100, 500, 1_000, 2_000, 4_000, 8_000, 16_000, 32_000},
	}, []string{"direction"})

	// CostEstimateUSD observes the rough per-exchange USD cost estimate from
	// pkg/cost. Never persisted, logging/metrics only.
	CostEstimateUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_cost_estimate_usd",
		Help:    "Rough estimated USD cost per recorded LLM exchange",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)
