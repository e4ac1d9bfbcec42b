package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	TradesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_trades_submitted_total",
		Help: "The total number of submitted trades by outcome",
	}, []string{"chain", "mode", "status"})

	SubmissionTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "executor_submission_seconds",
		Help:    "Time from plan submission to the reported outcome",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
	}, []string{"chain", "mode"})

	SubmissionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_submission_errors_total",
		Help: "Total number of failed submissions by error type",
	}, []string{"chain", "error_type"})

	QuoteFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_quote_fallbacks_total",
		Help: "Number of swaps submitted without an output bound because the quote failed",
	}, []string{"chain"})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "executor_gas_price_gwei",
		Help: "Current gas price in gwei",
	}, []string{"chain"})

	RelayTipLamports = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "executor_relay_tip_lamports",
		Help:    "Tip paid to the relay per bundle",
		Buckets: prometheus.ExponentialBuckets(1_000, 4, 10),
	})

	PollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_poll_attempts_total",
		Help: "Number of confirmation status fetches",
	}, []string{"chain", "kind"})

	PollFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_poll_fetch_errors_total",
		Help: "Number of transient confirmation status fetch failures",
	}, []string{"chain", "kind"})

	PollTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_poll_timeouts_total",
		Help: "Number of confirmation waits that reached their deadline",
	}, []string{"chain", "kind"})

	CircuitOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "executor_circuit_open",
		Help: "1 while the chain's circuit breaker is tripped",
	}, []string{"chain"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "executor_http_requests_total",
		Help: "Inbound HTTP requests by route and status code",
	}, []string{"method", "path", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "executor_http_request_seconds",
		Help:    "Inbound HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "executor_http_rate_limited_total",
		Help: "Inbound requests rejected by the rate limiter",
	})
)
