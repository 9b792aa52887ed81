package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderAttempts counts every call made to an AI provider, retries included
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_provider_attempts_total",
			Help: "Total number of AI provider call attempts",
		},
		[]string{"provider"},
	)

	// ProviderErrors counts classified provider failures by kind
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_provider_errors_total",
			Help: "Total number of classified AI provider errors",
		},
		[]string{"provider", "kind"},
	)

	// RetryDelay tracks how long the retry loop waited before the next attempt
	RetryDelay = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visibility_provider_retry_delay_seconds",
			Help:    "Backoff delay before retrying a provider call",
			Buckets: []float64{0.5, 1, 1.5, 3, 6, 12, 30, 60},
		},
		[]string{"provider"},
	)

	// ProviderLatency tracks a single provider call
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visibility_provider_latency_seconds",
			Help:    "AI provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// ScansTotal counts finished scans per platform and outcome
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_scans_total",
			Help: "Total number of scans executed",
		},
		[]string{"platform", "status"},
	)

	// MentionsDetected counts mention candidates per platform
	MentionsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_mentions_detected_total",
			Help: "Total number of brand mentions detected",
		},
		[]string{"platform"},
	)
)
