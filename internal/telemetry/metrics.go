package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across both listeners.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "llmgateway",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// RateLimitRejectionsTotal counts requests rejected by the sliding-window limiter.
var RateLimitRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgateway",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Total number of requests rejected by the rate limiter, by window.",
	},
	[]string{"tier", "window"},
)

// UpstreamRequestDuration tracks latency of calls forwarded to the UPSTREAM.
var UpstreamRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "llmgateway",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Upstream forward latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"status"},
)

// TokensTotal counts accounted prompt/completion tokens by kind.
var TokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llmgateway",
		Subsystem: "usage",
		Name:      "tokens_total",
		Help:      "Total accounted tokens by kind (prompt, completion).",
	},
	[]string{"kind"},
)

// IssuanceCodesSentTotal counts one-time verification codes dispatched.
var IssuanceCodesSentTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "llmgateway",
		Subsystem: "issuance",
		Name:      "codes_sent_total",
		Help:      "Total number of one-time verification codes dispatched.",
	},
)

// IssuanceCredentialsMintedTotal counts credentials minted via self-service verify.
var IssuanceCredentialsMintedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "llmgateway",
		Subsystem: "issuance",
		Name:      "credentials_minted_total",
		Help:      "Total number of credentials minted via self-service verification.",
	},
)

// All returns the gateway-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		RateLimitRejectionsTotal,
		UpstreamRequestDuration,
		TokensTotal,
		IssuanceCodesSentTotal,
		IssuanceCredentialsMintedTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTPRequestDuration metric, and any additional collectors passed.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
