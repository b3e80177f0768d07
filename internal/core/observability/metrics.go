// Package observability registers the Prometheus metrics exported by every command.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	featureLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_loads_total",
			Help: "Feature source loads by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	featuresLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "features_loaded",
			Help: "Features currently held by a layer's source.",
		},
		[]string{"layer"},
	)

	layerSwapsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_layer_swaps_total",
			Help: "Query layer replacements after a completed draw.",
		},
	)

	drawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_interactions_total",
			Help: "Draw interaction outcomes.",
		},
		[]string{"outcome"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Response cache results by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// ObserveFeatureLoad records one completed load; outcome is ok, network_error, parse_error or stale.
func ObserveFeatureLoad(mode, outcome string) {
	featureLoadsTotal.WithLabelValues(mode, outcome).Inc()
}

func SetFeaturesLoaded(layer string, n int) {
	featuresLoaded.WithLabelValues(layer).Set(float64(n))
}

func ForgetLayer(layer string) {
	featuresLoaded.DeleteLabelValues(layer)
}

func IncLayerSwap() {
	layerSwapsTotal.Inc()
}

func IncDraw(outcome string) {
	drawsTotal.WithLabelValues(outcome).Inc()
}

func IncCacheHit(tier string) {
	cacheResults.WithLabelValues(tier, "hit").Inc()
}

func IncCacheMiss(tier string) {
	cacheResults.WithLabelValues(tier, "miss").Inc()
}

func IncCacheError(tier string) {
	cacheResults.WithLabelValues(tier, "error").Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
