// Package metrics exposes Prometheus collectors for archival runs.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	listingPagesTotal          *prometheus.CounterVec
	articlesTotal              *prometheus.CounterVec
	stageDurationSeconds       *prometheus.HistogramVec
	activeSessions             prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		listingPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxarchiver_listing_pages_total",
				Help: "Total number of listing pages harvested, labeled by status.",
			},
			[]string{"status"},
		)

		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxarchiver_articles_total",
				Help: "Total number of articles archived, labeled by status.",
			},
			[]string{"status"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boxarchiver_stage_duration_seconds",
				Help:    "Histogram of run stage durations, labeled by stage.",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
			},
			[]string{"stage"},
		)

		activeSessions = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "boxarchiver_active_sessions",
				Help: "Number of browser sessions currently open.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boxarchiver_rate_limit_delay_seconds",
				Help:    "Time navigations spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxarchiver_http_requests_total",
				Help: "Total number of requests to the metrics endpoint, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boxarchiver_http_request_duration_seconds",
				Help:    "Histogram of metrics endpoint latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveListingPage increments the listing page counter for status.
func ObserveListingPage(status string) {
	Init()
	listingPagesTotal.WithLabelValues(status).Inc()
}

// ObserveArticle increments the article counter for status.
func ObserveArticle(status string) {
	Init()
	articlesTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long one stage of a run took.
func ObserveStage(stage string, duration time.Duration) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncActiveSessions increments the open sessions gauge.
func IncActiveSessions() {
	Init()
	activeSessions.Inc()
}

// DecActiveSessions decrements the open sessions gauge.
func DecActiveSessions() {
	Init()
	activeSessions.Dec()
}

// ObserveRateLimitDelay records time spent waiting for a rate limit token.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
