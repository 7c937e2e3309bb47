// Package metrics exposes Prometheus collectors for the onboarding service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	onboardPagesTotal          *prometheus.CounterVec
	onboardChunksTotal         *prometheus.CounterVec
	onboardImportsTotal        *prometheus.CounterVec
	onboardImportDuration      prometheus.Histogram
	onboardBookingProviders    *prometheus.CounterVec
	onboardActiveWorkers       prometheus.Gauge
	onboardQueueDepth          prometheus.Gauge
	onboardPolitenessWait      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		onboardPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboard_pages_total",
				Help: "Total number of pages rendered, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		onboardChunksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboard_chunks_total",
				Help: "Total number of text chunks published, labeled by site.",
			},
			[]string{"site"},
		)

		onboardImportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboard_imports_total",
				Help: "Total number of website imports, labeled by outcome code.",
			},
			[]string{"code"},
		)

		onboardImportDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "onboard_import_duration_seconds",
				Help:    "Histogram of end-to-end import durations.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		)

		onboardBookingProviders = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onboard_booking_providers_total",
				Help: "Booking providers detected across imports, labeled by provider.",
			},
			[]string{"provider"},
		)

		onboardActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "onboard_active_workers",
				Help: "Number of workers currently running an import.",
			},
		)

		onboardQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "onboard_queue_depth",
				Help: "Number of imports waiting for a worker.",
			},
		)

		onboardPolitenessWait = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onboard_politeness_wait_seconds",
				Help:    "Time spent waiting on the per-host politeness limiter, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one rendered page for the given site and status ("ok", "failed", "duplicate").
func ObservePage(site, status string) {
	Init()
	onboardPagesTotal.WithLabelValues(SanitizeSite(site), status).Inc()
}

// ObserveChunks adds n published chunks for site.
func ObserveChunks(site string, n int) {
	Init()
	if n > 0 {
		onboardChunksTotal.WithLabelValues(SanitizeSite(site)).Add(float64(n))
	}
}

// ObserveImport records the outcome code and duration of one import.
func ObserveImport(code string, duration time.Duration) {
	Init()
	if code == "" {
		code = "ok"
	}
	onboardImportsTotal.WithLabelValues(code).Inc()
	onboardImportDuration.Observe(duration.Seconds())
}

// ObserveBookingProviders counts detected providers.
func ObserveBookingProviders(providers []string) {
	Init()
	for _, p := range providers {
		onboardBookingProviders.WithLabelValues(p).Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePolitenessWait records how long a page waited for its host's token.
func ObservePolitenessWait(site string, d time.Duration) {
	Init()
	onboardPolitenessWait.WithLabelValues(SanitizeSite(site)).Observe(d.Seconds())
}

// SetQueueDepth records how many imports are waiting.
func SetQueueDepth(n int) {
	Init()
	onboardQueueDepth.Set(float64(n))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	onboardActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	onboardActiveWorkers.Dec()
}
