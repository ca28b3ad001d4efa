package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Access tokens issued, by actor type.",
		},
		[]string{"actor_type"},
	)

	tokenVerifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verify_failures_total",
			Help: "Access token verification rejections, by reason.",
		},
		[]string{"reason"},
	)

	refreshReuseRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_refresh_reuse_rejected_total",
			Help: "Refresh tokens rejected because they were already consumed or revoked.",
		},
	)

	keySetBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_keyset_builds_total",
			Help: "Public key set rebuilds (cache misses).",
		},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		tokensIssued, tokenVerifyFailures, refreshReuseRejected, keySetBuilds,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// TokenIssued counts a successful access token issuance.
func TokenIssued(actorType string) {
	tokensIssued.WithLabelValues(actorType).Inc()
}

// TokenVerifyFailure counts a verification rejection with a taxonomy reason.
func TokenVerifyFailure(reason string) {
	tokenVerifyFailures.WithLabelValues(reason).Inc()
}

// RefreshReuseRejected counts a replayed or already-revoked refresh token.
func RefreshReuseRejected() {
	refreshReuseRejected.Inc()
}

// KeySetBuilt counts one rebuild of the published key set.
func KeySetBuilt() {
	keySetBuilds.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter records the response code for the metrics labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
