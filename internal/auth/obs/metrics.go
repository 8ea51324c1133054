// Package obs exposes Prometheus metrics for the auth server. Registration
// happens once at startup; counters are safe to use from any goroutine.
package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auth_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"}, // success, invalid_credentials, locked, suspended, mfa_required, invalid_mfa
	)

	lockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Accounts locked after repeated failed logins.",
	})

	tokenRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_rotations_total",
			Help: "Refresh token rotations by outcome.",
		},
		[]string{"outcome"}, // success, rejected
	)

	passwordResetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_password_resets_total",
			Help: "Password reset completions by outcome.",
		},
		[]string{"outcome"}, // success, rejected
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Idempotent.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			loginsTotal,
			lockoutsTotal,
			tokenRotationsTotal,
			passwordResetsTotal,
		)
	})
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordLogin(outcome string)         { loginsTotal.WithLabelValues(outcome).Inc() }
func RecordLockout()                     { lockoutsTotal.Inc() }
func RecordTokenRotation(outcome string) { tokenRotationsTotal.WithLabelValues(outcome).Inc() }
func RecordPasswordReset(outcome string) { passwordResetsTotal.WithLabelValues(outcome).Inc() }

// Instrument wraps an HTTP handler with request count, latency and in-flight
// tracking. route maps a request to its registered pattern so the path label
// stays bounded; unmatched requests must collapse to a constant.
func Instrument(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := route(r)
			status := strconv.Itoa(sw.code)
			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpInFlight.Dec()
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
