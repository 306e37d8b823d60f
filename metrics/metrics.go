// Package metrics defines Prometheus metrics for the identity service.
//
// Metric naming follows Prometheus conventions:
//   - moviesns_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AuthRequests.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Recorder owns the collectors. Each Recorder registers into its own registry
// so tests can build as many as they like.
type Recorder struct {
	registry *prometheus.Registry

	// AuthRequests counts auth operations by op (signup, login, logout, me) and outcome.
	AuthRequests *prometheus.CounterVec

	// TokenVerifyFailures counts rejected session tokens by failure kind.
	TokenVerifyFailures *prometheus.CounterVec

	// PasswordHashSeconds observes bcrypt hashing and verification latency.
	PasswordHashSeconds *prometheus.HistogramVec
}

// New creates a Recorder with a fresh registry that also exposes Go runtime
// and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		AuthRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviesns_auth_requests_total",
				Help: "Total auth requests by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		TokenVerifyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviesns_token_verify_failures_total",
				Help: "Total session tokens rejected by failure kind.",
			},
			[]string{"kind"},
		),
		PasswordHashSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moviesns_password_hash_seconds",
				Help:    "Duration of password hash and verify calls in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"op"},
		),
	}
	r.registry.MustRegister(
		r.AuthRequests,
		r.TokenVerifyFailures,
		r.PasswordHashSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Auth records one auth operation. Safe on a nil Recorder.
func (r *Recorder) Auth(op, outcome string) {
	if r == nil {
		return
	}
	r.AuthRequests.WithLabelValues(op, outcome).Inc()
}

// TokenRejected records a token verification failure. Safe on a nil Recorder.
func (r *Recorder) TokenRejected(kind string) {
	if r == nil {
		return
	}
	r.TokenVerifyFailures.WithLabelValues(kind).Inc()
}

// ObserveHash records how long a hash or verify call took. Safe on a nil Recorder.
func (r *Recorder) ObserveHash(op string, started time.Time) {
	if r == nil {
		return
	}
	r.PasswordHashSeconds.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
