// Package metrics exposes Prometheus collectors for the dispatch pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	updatesDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_dispatched_total",
			Help: "Inbound updates dispatched, labeled by message kind and outcome",
		},
		[]string{"kind", "status"},
	)
	dispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_dispatch_duration_seconds",
			Help:    "Duration of a full dispatch turn in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_session_transitions_total",
			Help: "Session state transitions persisted after successful turns",
		},
		[]string{"from", "to"},
	)
	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_rate_limited_total",
			Help: "Updates rejected by the per-user rate limiter",
		},
	)
	staleSessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_stale_sessions_swept_total",
			Help: "Sessions purged by the inactivity sweep",
		},
	)
	activeBots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_active_instances",
			Help: "Bot instances currently polling for updates",
		},
	)
)

// RecordDispatch counts a dispatched update and observes its duration.
func RecordDispatch(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	updatesDispatchedTotal.WithLabelValues(kind, status).Inc()
	dispatchDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSessionState counts a persisted state transition. Equal states are
// skipped so quiescent turns do not drown the series.
func RecordSessionState(from, to string) {
	if from == to {
		return
	}
	sessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRateLimited counts an update rejected by the rate limiter.
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// RecordSweptSessions counts sessions purged by the inactivity sweep.
func RecordSweptSessions(n int) {
	if n > 0 {
		staleSessionsSweptTotal.Add(float64(n))
	}
}

// SetActiveBots reports how many bot instances are currently running.
func SetActiveBots(n int) {
	activeBots.Set(float64(n))
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
