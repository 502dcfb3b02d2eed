// Package metrics provides Prometheus metrics for the simulation server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "dooriq"
	subsystem = "sim"
)

// Manager holds all Prometheus metrics for the simulation service.
type Manager struct {
	registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	stepsProcessed    prometheus.Counter
	stepsRejected     *prometheus.CounterVec
	replyLatency      prometheus.Histogram
	replyFallbacks    prometheus.Counter
	openAttempts      prometheus.Gauge
	attemptsExpired   prometheus.Counter
}

// NewManager creates a metrics manager with its own registry, so the
// /metrics endpoint exposes only service metrics.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_started_total",
			Help: "Practice sessions started.",
		}),
		sessionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_completed_total",
			Help: "Practice sessions completed, by result label.",
		}, []string{"result"}),
		stepsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "steps_processed_total",
			Help: "Conversation turns accepted and applied.",
		}),
		stepsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "steps_rejected_total",
			Help: "Conversation turns rejected, by reason.",
		}, []string{"reason"}),
		replyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "reply_latency_seconds",
			Help:    "Prospect reply generation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		replyFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "reply_fallbacks_total",
			Help: "Replies served from the neutral fallback path.",
		}),
		openAttempts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "open_attempts",
			Help: "Attempts started but not yet evaluated.",
		}),
		attemptsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "attempts_expired_total",
			Help: "Abandoned attempts removed by the retention worker.",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted records a started session.
func (m *Manager) SessionStarted() { m.sessionsStarted.Inc() }

// SessionCompleted records a completed session by result label.
func (m *Manager) SessionCompleted(result string) {
	m.sessionsCompleted.WithLabelValues(result).Inc()
}

// StepProcessed records an accepted conversation turn.
func (m *Manager) StepProcessed() { m.stepsProcessed.Inc() }

// StepRejected records a rejected turn by reason.
func (m *Manager) StepRejected(reason string) {
	m.stepsRejected.WithLabelValues(reason).Inc()
}

// ObserveReplyLatency records reply generation latency.
func (m *Manager) ObserveReplyLatency(d time.Duration) {
	m.replyLatency.Observe(d.Seconds())
}

// ReplyFallback records a reply served from the fallback path.
func (m *Manager) ReplyFallback() { m.replyFallbacks.Inc() }

// SetOpenAttempts sets the open-attempts gauge.
func (m *Manager) SetOpenAttempts(n int64) { m.openAttempts.Set(float64(n)) }

// AttemptsExpired records attempts removed by the retention worker.
func (m *Manager) AttemptsExpired(n int64) { m.attemptsExpired.Add(float64(n)) }
