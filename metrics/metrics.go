// Package metrics provides Prometheus instrumentation for the proxy.
package metrics

import (
	"github.com/panyam/rtproxy/message"
	"github.com/panyam/rtproxy/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes used as the "outcome" label of sessions_total.
const (
	OutcomeClosed       = "closed"
	OutcomeFailed       = "failed"
	OutcomeCancelled    = "cancelled"
	OutcomeConnectError = "connect_error"
)

// Metrics holds all Prometheus metrics for the proxy.
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsTotal   *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Upstream metrics
	ConnectErrors prometheus.Counter

	// Frame metrics
	FramesForwarded *prometheus.CounterVec
	BytesForwarded  *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec
}

var _ relay.Observer = (*Metrics)(nil)

// New creates and registers the metrics with reg. A nil reg registers with
// the default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "rtproxy"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of sessions currently being relayed",
			},
		),
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of finished sessions by outcome",
			},
			[]string{"outcome"},
		),
		SessionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_duration_seconds",
				Help:      "Duration of relayed sessions",
				Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
		),
		ConnectErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_errors_total",
				Help:      "Total number of failed upstream handshakes",
			},
		),
		FramesForwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_forwarded_total",
				Help:      "Total number of frames forwarded",
			},
			[]string{"leg", "kind"},
		),
		BytesForwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_forwarded_total",
				Help:      "Total payload bytes forwarded",
			},
			[]string{"leg"},
		),
		FramesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_dropped_total",
				Help:      "Total number of frames dropped for lack of a destination equivalent",
			},
			[]string{"leg", "kind"},
		),
	}
}

// FrameForwarded implements relay.Observer.
func (m *Metrics) FrameForwarded(leg relay.Leg, kind message.Kind, n int) {
	m.FramesForwarded.WithLabelValues(leg.String(), kind.String()).Inc()
	m.BytesForwarded.WithLabelValues(leg.String()).Add(float64(n))
}

// FrameDropped implements relay.Observer.
func (m *Metrics) FrameDropped(leg relay.Leg, kind message.Kind) {
	m.FramesDropped.WithLabelValues(leg.String(), kind.String()).Inc()
}

// SessionStarted records a session entering the relay.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionFinished records the end of a relayed session.
func (m *Metrics) SessionFinished(res *relay.Result) {
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(res.Duration.Seconds())
	m.SessionsTotal.WithLabelValues(Outcome(res)).Inc()
}

// ConnectFailed records a failed upstream handshake.
func (m *Metrics) ConnectFailed() {
	m.ConnectErrors.Inc()
	m.SessionsTotal.WithLabelValues(OutcomeConnectError).Inc()
}

// Outcome maps a relay result to a sessions_total label.
func Outcome(res *relay.Result) string {
	switch res.Legs[res.First].State {
	case relay.Failed:
		return OutcomeFailed
	case relay.Cancelled:
		return OutcomeCancelled
	}
	return OutcomeClosed
}
