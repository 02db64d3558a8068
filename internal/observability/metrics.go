package observability

import (
	"sync"
	"time"

	"github.com/danmuck/vicictl/internal/protocol/session"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	defaultOnce  sync.Once
	defaultSet   *SessionMetrics
)

// SessionMetrics records session exchanges as prometheus series.
// It implements session.Recorder.
type SessionMetrics struct {
	exchanges     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	events        *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
}

var _ session.Recorder = (*SessionMetrics)(nil)

func NewSessionMetrics() *SessionMetrics {
	return &SessionMetrics{
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vicictl",
				Subsystem: "session",
				Name:      "exchanges_total",
				Help:      "Completed VICI exchanges.",
			},
			[]string{"command", "kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "vicictl",
				Subsystem: "session",
				Name:      "exchange_duration_seconds",
				Help:      "VICI exchange duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command", "kind"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "vicictl",
				Subsystem: "session",
				Name:      "events_total",
				Help:      "Event frames read from streamed exchanges.",
			},
			[]string{"stream", "delivered"},
		),
		subscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "vicictl",
				Subsystem: "session",
				Name:      "active_subscriptions",
				Help:      "Confirmed event registrations not yet released.",
			},
			[]string{"stream"},
		),
	}
}

// Register adds the collectors to reg.
func (m *SessionMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.exchanges, m.duration, m.events, m.subscriptions} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSessionMetrics returns the process-wide set, registered once on the default registry.
func DefaultSessionMetrics() *SessionMetrics {
	defaultOnce.Do(func() {
		defaultSet = NewSessionMetrics()
	})
	registerOnce.Do(func() {
		prometheus.MustRegister(defaultSet.exchanges, defaultSet.duration, defaultSet.events, defaultSet.subscriptions)
	})
	return defaultSet
}

func (m *SessionMetrics) ObserveExchange(command string, kind session.ExchangeKind, outcome string, elapsed time.Duration) {
	m.exchanges.WithLabelValues(command, string(kind), outcome).Inc()
	m.duration.WithLabelValues(command, string(kind)).Observe(elapsed.Seconds())
}

func (m *SessionMetrics) ObserveEvent(stream string, delivered bool) {
	label := "false"
	if delivered {
		label = "true"
	}
	m.events.WithLabelValues(stream, label).Inc()
}

func (m *SessionMetrics) ObserveSubscription(stream string, delta int) {
	m.subscriptions.WithLabelValues(stream).Add(float64(delta))
}
