package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for check-ins, broadcasts and release
// gates. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CheckInEvents      *prometheus.CounterVec
	IdentifiersCreated *prometheus.CounterVec
	BroadcastFailures  *prometheus.CounterVec
	GateDenials        *prometheus.CounterVec
	BroadcastDuration  prometheus.Histogram
}

// New registers the metrics on the default Prometheus registry. Call it
// once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckInEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_checkin_events_total",
			Help: "Check-in events appended to the log",
		}, []string{"kind", "state"}),
		IdentifiersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_checkin_identifiers_created_total",
			Help: "Barcodes newly attached to checkables",
		}, []string{"kind"}),
		BroadcastFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_checkin_broadcast_failures_total",
			Help: "Live broadcasts that failed and were discarded",
		}, []string{"type"}),
		GateDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tournament_gate_denials_total",
			Help: "Requests rejected by a release gate",
		}, []string{"resource"}),
		BroadcastDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tournament_checkin_broadcast_duration_seconds",
			Help:    "Duration of a single broadcast publish",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
	}
}

// IncrementCheckIn records one appended event.
func (m *Metrics) IncrementCheckIn(kind string, state bool) {
	if m == nil {
		return
	}
	s := "out"
	if state {
		s = "in"
	}
	m.CheckInEvents.WithLabelValues(kind, s).Inc()
}

// AddIdentifiersCreated records n newly created identifiers.
func (m *Metrics) AddIdentifiersCreated(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.IdentifiersCreated.WithLabelValues(kind).Add(float64(n))
}

// IncrementBroadcastFailure records a discarded broadcast.
func (m *Metrics) IncrementBroadcastFailure(typ string) {
	if m == nil {
		return
	}
	m.BroadcastFailures.WithLabelValues(typ).Inc()
}

// IncrementGateDenial records a request rejected by a release gate.
func (m *Metrics) IncrementGateDenial(resource string) {
	if m == nil {
		return
	}
	m.GateDenials.WithLabelValues(resource).Inc()
}

// ObserveBroadcast records the duration of a publish.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveBroadcast(start time.Time) {
	if m == nil {
		return
	}
	m.BroadcastDuration.Observe(time.Since(start).Seconds())
}
