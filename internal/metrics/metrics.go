package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gatehouse"

// Metrics holds the access-control counters.  A nil *Metrics is valid and
// records nothing, which keeps tests free of registry setup.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	LateExits   prometheus.Counter
	QRScans     *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
	HTTPLatency *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Successful request and person state transitions by audit action.",
		}, []string{"action", "category"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Operations refused by a state or policy check, by reason.",
		}, []string{"operation", "reason"}),
		LateExits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_exits_total",
			Help:      "Worker exits flagged after the exit deadline.",
		}),
		QRScans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_scans_total",
			Help:      "QR tokens presented at checkpoints, by outcome.",
		}, []string{"outcome"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Repository failures surfaced to callers.",
		}, []string{"operation"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Transition(action, category string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, category).Inc()
}

func (m *Metrics) Rejection(operation, reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(operation, reason).Inc()
}

func (m *Metrics) LateExit() {
	if m == nil {
		return
	}
	m.LateExits.Inc()
}

func (m *Metrics) QRScan(outcome string) {
	if m == nil {
		return
	}
	m.QRScans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}
