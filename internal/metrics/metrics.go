package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
)

const OutcomeAccepted = "accepted"

// Metrics counts ingestion outcomes per report kind. A nil *Metrics records nothing.
type Metrics struct {
	reports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm",
			Subsystem: "ingest",
			Name:      "reports_total",
			Help:      "Number of device reports processed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farm",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Time spent applying a device report.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(m.reports, m.duration)
	return m
}

// Observe records one processed report. err nil is an accepted report;
// otherwise the outcome is the error kind.
func (m *Metrics) Observe(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeAccepted
	if err != nil {
		outcome = ingest.KindOf(err).String()
	}
	m.reports.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
