// Package metrics defines the Prometheus instruments for quiz submissions,
// filter batches and identity-average publication.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the service records into.
type Metrics struct {
	submissions       *prometheus.CounterVec
	batches           *prometheus.CounterVec
	filtersetLatency  *prometheus.HistogramVec
	filtersetMatched  prometheus.Histogram
	averagesPublished prometheus.Gauge
	averagesRuns      *prometheus.CounterVec
	referenceFaults   *prometheus.CounterVec
}

// New registers all collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polcomp_submissions_total",
				Help: "Quiz submissions by outcome.",
			},
			[]string{"status"},
		),
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polcomp_filter_batches_total",
				Help: "Filter batches processed, by kind (datasets or counts) and status.",
			},
			[]string{"kind", "status"},
		),
		filtersetLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polcomp_filterset_duration_seconds",
				Help:    "Time to query and aggregate one filterset.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		filtersetMatched: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "polcomp_filterset_matched_records",
				Help:    "Records matched by one filterset after the batch limit.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9),
			},
		),
		averagesPublished: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "polcomp_identity_averages_published",
				Help: "Identities present in the last published average table.",
			},
		),
		averagesRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polcomp_identity_average_runs_total",
				Help: "Identity-average job runs by status.",
			},
			[]string{"status"},
		),
		referenceFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polcomp_reference_data_faults_total",
				Help: "Reference data loads that failed and forced a fallback.",
			},
			[]string{"resource"},
		),
	}
}

// Nop returns metrics registered against a private registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) RecordSubmission(status string) {
	m.submissions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordBatch(kind, status string) {
	m.batches.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) RecordFilterset(kind string, elapsed time.Duration, matched int) {
	m.filtersetLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.filtersetMatched.Observe(float64(matched))
}

func (m *Metrics) RecordAveragesRun(status string, published int) {
	m.averagesRuns.WithLabelValues(status).Inc()
	if status == StatusOK {
		m.averagesPublished.Set(float64(published))
	}
}

func (m *Metrics) RecordReferenceFault(resource string) {
	m.referenceFaults.WithLabelValues(resource).Inc()
}

// Status label values.
const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusDegraded = "degraded"
	StatusError    = "error"
)
