package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PartDetectionMetrics records outcomes of the part detection workflow.
// It implements partdetection.Recorder.
type PartDetectionMetrics struct {
	relabelAdmissions    *prometheus.CounterVec
	relabelEvictions     prometheus.Counter
	metricsFetchDuration prometheus.Histogram
	metricsFetchErrors   *prometheus.CounterVec
	configureTotal       *prometheus.CounterVec
}

// NewPartDetectionMetrics creates the workflow collectors and registers
// them with registry.
func NewPartDetectionMetrics(registry prometheus.Registerer) (*PartDetectionMetrics, error) {
	m := &PartDetectionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register part detection metrics: %w", err)
	}
	return m, nil
}

func (m *PartDetectionMetrics) initMetrics() {
	m.relabelAdmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "relabel_admissions_total",
			Help:      "Relabel image uploads by admission decision",
		},
		[]string{"decision"}, // accepted, queued, rejected
	)

	m.relabelEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "relabel_evictions_total",
		Help:      "Relabel images removed to keep pools within capacity",
	})

	m.metricsFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "metrics_fetch_duration_seconds",
		Help:      "Time taken to read metrics from inference modules",
		Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})

	m.metricsFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "metrics_fetch_errors_total",
			Help:      "Failed inference module metrics reads by kind",
		},
		[]string{"kind"}, // unreachable, bad_status, bad_body
	)

	m.configureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "configure_total",
			Help:      "Part detection configure requests by result",
		},
		[]string{"result"}, // ok, rejected, error
	)
}

// RecordAdmission counts one relabel admission decision.
func (m *PartDetectionMetrics) RecordAdmission(decision string) {
	m.relabelAdmissions.WithLabelValues(decision).Inc()
}

// RecordEvictions counts evicted relabel images.
func (m *PartDetectionMetrics) RecordEvictions(n int) {
	if n > 0 {
		m.relabelEvictions.Add(float64(n))
	}
}

// RecordMetricsFetch observes one metrics read. Outcomes other than "ok"
// also count as errors of that kind.
func (m *PartDetectionMetrics) RecordMetricsFetch(elapsed time.Duration, outcome string) {
	m.metricsFetchDuration.Observe(elapsed.Seconds())
	if outcome != "ok" {
		m.metricsFetchErrors.WithLabelValues(outcome).Inc()
	}
}

// RecordConfigure counts one configure request.
func (m *PartDetectionMetrics) RecordConfigure(result string) {
	m.configureTotal.WithLabelValues(result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *PartDetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.relabelAdmissions.Describe(ch)
	ch <- m.relabelEvictions.Desc()
	ch <- m.metricsFetchDuration.Desc()
	m.metricsFetchErrors.Describe(ch)
	m.configureTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PartDetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.relabelAdmissions.Collect(ch)
	ch <- m.relabelEvictions
	ch <- m.metricsFetchDuration
	m.metricsFetchErrors.Collect(ch)
	m.configureTotal.Collect(ch)
}
