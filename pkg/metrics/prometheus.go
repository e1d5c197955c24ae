package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	computation *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	cache       *prometheus.CounterVec
	healthScore prometheus.Histogram
	jobs        *prometheus.CounterVec
	events      *prometheus.CounterVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		computation: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cashpilot_computation_duration_seconds",
				Help:    "Duration of cash-flow computations including ledger reads",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashpilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashpilot_cache_requests_total",
				Help: "Result cache lookups by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		healthScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cashpilot_health_score",
				Help:    "Distribution of computed health scores",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
		jobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashpilot_jobs_total",
				Help: "Background jobs by type and outcome",
			},
			[]string{"type", "status"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cashpilot_events_consumed_total",
				Help: "Kafka messages consumed by topic and outcome",
			},
			[]string{"topic", "status"},
		),
	}
}

// RecordComputation records operation latency in seconds.
func (r *Recorder) RecordComputation(op string, seconds float64) {
	r.computation.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordCacheResult(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) RecordHealthScore(score int) {
	r.healthScore.Observe(float64(score))
}

func (r *Recorder) RecordJob(jobType, status string) {
	r.jobs.WithLabelValues(jobType, status).Inc()
}

func (r *Recorder) RecordEvent(topic, status string) {
	r.events.WithLabelValues(topic, status).Inc()
}
