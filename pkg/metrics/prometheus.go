package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	collections *prometheus.CounterVec
	trainings   *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	accuracy    *prometheus.GaugeVec
	insights    *prometheus.CounterVec
	syncs       *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		collections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitlearn_collections_total",
				Help: "Telemetry samples collected, by category and whether the synthetic fallback was used",
			},
			[]string{"category", "fallback"},
		),
		trainings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitlearn_trainings_total",
				Help: "Completed training passes per model",
			},
			[]string{"model"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitlearn_trainings_skipped_total",
				Help: "Training passes skipped for lack of data",
			},
			[]string{"model"},
		),
		accuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bitlearn_model_accuracy",
				Help: "Accuracy after the latest training pass",
			},
			[]string{"model"},
		),
		insights: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitlearn_insights_total",
				Help: "Insights generated, by type",
			},
			[]string{"type"},
		),
		syncs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitlearn_cloud_sync_total",
				Help: "Cloud sync phases, by phase and result",
			},
			[]string{"phase", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitlearn_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitlearn_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCollection(category string, fallback bool) {
	label := "false"
	if fallback {
		label = "true"
	}
	r.collections.WithLabelValues(category, label).Inc()
}

// RecordTraining counts a pass and sets the model's accuracy gauge.
func (r *Recorder) RecordTraining(modelID string, accuracy float64) {
	r.trainings.WithLabelValues(modelID).Inc()
	r.accuracy.WithLabelValues(modelID).Set(accuracy)
}

func (r *Recorder) RecordTrainingSkipped(modelID string) {
	r.skipped.WithLabelValues(modelID).Inc()
}

func (r *Recorder) RecordInsights(insightType string, n int) {
	r.insights.WithLabelValues(insightType).Add(float64(n))
}

// RecordSync records a pull or push outcome.
func (r *Recorder) RecordSync(phase string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		r.errorsTotal.WithLabelValues("sync_" + phase).Inc()
	}
	r.syncs.WithLabelValues(phase, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
