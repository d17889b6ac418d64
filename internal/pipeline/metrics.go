package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline throughput for the /metrics endpoint.
type Metrics struct {
	activeRuns    prometheus.Gauge
	runsCompleted *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics registers pipeline collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "outloud_pipeline_active_runs",
			Help: "Number of items currently being processed.",
		}),
		runsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outloud_pipeline_runs_total",
			Help: "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outloud_pipeline_stage_duration_seconds",
			Help:    "Wall-clock time spent per pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) runFinished(outcome string) {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
	m.runsCompleted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}
