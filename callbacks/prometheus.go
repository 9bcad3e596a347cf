package callbacks

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/emberml/ember"
)

// MetricsExporterConfig holds configuration options for a MetricsExporter.
type MetricsExporterConfig struct {
	// Registerer is the Prometheus registry the collectors are registered
	// with. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Namespace prefixes the metric names. Defaults to "ember".
	Namespace string
}

// MetricsExporter mirrors engine activity into Prometheus collectors: epoch
// and iteration counters, duration histograms, and one gauge per key in the
// engine's Metrics. Pair it with promhttp in a long-running training service.
type MetricsExporter[B any] struct {
	cfg MetricsExporterConfig

	epochsTotal       prometheus.Counter
	iterationsTotal   prometheus.Counter
	epochDuration     prometheus.Histogram
	iterationDuration prometheus.Histogram
	engineGauges      *prometheus.GaugeVec
	engineCounters    *prometheus.GaugeVec
}

// NewMetricsExporter creates a MetricsExporter from the config.
func NewMetricsExporter[B any](cfg MetricsExporterConfig) *MetricsExporter[B] {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "ember"
	}
	return &MetricsExporter[B]{cfg: cfg}
}

// Register creates and registers the collectors, then attaches the handlers.
// Implements ember.Callback.
func (m *MetricsExporter[B]) Register(e *ember.Engine[B]) error {
	m.epochsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.cfg.Namespace,
		Name:      "epochs_completed_total",
		Help:      "Total number of completed epochs.",
	})
	m.iterationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.cfg.Namespace,
		Name:      "iterations_completed_total",
		Help:      "Total number of completed iterations.",
	})
	m.epochDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.cfg.Namespace,
		Name:      "epoch_duration_seconds",
		Help:      "Duration of each epoch, in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	m.iterationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.cfg.Namespace,
		Name:      "iteration_duration_seconds",
		Help:      "Duration of each iteration, in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	m.engineGauges = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.cfg.Namespace,
		Name:      "metric_gauge",
		Help:      "Current value of each engine metric gauge.",
	}, []string{"key"})
	m.engineCounters = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.cfg.Namespace,
		Name:      "metric_counter",
		Help:      "Current value of each engine metric counter.",
	}, []string{"key"})

	collectors := []prometheus.Collector{
		m.epochsTotal,
		m.iterationsTotal,
		m.epochDuration,
		m.iterationDuration,
		m.engineGauges,
		m.engineCounters,
	}
	for _, c := range collectors {
		if err := m.cfg.Registerer.Register(c); err != nil {
			return fmt.Errorf("register prometheus collector: %w", err)
		}
	}

	e.Register(m)
	return nil
}

func (m *MetricsExporter[B]) OnIterationCompleted(
	e *ember.Engine[B],
	event *ember.IterationCompletedEvent,
) {
	m.iterationsTotal.Inc()
	m.iterationDuration.Observe(event.Duration.Seconds())
}

func (m *MetricsExporter[B]) OnEpochCompleted(
	e *ember.Engine[B],
	event *ember.EpochCompletedEvent,
) {
	m.epochsTotal.Inc()
	m.epochDuration.Observe(event.Duration.Seconds())
	m.export(e)
}

func (m *MetricsExporter[B]) OnCompleted(e *ember.Engine[B], event *ember.CompletedEvent) {
	m.export(e)
}

// export mirrors the engine's metric maps into the label-keyed collectors.
func (m *MetricsExporter[B]) export(e *ember.Engine[B]) {
	for key, value := range e.Metrics().Gauges() {
		m.engineGauges.WithLabelValues(key).Set(value)
	}
	for key, value := range e.Metrics().Counters() {
		m.engineCounters.WithLabelValues(key).Set(float64(value))
	}
}

var _ ember.Callback[any] = (*MetricsExporter[any])(nil)
