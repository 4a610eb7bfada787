package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation pipeline.
type Metrics struct {
	RecordsConsumed  prometheus.Counter
	RecordsPublished prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Data-quality metrics.
	InvalidExpCodes *prometheus.CounterVec // labels: field={property,crop}
	Categories      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_agg",
			Name:      "records_consumed_total",
			Help:      "Total records read from the source topic.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_agg",
			Name:      "records_published_total",
			Help:      "Total cleaned records written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_agg",
			Name:      "transform_errors_total",
			Help:      "Total records skipped because cleaning failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_agg",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		InvalidExpCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_agg",
			Name:      "invalid_exp_codes_total",
			Help:      "Damage exponent codes outside the allow-list, resolved as missing.",
		}, []string{"field"}),
		Categories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_agg",
			Name:      "categories",
			Help:      "Distinct normalized event types seen by the accumulator.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_agg",
			Name:      "batch_size",
			Help:      "Number of records per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_agg",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-transform-aggregate cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.RecordsConsumed,
		m.RecordsPublished,
		m.TransformErrors,
		m.PipelineRunning,
		m.InvalidExpCodes,
		m.Categories,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsConsumed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_agg", Name: "records_consumed_total"}),
		RecordsPublished:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_agg", Name: "records_published_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_agg", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "storm_agg", Name: "pipeline_running"}),
		InvalidExpCodes:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "storm_agg", Name: "invalid_exp_codes_total"}, []string{"field"}),
		Categories:              prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "storm_agg", Name: "categories"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_agg", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_agg", Name: "batch_processing_duration_seconds"}),
	}
}
