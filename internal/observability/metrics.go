package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the flood pipeline.
type Metrics struct {
	RowsRead         prometheus.Counter
	RowsDropped      prometheus.Counter
	RecordsProcessed prometheus.Counter
	FloodsDetected   prometheus.Counter
	OutliersDetected prometheus.Counter

	DatasetsProcessed  *prometheus.CounterVec // labels: outcome={success,error}
	ProcessingDuration prometheus.Histogram
	DatasetLoaded      prometheus.Gauge

	// Forecast metrics.
	ForecastFits        *prometheus.CounterVec // labels: outcome={success,insufficient,invalid,error,cancelled}
	ForecastFitDuration prometheus.Histogram

	// Sink metrics.
	ExportsWritten *prometheus.CounterVec // labels: sink={csv,kafka}
	ExportErrors   *prometheus.CounterVec // labels: sink={csv,kafka}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total raw rows extracted from sources.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Total rows dropped because their date could not be parsed.",
		}),
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total cleaned, classified records produced.",
		}),
		FloodsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "floods_detected_total",
			Help:      "Total records classified as flood events.",
		}),
		OutliersDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outliers_detected_total",
			Help:      "Total records flagged as water-level outliers.",
		}),
		DatasetsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datasets_processed_total",
			Help:      "Processing actions by outcome.",
		}, []string{"outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Duration of a complete extract-process-load action.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DatasetLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded",
			Help:      "1 once a processed dataset is available, 0 before.",
		}),
		ForecastFits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_fits_total",
			Help:      "Forecast runs by outcome.",
		}, []string{"outcome"}),
		ForecastFitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_fit_duration_seconds",
			Help:      "Duration of model fitting and evaluation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ExportsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_written_total",
			Help:      "Datasets delivered by sink.",
		}, []string{"sink"}),
		ExportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_errors_total",
			Help:      "Failed dataset deliveries by sink.",
		}, []string{"sink"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsRead,
		m.RowsDropped,
		m.RecordsProcessed,
		m.FloodsDetected,
		m.OutliersDetected,
		m.DatasetsProcessed,
		m.ProcessingDuration,
		m.DatasetLoaded,
		m.ForecastFits,
		m.ForecastFitDuration,
		m.ExportsWritten,
		m.ExportErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
