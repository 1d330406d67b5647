// Package metrics exposes Prometheus instrumentation for chart computation,
// export and index maintenance.
package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fehu_"

	resultSuccess = "success"
	resultError   = "error"
)

// Result labels.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

var (
	registerOnce sync.Once

	computeTotal   *prometheus.CounterVec
	computeLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	syncTotal      *prometheus.CounterVec
	streamWarnings *prometheus.CounterVec
)

// Init registers the metrics with the default registry. chartCount, if
// non-nil, backs a gauge with the number of indexed charts.
func Init(chartCount func() (int, error), logger *slog.Logger) {
	registerOnce.Do(func() {
		computeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chart_compute_total",
				Help: "Total chart data computations by result",
			},
			[]string{"result"},
		)
		computeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "chart_compute_latency_seconds",
				Help:    "Chart data computation latency in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chart_export_total",
				Help: "Total chart exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "chart_export_latency_seconds",
				Help:    "Chart export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		syncTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "index_sync_total",
				Help: "Total vault sync passes by result",
			},
			[]string{"result"},
		)
		streamWarnings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_warnings_total",
				Help: "Streams reported during computation by kind (inverted, skipped)",
			},
			[]string{"kind"},
		)

		prometheus.MustRegister(
			computeTotal,
			computeLatency,
			exportTotal,
			exportLatency,
			syncTotal,
			streamWarnings,
		)

		if chartCount != nil {
			prometheus.MustRegister(prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: metricPrefix + "index_charts",
					Help: "Number of charts in the index",
				},
				func() float64 {
					n, err := chartCount()
					if err != nil {
						if logger != nil {
							logger.Warn("metrics: count charts failed", slog.String("error", err.Error()))
						}
						return 0
					}
					return float64(n)
				},
			))
		}
	})
}

// ObserveCompute records a chart computation.
func ObserveCompute(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if computeTotal != nil {
		computeTotal.WithLabelValues(result).Inc()
	}
	if computeLatency != nil {
		computeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records a chart export.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncSync counts a vault sync pass.
func IncSync(result string) {
	if result == "" {
		result = resultSuccess
	}
	if syncTotal != nil {
		syncTotal.WithLabelValues(result).Inc()
	}
}

// AddStreamWarnings counts streams reported during computation.
func AddStreamWarnings(kind string, n int) {
	if n <= 0 {
		return
	}
	if streamWarnings != nil {
		streamWarnings.WithLabelValues(kind).Add(float64(n))
	}
}

// ResultOf maps an error to a result label.
func ResultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
