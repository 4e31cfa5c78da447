// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Extraction metrics
	APIRequests      *prometheus.CounterVec
	APIRequestTime   *prometheus.HistogramVec
	TickersExtracted *prometheus.CounterVec
	RowsExtracted    prometheus.Counter

	// Load metrics
	RowsLoaded  prometheus.Counter
	RowsSkipped prometheus.Counter

	// Index metrics
	DaysProcessed      prometheus.Counter
	RebalanceDays      prometheus.Counter
	DegenerateDays     prometheus.Counter
	LastIndexLevel     prometheus.Gauge
	LastConstituents   prometheus.Gauge
	VerificationIssues prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API server metrics
	HTTPRequests *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg means the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "equal_weight_index"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Extraction metrics
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "requests_total",
			Help:      "Market data API requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		APIRequestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "request_duration_seconds",
			Help:      "Market data API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TickersExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "tickers_total",
			Help:      "Tickers processed by extraction outcome",
		}, []string{"outcome"}),
		RowsExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "rows_extracted_total",
			Help:      "Total number of price rows extracted",
		}),

		// Load metrics
		RowsLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "rows_loaded_total",
			Help:      "Total number of price rows stored",
		}),
		RowsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "rows_skipped_total",
			Help:      "Total number of invalid price rows skipped",
		}),

		// Index metrics
		DaysProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "days_processed_total",
			Help:      "Total number of trading days folded",
		}),
		RebalanceDays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "rebalance_days_total",
			Help:      "Total number of days whose constituent set changed",
		}),
		DegenerateDays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "degenerate_days_total",
			Help:      "Days after inception with no usable shared prices",
		}),
		LastIndexLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "last_level",
			Help:      "Index level on the last day of the latest run",
		}),
		LastConstituents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "last_constituents",
			Help:      "Constituent count on the last day of the latest run",
		}),
		VerificationIssues: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "verification_issues",
			Help:      "Verification divergences found in the latest run",
		}),

		// Pipeline metrics
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"stage", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		ReportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of report files written by format",
		}, []string{"format"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API server metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route and status code",
		}, []string{"route", "code"}),

		// Health metrics
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordAPIRequest records one market data API call.
func RecordAPIRequest(endpoint, status string, seconds float64) {
	DefaultMetrics.APIRequests.WithLabelValues(endpoint, status).Inc()
	DefaultMetrics.APIRequestTime.WithLabelValues(endpoint).Observe(seconds)
}

// RecordTickerExtracted records the outcome for one ticker ("ok" or "failed").
func RecordTickerExtracted(outcome string, rows int) {
	DefaultMetrics.TickersExtracted.WithLabelValues(outcome).Inc()
	DefaultMetrics.RowsExtracted.Add(float64(rows))
}

// RecordLoad records a loaded chunk.
func RecordLoad(stored, skipped int) {
	DefaultMetrics.RowsLoaded.Add(float64(stored))
	DefaultMetrics.RowsSkipped.Add(float64(skipped))
}

// RecordIndexRun records the shape of a completed fold.
func RecordIndexRun(days, rebalanceDays, degenerateDays int, lastLevel float64, lastConstituents int) {
	DefaultMetrics.DaysProcessed.Add(float64(days))
	DefaultMetrics.RebalanceDays.Add(float64(rebalanceDays))
	DefaultMetrics.DegenerateDays.Add(float64(degenerateDays))
	DefaultMetrics.LastIndexLevel.Set(lastLevel)
	DefaultMetrics.LastConstituents.Set(float64(lastConstituents))
}

// RecordVerification sets the divergence count of the latest verification.
func RecordVerification(issues int) {
	DefaultMetrics.VerificationIssues.Set(float64(issues))
}

// RecordReport increments the report counter for format.
func RecordReport(format string) {
	DefaultMetrics.ReportsGenerated.WithLabelValues(format).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest records one served API request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(stage, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordPipelineSuccess stamps the last successful pipeline run.
func RecordPipelineSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulPipeline.Set(float64(unixSeconds))
}
