// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "orb_lab"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Backtest metrics
	CandidatesProcessed *prometheus.CounterVec
	CandidatesSkipped   *prometheus.CounterVec
	TradesEntered       prometheus.Counter
	Equity              prometheus.Gauge
	ClampedDays         prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	RowsPersisted     *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Backtest metrics
		CandidatesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "candidates_processed_total",
			Help:      "Total number of candidates processed by outcome",
		}, []string{"outcome"}),
		CandidatesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "candidates_skipped_total",
			Help:      "Total number of skipped candidates by reason",
		}, []string{"reason"}),
		TradesEntered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_entered_total",
			Help:      "Total number of simulated trades that triggered entry",
		}),
		Equity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "equity_dollars",
			Help:      "Equity at the end of the last simulated day",
		}),
		ClampedDays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "clamped_days_total",
			Help:      "Total number of days equity was clamped to the floor",
		}),

		// Pipeline metrics
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		RowsPersisted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_persisted_total",
			Help:      "Total number of output rows persisted by table",
		}, []string{"table"}),

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
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordCandidate counts one processed candidate.
func (m *Metrics) RecordCandidate(outcome, skipReason string) {
	if m == nil {
		return
	}
	m.CandidatesProcessed.WithLabelValues(outcome).Inc()
	if skipReason != "" {
		m.CandidatesSkipped.WithLabelValues(skipReason).Inc()
	}
}

// RecordEntered increments the entered trades counter.
func (m *Metrics) RecordEntered() {
	if m == nil {
		return
	}
	m.TradesEntered.Inc()
}

// RecordEquity updates the equity gauge and counts clamped days.
func (m *Metrics) RecordEquity(equity float64, clamped bool) {
	if m == nil {
		return
	}
	m.Equity.Set(equity)
	if clamped {
		m.ClampedDays.Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func (m *Metrics) RecordPipelineRun(phase, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordRowsPersisted adds n rows to the persisted counter for table.
func (m *Metrics) RecordRowsPersisted(table string, n int) {
	if m == nil {
		return
	}
	m.RowsPersisted.WithLabelValues(table).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSuccess stamps the last successful pipeline run.
func (m *Metrics) RecordSuccess(unixSeconds int64) {
	if m == nil {
		return
	}
	m.LastSuccessfulPipeline.Set(float64(unixSeconds))
}
