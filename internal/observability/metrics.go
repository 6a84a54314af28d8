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
	// Ingestion metrics
	BarsIngested    *prometheus.CounterVec
	IngestionErrors *prometheus.CounterVec

	// Simulation metrics
	SimulationsTotal   *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	TradesClosed       *prometheus.CounterVec

	// Analysis metrics
	AnalysisRunsTotal *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	AnalysisProgress  *prometheus.GaugeVec
	DecisionsTotal    *prometheus.CounterVec

	// Verification metrics
	VerificationsTotal *prometheus.CounterVec
	InvariantFailures  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulAnalysis  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "regime_tier_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		BarsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of price bars stored",
		}, []string{"symbol"}),
		IngestionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of failed symbol ingestions",
		}, []string{"symbol"}),

		// Simulation metrics
		SimulationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"status"}),
		SimulationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "Single simulation run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		TradesClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_closed_total",
			Help:      "Total number of closed trades by exit kind",
		}, []string{"exit_kind"}),

		// Analysis metrics
		AnalysisRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by kind and status",
		}, []string{"kind", "status"}),
		AnalysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800},
		}, []string{"kind"}),
		AnalysisProgress: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "progress_ratio",
			Help:      "Completed fraction of the running analysis",
		}, []string{"kind"}),
		DecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "decisions_total",
			Help:      "Total number of gate decisions by outcome",
		}, []string{"decision"}),

		// Verification metrics
		VerificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "runs_total",
			Help:      "Total number of run verifications by result",
		}, []string{"result"}),
		InvariantFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "invariant_failures_total",
			Help:      "Total number of invariant violations by invariant",
		}, []string{"invariant"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulAnalysis: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordBarsIngested adds stored bars of a symbol.
func (m *Metrics) RecordBarsIngested(symbol string, n int, unixTime int64) {
	m.BarsIngested.WithLabelValues(symbol).Add(float64(n))
	m.LastSuccessfulIngestion.Set(float64(unixTime))
}

// RecordIngestionError records a failed symbol ingestion.
func (m *Metrics) RecordIngestionError(symbol string) {
	m.IngestionErrors.WithLabelValues(symbol).Inc()
}

// RecordSimulation records one simulation run and its closed trades by exit kind.
func (m *Metrics) RecordSimulation(seconds float64, err error, exits map[string]int) {
	if err != nil {
		m.SimulationsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SimulationsTotal.WithLabelValues("success").Inc()
	m.SimulationDuration.Observe(seconds)
	for kind, n := range exits {
		m.TradesClosed.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordAnalysis records a finished analysis run.
func (m *Metrics) RecordAnalysis(kind string, seconds float64, err error, unixTime int64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AnalysisRunsTotal.WithLabelValues(kind, status).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(seconds)
	if err == nil {
		m.LastSuccessfulAnalysis.Set(float64(unixTime))
	}
}

// UpdateProgress sets the completed fraction of a running analysis.
func (m *Metrics) UpdateProgress(kind string, completed, total int) {
	if total <= 0 {
		return
	}
	m.AnalysisProgress.WithLabelValues(kind).Set(float64(completed) / float64(total))
}

// RecordDecision records a gate outcome.
func (m *Metrics) RecordDecision(decision string) {
	m.DecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordVerification records a run verification and its invariant violations.
func (m *Metrics) RecordVerification(ok bool, invariants []string) {
	result := "match"
	if !ok {
		result = "divergent"
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
	for _, inv := range invariants {
		m.InvariantFailures.WithLabelValues(inv).Inc()
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
