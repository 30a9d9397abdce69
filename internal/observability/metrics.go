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
	// Acquisition metrics
	KlinesFetched      prometheus.Counter
	KlineFetchErrors   *prometheus.CounterVec
	KlineFetchLatency  prometheus.Histogram
	PriceRecordsStored prometheus.Counter

	// Sweep metrics
	SimulationRuns         *prometheus.CounterVec
	CandidatesDisqualified *prometheus.CounterVec
	SweepDuration          prometheus.Histogram
	TradesSimulated        prometheus.Counter

	// Campaign metrics
	CampaignRunsTotal prometheus.Counter
	CampaignDuration  *prometheus.HistogramVec
	SymbolsOptimized  prometheus.Counter
	SymbolsSkipped    prometheus.Counter
	ProveWindowsRun   prometheus.Counter

	// Distribution metrics
	ConfigsPublished  prometheus.Counter
	ConfigSubscribers prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "coin_strategy_lab"
	}

	return &Metrics{
		// Acquisition metrics
		KlinesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "klines_fetched_total",
			Help:      "Total number of klines fetched from the caching proxy",
		}),
		KlineFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "kline_fetch_errors_total",
			Help:      "Total number of kline fetch failures by kind",
		}, []string{"kind"}),
		KlineFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "kline_fetch_latency_seconds",
			Help:      "Latency of kline proxy requests",
			Buckets:   prometheus.DefBuckets,
		}),
		PriceRecordsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "price_records_stored_total",
			Help:      "Total number of price records written to storage",
		}),

		// Sweep metrics
		SimulationRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "simulation_runs_total",
			Help:      "Total number of simulation runs by outcome",
		}, []string{"status"}),
		CandidatesDisqualified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "candidates_disqualified_total",
			Help:      "Total number of disqualified candidate configurations by reason",
		}, []string{"reason"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of one full parameter sweep",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "trades_simulated_total",
			Help:      "Total number of trade records produced by simulations",
		}),

		// Campaign metrics
		CampaignRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "runs_total",
			Help:      "Total number of campaign runs",
		}),
		CampaignDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "duration_seconds",
			Help:      "Duration of a campaign run by mode",
			Buckets:   []float64{1, 10, 60, 300, 1800, 7200},
		}, []string{"mode"}),
		SymbolsOptimized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "symbols_optimized_total",
			Help:      "Total number of symbols with a selected configuration",
		}),
		SymbolsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "symbols_skipped_total",
			Help:      "Total number of symbols skipped (data gap or fully disqualified)",
		}),
		ProveWindowsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "campaign",
			Name:      "prove_windows_total",
			Help:      "Total number of rolling prove windows completed",
		}),

		// Distribution metrics
		ConfigsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "configs_published_total",
			Help:      "Total number of tuned configs published",
		}),
		ConfigSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "subscribers",
			Help:      "Current number of websocket subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordKlinesFetched adds to the fetched-kline counter.
func RecordKlinesFetched(n int) {
	DefaultMetrics.KlinesFetched.Add(float64(n))
}

// RecordKlineFetchError records a kline fetch failure.
func RecordKlineFetchError(kind string) {
	DefaultMetrics.KlineFetchErrors.WithLabelValues(kind).Inc()
}

// RecordPriceRecordsStored adds to the stored-record counter.
func RecordPriceRecordsStored(n int) {
	DefaultMetrics.PriceRecordsStored.Add(float64(n))
}

// RecordSimulationRun records one simulation run outcome.
func RecordSimulationRun(status string) {
	DefaultMetrics.SimulationRuns.WithLabelValues(status).Inc()
}

// RecordDisqualification records a disqualified candidate by reason.
func RecordDisqualification(reason string) {
	DefaultMetrics.CandidatesDisqualified.WithLabelValues(reason).Inc()
}

// RecordCampaignRun records one campaign run with its duration.
func RecordCampaignRun(mode string, durationSeconds float64) {
	DefaultMetrics.CampaignRunsTotal.Inc()
	DefaultMetrics.CampaignDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordCampaignOutcome records how many symbols were optimized vs skipped.
func RecordCampaignOutcome(optimized, skipped int) {
	DefaultMetrics.SymbolsOptimized.Add(float64(optimized))
	DefaultMetrics.SymbolsSkipped.Add(float64(skipped))
}

// RecordProveWindow records one completed rolling window.
func RecordProveWindow() {
	DefaultMetrics.ProveWindowsRun.Inc()
}

// RecordConfigPublished records one published config and the subscriber count.
func RecordConfigPublished(subscribers int) {
	DefaultMetrics.ConfigsPublished.Inc()
	DefaultMetrics.ConfigSubscribers.Set(float64(subscribers))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
