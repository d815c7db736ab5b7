package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the aurora watcher.
type Metrics struct {
	CyclesTotal      *prometheus.CounterVec // labels: outcome={skipped,fetch_failed,quiet,notified,delivery_failed}
	SchedulerRunning prometheus.Gauge
	LastCycle        prometheus.Gauge
	NextRun          prometheus.Gauge

	// Forecast fetch metrics.
	FetchDuration  prometheus.Histogram
	FetchErrors    prometheus.Counter
	RecordsSkipped prometheus.Counter
	ForecastPeakKp prometheus.Gauge

	// Notification metrics.
	Notifications *prometheus.CounterVec // labels: channel, outcome={sent,failed}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.CyclesTotal,
		m.SchedulerRunning,
		m.LastCycle,
		m.NextRun,
		m.FetchDuration,
		m.FetchErrors,
		m.RecordsSkipped,
		m.ForecastPeakKp,
		m.Notifications,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aurora",
			Name:      "cycles_total",
			Help:      "Completed check cycles by outcome.",
		}, []string{"outcome"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aurora",
			Name:      "scheduler_running",
			Help:      "1 while the scheduler loop is active, 0 when shut down.",
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aurora",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time at which the last check cycle finished.",
		}),
		NextRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aurora",
			Name:      "next_run_timestamp_seconds",
			Help:      "Unix time of the next scheduled check.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aurora",
			Name:      "forecast_fetch_duration_seconds",
			Help:      "SWPC forecast request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aurora",
			Name:      "forecast_fetch_errors_total",
			Help:      "Forecast fetches that produced no usable data.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aurora",
			Name:      "forecast_records_skipped_total",
			Help:      "Malformed forecast rows or cells dropped while parsing.",
		}),
		ForecastPeakKp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aurora",
			Name:      "forecast_peak_kp",
			Help:      "Highest Kp in the evaluation window of the last successful fetch.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aurora",
			Name:      "notifications_total",
			Help:      "Notification attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}
