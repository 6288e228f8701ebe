package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_lens"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Model calls.
	ModelRequests    *prometheus.CounterVec   // labels: method={analyze,image}, outcome={success,error,canceled,empty,parse_error,no_image,disabled}
	ModelAPIDuration *prometheus.HistogramVec // labels: method={analyze,image}
	BreakerOpen      *prometheus.GaugeVec     // labels: breaker

	// Session orchestration.
	Selections        prometheus.Counter
	StaleCompletions  *prometheus.CounterVec // labels: stage={analysis,image,alert}
	ActiveSessions    prometheus.Gauge
	SelectionDuration prometheus.Histogram

	// Alerting and geolocation.
	StormAlerts        prometheus.Counter
	AlertNotifyErrors  prometheus.Counter
	GeolocationLookups *prometheus.CounterVec // labels: source={geoip,default}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ModelRequests,
		m.ModelAPIDuration,
		m.BreakerOpen,
		m.Selections,
		m.StaleCompletions,
		m.ActiveSessions,
		m.SelectionDuration,
		m.StormAlerts,
		m.AlertNotifyErrors,
		m.GeolocationLookups,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ModelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Generative model requests by method and outcome.",
		}, []string{"method", "outcome"}),
		ModelAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_api_duration_seconds",
			Help:      "Generative model API request duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"method"}),
		BreakerOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while the named circuit breaker is open, 0 otherwise.",
		}, []string{"breaker"}),
		Selections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Total location selections across all sessions.",
		}),
		StaleCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_completions_total",
			Help:      "Completions discarded because a newer selection superseded them.",
		}, []string{"stage"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live sessions.",
		}),
		SelectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selection_duration_seconds",
			Help:      "Duration from location selection to image completion.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
		}),
		StormAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storm_alerts_total",
			Help:      "Storm proximity alerts emitted.",
		}),
		AlertNotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_notify_errors_total",
			Help:      "Storm alerts that a notifier failed to deliver.",
		}),
		GeolocationLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geolocation_lookups_total",
			Help:      "User geolocation lookups by resulting source.",
		}, []string{"source"}),
	}
}
