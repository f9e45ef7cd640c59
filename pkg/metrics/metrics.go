package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PatientsRegisteredTotal  prometheus.Counter
	ProvidersRegisteredTotal prometheus.Counter
	AccessChangesTotal       *prometheus.CounterVec
	RecordsAddedTotal        prometheus.Counter

	AuditEventsTotal *prometheus.CounterVec
	DeniedCallsTotal *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PatientsRegisteredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "patients_registered_total",
			Help:      "Total number of patients registered.",
		}),

		ProvidersRegisteredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "providers_registered_total",
			Help:      "Total number of provider registrations, including re-registrations.",
		}),

		AccessChangesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "access_changes_total",
			Help:      "Total access grant mutations by action (grant or revoke).",
		}, []string{"action"}),

		RecordsAddedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "records_added_total",
			Help:      "Total medical records added.",
		}),

		AuditEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Total audit events emitted by kind.",
		}, []string{"kind"}),

		DeniedCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "ledger",
			Name:      "denied_calls_total",
			Help:      "Total gated operations rejected, by operation. Watch for probing.",
		}, []string{"operation"}),

		RateLimitedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
