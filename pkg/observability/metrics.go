package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Entitlement metrics
	EntitlementDecisionsTotal *prometheus.CounterVec
	SlotReservationsTotal     *prometheus.CounterVec
	UsageQueryDuration        prometheus.Histogram

	// Payment metrics
	PaymentEventsTotal      *prometheus.CounterVec
	DuplicateDeliveryTotal  prometheus.Counter
	ProviderCallDuration    *prometheus.HistogramVec
	ProviderErrorsTotal     *prometheus.CounterVec
	ActivationsTotal        *prometheus.CounterVec
	StalePendingLedgerCount prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entitlement_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		EntitlementDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_decisions_total",
				Help: "Entitlement check outcomes by decision and reason",
			},
			[]string{"decision", "reason"},
		),
		SlotReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_slot_reservations_total",
				Help: "Posting slot reservation attempts by outcome",
			},
			[]string{"outcome"},
		),
		UsageQueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "entitlement_usage_query_duration_seconds",
				Help:    "Duration of usage-count queries against the listings store",
				Buckets: prometheus.DefBuckets,
			},
		),
		PaymentEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_payment_events_total",
				Help: "Confirmed-payment events by terminal outcome",
			},
			[]string{"outcome"},
		),
		DuplicateDeliveryTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "entitlement_duplicate_payment_deliveries_total",
				Help: "Payment deliveries short-circuited by the idempotency guard",
			},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "entitlement_provider_call_duration_seconds",
				Help:    "Duration of calls to the external payment provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ProviderErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_provider_errors_total",
				Help: "Payment provider call failures by kind",
			},
			[]string{"kind"},
		),
		ActivationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "entitlement_activations_total",
				Help: "Subscription activations by plan",
			},
			[]string{"plan"},
		),
		StalePendingLedgerCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "entitlement_stale_pending_ledger_entries",
				Help: "Ledger entries stuck in PENDING past the reconciliation age",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "entitlement_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "entitlement_db_connections_idle",
				Help: "Idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EntitlementDecisionsTotal,
		m.SlotReservationsTotal,
		m.UsageQueryDuration,
		m.PaymentEventsTotal,
		m.DuplicateDeliveryTotal,
		m.ProviderCallDuration,
		m.ProviderErrorsTotal,
		m.ActivationsTotal,
		m.StalePendingLedgerCount,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments a handler with request count and duration metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
