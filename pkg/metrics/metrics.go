package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reserve_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reserve_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	RedisOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_reservations_total",
			Help: "Reservation pipeline outcomes by category and operation",
		},
		[]string{"category", "operation", "outcome"},
	)

	ItemAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_item_api_calls_total",
			Help: "Total number of calls to Item Catalog Service API",
		},
		[]string{"endpoint", "status"},
	)

	ItemAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reserve_item_api_call_duration_seconds",
			Help:    "Item Catalog Service API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reserve_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	PendingReleases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reserve_pending_releases",
			Help: "Inventory releases waiting for reconciliation",
		},
	)

	ReleasesReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_releases_reconciled_total",
			Help: "Queued inventory releases processed by the reconciler",
		},
		[]string{"outcome"},
	)

	AttachmentMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_attachment_messages_total",
			Help: "Attachment association messages published",
		},
		[]string{"status"},
	)

	ServiceUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reserve_service_uptime_seconds",
			Help: "Time since Reserve Service started in seconds",
		},
	)

	ServiceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reserve_service_info",
			Help: "Reserve Service information",
		},
		[]string{"version", "build_time"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordDBQuery(queryType, table string, duration float64) {
	DBQueriesTotal.WithLabelValues(queryType, table).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
}

func RecordRedisOperation(operation, status string) {
	RedisOperationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordReservation(category, operation, outcome string) {
	ReservationsTotal.WithLabelValues(category, operation, outcome).Inc()
}

func RecordItemAPICall(endpoint, status string, duration float64) {
	ItemAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	ItemAPICallDuration.WithLabelValues(endpoint).Observe(duration)
}

func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

func RecordReleaseReconciled(outcome string) {
	ReleasesReconciledTotal.WithLabelValues(outcome).Inc()
}

func RecordAttachmentMessage(status string) {
	AttachmentMessagesTotal.WithLabelValues(status).Inc()
}
