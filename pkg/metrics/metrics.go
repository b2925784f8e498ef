package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Dispatch metrics
	DispatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total number of assignment pipeline runs",
		},
		[]string{"result"},
	)

	DispatchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_run_duration_seconds",
			Help:    "Assignment pipeline run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchesFormedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_batches_formed_total",
			Help: "Total number of candidate batches produced by clustering",
		},
	)

	AssignmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Total number of batch to driver assignments",
		},
	)

	RoutingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_routing_failures_total",
			Help: "Total number of assignments dropped because their route could not be optimized",
		},
	)

	OffersActiveGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_offers_active",
			Help: "Current number of offers awaiting a driver response",
		},
	)

	OfferOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_offer_outcomes_total",
			Help: "Total number of resolved offers by outcome",
		},
		[]string{"outcome"},
	)

	DistanceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distance_requests_total",
			Help: "Total number of distance/duration lookups by provider",
		},
		[]string{"provider", "status"},
	)

	DriversOnlineGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drivers_online_total",
			Help: "Current number of drivers with an open connection",
		},
	)

	WebsocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of open driver websocket connections",
		},
	)

	WebsocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_total",
			Help: "Total number of driver websocket frames by type and direction",
		},
		[]string{"type", "direction"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "exchange", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, code).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, code).Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(service, operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(service, operation, status(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(service, exchange string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(service, exchange, status(err)).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(service, queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, status(err)).Inc()
}

// RecordDispatchRun records a finished pipeline run.
func RecordDispatchRun(err error, batches, assignments int, duration time.Duration) {
	DispatchRunsTotal.WithLabelValues(status(err)).Inc()
	DispatchRunDuration.Observe(duration.Seconds())
	BatchesFormedTotal.Add(float64(batches))
	AssignmentsTotal.Add(float64(assignments))
}

func RecordDistanceRequest(provider string, err error) {
	DistanceRequestsTotal.WithLabelValues(provider, status(err)).Inc()
}
