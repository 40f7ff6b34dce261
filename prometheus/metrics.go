package prometheus

import (
	"time"

	"marketplace-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Manufacturer context metrics
	ManufacturerContextMissingCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Domain operation metrics
	AuthorizationOperationsCounter prometheus.CounterVec
	ResolutionOperationsCounter    prometheus.CounterVec
	DispatchOperationsCounter      prometheus.CounterVec
	LifecycleOperationsCounter     prometheus.CounterVec

	// Resolution failure counter (chain gaps, scope misses)
	ResolutionFailuresCounter prometheus.Counter

	// Unattributed dispatch items (the "unknown" bucket)
	UnattributedItemsCounter prometheus.Counter

	// Manufacturer orders by status
	ManufacturerOrdersGauge prometheus.GaugeVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	// Manufacturer context metrics
	ManufacturerContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_manufacturer_context_missing_total",
			Help: "Total number of requests without manufacturer context",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Domain operation metrics
	AuthorizationOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_authorization_operations_total",
			Help: "Total number of authorization edge operations",
		},
		[]string{"operation"},
	)

	ResolutionOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_resolution_operations_total",
			Help: "Total number of commission/discount resolutions",
		},
		[]string{"outcome"},
	)

	DispatchOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_dispatch_operations_total",
			Help: "Total number of order dispatch attempts",
		},
		[]string{"outcome"},
	)

	LifecycleOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_lifecycle_operations_total",
			Help: "Total number of manufacturer order lifecycle transitions",
		},
		[]string{"operation"},
	)

	ResolutionFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_resolution_failures_total",
			Help: "Total number of resolutions that failed closed (no applicable authorization)",
		},
	)

	UnattributedItemsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_unattributed_items_total",
			Help: "Total number of dispatched items with no resolvable manufacturer",
		},
	)

	ManufacturerOrdersGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_manufacturer_orders",
			Help: "Number of manufacturer orders by status",
		},
		[]string{"status"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordAuthorizationOperation increments the counter for edge operations
func RecordAuthorizationOperation(operation string) {
	AuthorizationOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordResolution increments the resolution counter by outcome
func RecordResolution(outcome string) {
	ResolutionOperationsCounter.WithLabelValues(outcome).Inc()
}

// RecordDispatch increments the dispatch counter by outcome
func RecordDispatch(outcome string) {
	DispatchOperationsCounter.WithLabelValues(outcome).Inc()
}

// RecordLifecycleOperation increments the lifecycle transition counter
func RecordLifecycleOperation(operation string) {
	LifecycleOperationsCounter.WithLabelValues(operation).Inc()
}

// UpdateManufacturerOrders sets the gauge for one status bucket
func UpdateManufacturerOrders(status string, count int) {
	ManufacturerOrdersGauge.WithLabelValues(status).Set(float64(count))
}
