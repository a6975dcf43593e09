package metrics

import (
	"github.com/haguru/bookshelf/internal/interfaces"
)

var (
	StoreDurationSecondsBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	HTTPDurationSecondsBuckets  = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

const (
	// store metrics
	StoreOperationsTotal          = "store_operations_total"
	StoreOperationsTotalHelp      = "Total number of record store operations by collection, operation and outcome"
	StoreOperationDurationSeconds = "store_operation_duration_seconds"
	StoreOperationDurationHelp    = "Duration of record store operations in seconds"
	CacheRequestsTotal            = "cache_requests_total"
	CacheRequestsTotalHelp        = "Total number of cached reads by collection and result (hit, miss, error)"
	DatabaseUp                    = "database_up"
	DatabaseUpHelp                = "1 when the last health check reached the database, 0 otherwise"

	// http metrics
	HTTPRequestsTotal          = "http_requests_total"
	HTTPRequestsTotalHelp      = "Total number of HTTP requests by route and status code"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	HTTPRequestDurationHelp    = "Duration of HTTP requests in seconds"
	HTTPRateLimitedTotal       = "http_rate_limited_total"
	HTTPRateLimitedTotalHelp   = "Total number of HTTP requests rejected by the rate limiter"

	// outcome label values
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeNotFound   = "absent"
	OutcomeConnection = "connection_error"
)

// RegisterStoreMetrics registers the metrics the record store and cache record into.
func RegisterStoreMetrics(m interfaces.Metrics) {
	m.RegisterCounterVec(StoreOperationsTotal, StoreOperationsTotalHelp, []string{"collection", "op", "outcome"})
	m.RegisterHistogramVec(StoreOperationDurationSeconds, StoreOperationDurationHelp,
		StoreDurationSecondsBuckets, []string{"collection", "op"})
	m.RegisterCounterVec(CacheRequestsTotal, CacheRequestsTotalHelp, []string{"collection", "result"})
	m.RegisterGauge(DatabaseUp, DatabaseUpHelp)
}

// RegisterHTTPMetrics registers the per-route request metrics.
func RegisterHTTPMetrics(m interfaces.Metrics) {
	m.RegisterCounterVec(HTTPRequestsTotal, HTTPRequestsTotalHelp, []string{"route", "code"})
	m.RegisterHistogramVec(HTTPRequestDurationSeconds, HTTPRequestDurationHelp,
		HTTPDurationSecondsBuckets, []string{"route"})
	m.RegisterCounterVec(HTTPRateLimitedTotal, HTTPRateLimitedTotalHelp, []string{"method"})
}
