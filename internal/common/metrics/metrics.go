// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests by method and response code",
		},
		[]string{"method", "code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "api_request_duration_seconds",
			Help: "Duration of API request handling in seconds",
		},
		[]string{"method"},
	)

	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_retries_total",
			Help: "Total number of retried store operations",
		},
		[]string{"operation"},
	)

	StoreFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_failures_total",
			Help: "Total number of store operations that exhausted retries",
		},
		[]string{"operation"},
	)
)
