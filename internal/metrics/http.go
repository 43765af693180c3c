package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "sevenseg",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "API request latency by operation and status",
	Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
}, []string{"operation", "status"})

// ObserveHTTPRequest records one completed API request.
func ObserveHTTPRequest(operation string, status int, d time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	httpRequests.WithLabelValues(operation, strconv.Itoa(status)).Observe(d.Seconds())
}
