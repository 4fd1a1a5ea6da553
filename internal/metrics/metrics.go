// Package metrics exposes the Prometheus instrumentation for the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footwear_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "footwear_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	ordersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "footwear_orders_created_total",
		Help: "Count of order creation attempts by result",
	}, []string{"result"})

	reservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footwear_inventory_reservation_conflicts_total",
		Help: "Count of inventory reservations lost to a concurrent order",
	})
)

// ObserveOrderCreated records an order creation attempt.
func ObserveOrderCreated(result string) {
	ordersCreated.WithLabelValues(result).Inc()
}

// ObserveReservationConflict records a conditional decrement that
// matched nothing because a concurrent order took the stock first.
func ObserveReservationConflict() {
	reservationConflicts.Inc()
}

// HTTPMiddleware instruments every request with a counter and a
// duration histogram, labeled by route template to keep cardinality low.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
