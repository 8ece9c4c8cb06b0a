package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
)

// unmatchedRoute labels requests that hit no route, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics records request count, latency and in-flight requests by route
// template.
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if m != nil {
			active := m.HTTPActiveRequests.WithLabelValues(c.Request.Method, route)
			active.Inc()
			defer active.Dec()
		}

		start := time.Now()
		c.Next()
		prometheus.RecordHTTPRequest(m, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
