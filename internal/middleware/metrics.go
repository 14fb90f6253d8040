package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so scanners
// cannot grow the path label set without bound.
const unmatchedRoute = "unmatched"

// Metrics records request count and latency per route template. Paths listed
// in skip (health checks, the scrape endpoint) are not observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		ignored[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := ignored[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
