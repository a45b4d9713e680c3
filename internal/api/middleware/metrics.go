package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"recipe-planner/internal/metrics"
)

// Metrics 以路由樣板記錄請求數與延遲，避免以實際路徑產生過多標籤
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
