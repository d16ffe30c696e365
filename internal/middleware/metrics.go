package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/metrics"
)

// MetricsMiddleware 请求指标中间件，路由标签使用注册的路由模板
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
