package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
)

// LoggingMiddleware 日志中间件
func LoggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		details := map[string]any{
			"method":    c.Request.Method,
			"path":      path,
			"query":     query,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			details["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("http", "request failed", details)
		case status >= 400:
			log.Warn("http", "request rejected", details)
		default:
			log.Info("http", "request", details)
		}
	}
}
