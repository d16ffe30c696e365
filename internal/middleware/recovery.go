package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
)

// RecoveryMiddleware 恢复中间件
func RecoveryMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("http", "panic recovered", map[string]any{
					"panic": fmt.Sprint(err),
					"path":  c.Request.URL.Path,
					"stack": string(debug.Stack()),
				})
				if c.Writer.Written() {
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "internal server error",
					"code":    "INTERNAL_ERROR",
				})
			}
		}()
		c.Next()
	}
}
