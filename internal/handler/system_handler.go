package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck 依赖健康检查
type HealthCheck func(ctx context.Context) error

// SystemHandler 系统处理器
type SystemHandler struct {
	checks map[string]HealthCheck
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{checks: checks}
}

// Health 健康检查，任一依赖不可用时返回 503
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "dependencies": deps})
}
