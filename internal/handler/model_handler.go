package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/service"
)

// ModelHandler 模型处理器
type ModelHandler struct {
	svc *service.Services
}

// NewModelHandler 创建模型处理器
func NewModelHandler(svc *service.Services) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// ListModels 列出可选模型
// GET /api/models
func (h *ModelHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":       h.svc.Catalog.Models(),
		"defaultModel": h.svc.Catalog.Default().ID,
	})
}
