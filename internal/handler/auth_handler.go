package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/chat"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
	log *logger.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services, log *logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// MagicLinkRequest 申请登录链接请求
type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyRequest 校验登录链接请求
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// RequestMagicLink 发送登录链接
// POST /api/auth/magic-link
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.svc.Auth.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		Error(c, h.log, "send magic link", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Check your email for the sign-in link"})
}

// Verify 校验登录链接并签发访问令牌
// POST /api/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	signIn, err := h.svc.Auth.VerifyMagicLink(c.Request.Context(), req.Token)
	if err != nil {
		Error(c, h.log, "verify magic link", err)
		return
	}
	c.JSON(http.StatusOK, signIn)
}

// Me 当前登录用户
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Error(c, h.log, "fetch user", chat.ErrUnauthenticated)
		return
	}
	user, err := h.svc.Auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		Error(c, h.log, "fetch user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
