package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	svc *service.Services
	log *logger.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(svc *service.Services, log *logger.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, log: log}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// RenameSessionRequest 重命名会话请求
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required"`
}

// ListSessions 列出当前用户的会话
// GET /api/sessions?userId=
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.svc.Chat.ListSessions(c.Request.Context(), middleware.Identity(c), c.Query("userId"))
	if err != nil {
		Error(c, h.log, "fetch sessions", err)
		return
	}
	if sessions == nil {
		sessions = []*model.ChatSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// CreateSession 创建会话
// POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// 请求体可以为空
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.Chat.CreateSession(c.Request.Context(), middleware.Identity(c), req.Title)
	if err != nil {
		Error(c, h.log, "create session", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// GetSession 获取会话
// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.svc.Chat.GetSession(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		Error(c, h.log, "fetch session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// DeleteSession 将会话移入回收站
// DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Chat.DeleteSession(c.Request.Context(), middleware.Identity(c), id); err != nil {
		Error(c, h.log, "delete session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": id,
		"message":   "Session moved to trash successfully",
	})
}

// RenameSession 重命名会话
// PATCH /api/sessions/:id
func (h *SessionHandler) RenameSession(c *gin.Context) {
	id := c.Param("id")
	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	title, err := h.svc.Chat.RenameSession(c.Request.Context(), middleware.Identity(c), id, req.Title)
	if err != nil {
		Error(c, h.log, "rename session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": id,
		"title":     title,
		"message":   "Session renamed successfully",
	})
}
