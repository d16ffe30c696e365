package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/chat"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	svc *service.Services
	log *logger.Logger
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(svc *service.Services, log *logger.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, log: log}
}

// SaveMessageRequest 直接保存消息请求
type SaveMessageRequest struct {
	SessionID string         `json:"sessionId" binding:"required"`
	Role      string         `json:"role" binding:"required,oneof=user assistant system"`
	Content   string         `json:"content" binding:"required"`
	Reasoning *string        `json:"reasoning"`
	Score     *int           `json:"score" binding:"omitempty,min=0,max=100"`
	Metadata  map[string]any `json:"metadata"`
}

// ListMessages 列出会话消息
// GET /api/messages?sessionId=
func (h *MessageHandler) ListMessages(c *gin.Context) {
	messages, err := h.svc.Chat.ListMessages(c.Request.Context(), middleware.Identity(c), c.Query("sessionId"))
	if err != nil {
		Error(c, h.log, "fetch messages", err)
		return
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SaveMessage 直接保存一条消息
// POST /api/messages
func (h *MessageHandler) SaveMessage(c *gin.Context) {
	var req SaveMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	message, err := h.svc.Chat.SaveMessage(c.Request.Context(), middleware.Identity(c), chat.SaveMessageInput{
		SessionID: req.SessionID,
		Role:      model.Role(req.Role),
		Content:   req.Content,
		Reasoning: req.Reasoning,
		Score:     req.Score,
		Metadata:  req.Metadata,
	})
	if err != nil {
		Error(c, h.log, "save message", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": message})
}
