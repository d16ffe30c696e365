package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/chat"
)

// SessionIDHeader 返回本次对话绑定的会话 ID
const SessionIDHeader = "X-Session-ID"

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
	log *logger.Logger
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services, log *logger.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Messages           []ChatMessage `json:"messages" binding:"required,dive"`
	SelectedModelID    string        `json:"selectedModelId"`
	IsReasoningEnabled bool          `json:"isReasoningEnabled"`
	SessionID          string        `json:"sessionId"`
	// EditMessageID 编辑重发时被编辑的消息 ID
	EditMessageID string `json:"editMessageId"`
}

// ChatMessage 客户端提交的对话消息
type ChatMessage struct {
	Role      string     `json:"role" binding:"required,oneof=user assistant system"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Chat 发送消息并以 SSE 流式返回回复
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	messages := make([]chat.InboundMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chat.InboundMessage{
			Role:      model.Role(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	turn, err := h.svc.Orchestrator.Start(c.Request.Context(), chat.TurnRequest{
		Messages:         messages,
		ModelID:          req.SelectedModelID,
		ReasoningEnabled: req.IsReasoningEnabled,
		SessionID:        req.SessionID,
		EditMessageID:    req.EditMessageID,
		Identity:         middleware.Identity(c),
	})
	if err != nil {
		Error(c, h.log, "start chat", err)
		return
	}

	header := c.Writer.Header()
	if id := turn.SessionID(); id != "" {
		header.Set(SessionIDHeader, id)
	}
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	// 客户端断开时编排器停止并关闭事件通道
	for event := range turn.Events() {
		c.SSEvent(string(event.Type), event)
		c.Writer.Flush()
	}
}
