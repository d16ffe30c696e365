package handler

import (
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat    *ChatHandler
	Message *MessageHandler
	Session *SessionHandler
	Model   *ModelHandler
	Auth    *AuthHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, log *logger.Logger, checks map[string]HealthCheck) *Handlers {
	return &Handlers{
		Chat:    NewChatHandler(svc, log),
		Message: NewMessageHandler(svc, log),
		Session: NewSessionHandler(svc, log),
		Model:   NewModelHandler(svc),
		Auth:    NewAuthHandler(svc, log),
		System:  NewSystemHandler(checks),
	}
}
