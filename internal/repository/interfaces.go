// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/next-chat/internal/model"
)

// ChatStore 会话与消息的持久化网关
type ChatStore interface {
	CreateSession(ctx context.Context, ownerID *string, title string) (*model.ChatSession, error)
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
	ListSessions(ctx context.Context, ownerID string) ([]*model.ChatSession, error)
	SaveMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)
	UpdateSessionTitle(ctx context.Context, id, title string) error
	SoftDeleteSession(ctx context.Context, id string) error
	ListMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)
	CountMessagesByRole(ctx context.Context, sessionID string, role model.Role) (int64, error)
	TruncateMessages(ctx context.Context, sessionID, fromMessageID string) (int64, error)
}

// UserStore 用户数据访问接口
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	FindOrCreateByEmail(ctx context.Context, email string) (*model.User, error)
}

var (
	_ ChatStore = (*ChatRepository)(nil)
	_ UserStore = (*UserRepository)(nil)
)
