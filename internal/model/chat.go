package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultSessionTitle 会话尚未生成标题时的占位标题
const DefaultSessionTitle = "New Chat"

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ChatSession 聊天会话
// UserID 为空表示匿名会话
type ChatSession struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	UserID    *string           `gorm:"index;size:36" json:"user_id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Trash     bool              `gorm:"index;not null;default:false" json:"trash"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `gorm:"index" json:"updated_at"`
}

// OwnedBy 会话是否属于指定用户
func (s *ChatSession) OwnedBy(userID string) bool {
	return s.UserID != nil && *s.UserID == userID
}

// Anonymous 是否为匿名会话
func (s *ChatSession) Anonymous() bool {
	return s.UserID == nil
}

// HasDefaultTitle 标题是否仍为占位标题
func (s *ChatSession) HasDefaultTitle() bool {
	return s.Title == DefaultSessionTitle
}

// ChatMessage 聊天消息
type ChatMessage struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	SessionID string            `gorm:"index;size:36;not null" json:"session_id"`
	Role      Role              `gorm:"size:20;not null" json:"role"`
	Content   string            `gorm:"type:text;not null" json:"content"`
	Reasoning *string           `gorm:"type:text" json:"reasoning,omitempty"`
	Score     *int              `json:"score,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
