// Package chat 会话与消息服务、消息持久化编排和流式对话编排
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/session"
	"github.com/ashwinyue/next-chat/internal/validation"
)

// Service 会话与消息的直接读写，带归属校验
type Service struct {
	store repository.ChatStore
}

// NewService 创建聊天服务
func NewService(store repository.ChatStore) *Service {
	return &Service{store: store}
}

// SaveMessageInput 直接保存消息的参数
type SaveMessageInput struct {
	SessionID string
	Role      model.Role
	Content   string
	Reasoning *string
	Score     *int
	Metadata  map[string]any
}

// ListSessions 列出调用方自己的会话
// 匿名会话不在服务端列出；userID 非空时必须与调用方一致
func (s *Service) ListSessions(ctx context.Context, caller session.Identity, userID string) ([]*model.ChatSession, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if userID != "" && userID != caller.UserID {
		return nil, ErrForbidden
	}
	return s.store.ListSessions(ctx, caller.UserID)
}

// CreateSession 显式创建会话，匿名调用方创建匿名会话
func (s *Service) CreateSession(ctx context.Context, caller session.Identity, title string) (*model.ChatSession, error) {
	return s.store.CreateSession(ctx, caller.OwnerRef(), strings.TrimSpace(title))
}

// GetSession 读取会话并校验归属
func (s *Service) GetSession(ctx context.Context, caller session.Identity, id string) (*model.ChatSession, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: sessionId", ErrMissingField)
	}
	if !validation.IsSessionID(id) {
		return nil, ErrInvalidSessionID
	}
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if !caller.CanAccess(sess) {
		return nil, ErrForbidden
	}
	return sess, nil
}

// ListMessages 按对话顺序列出会话消息
func (s *Service) ListMessages(ctx context.Context, caller session.Identity, sessionID string) ([]*model.ChatMessage, error) {
	if _, err := s.GetSession(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, sessionID)
}

// SaveMessage 直接保存一条消息
func (s *Service) SaveMessage(ctx context.Context, caller session.Identity, in SaveMessageInput) (*model.ChatMessage, error) {
	switch {
	case in.SessionID == "":
		return nil, fmt.Errorf("%w: sessionId", ErrMissingField)
	case in.Role == "":
		return nil, fmt.Errorf("%w: role", ErrMissingField)
	case in.Content == "":
		return nil, fmt.Errorf("%w: content", ErrMissingField)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, in.Role)
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 100) {
		return nil, ErrInvalidScore
	}
	if _, err := s.GetSession(ctx, caller, in.SessionID); err != nil {
		return nil, err
	}

	return s.store.SaveMessage(ctx, &model.ChatMessage{
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		Reasoning: in.Reasoning,
		Score:     in.Score,
		Metadata:  in.Metadata,
	})
}

// DeleteSession 将会话移入回收站
func (s *Service) DeleteSession(ctx context.Context, caller session.Identity, id string) error {
	if _, err := s.GetSession(ctx, caller, id); err != nil {
		return err
	}
	return s.store.SoftDeleteSession(ctx, id)
}

// RenameSession 重命名会话
func (s *Service) RenameSession(ctx context.Context, caller session.Identity, id, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title", ErrMissingField)
	}
	if _, err := s.GetSession(ctx, caller, id); err != nil {
		return "", err
	}
	if err := s.store.UpdateSessionTitle(ctx, id, title); err != nil {
		return "", err
	}
	return title, nil
}
