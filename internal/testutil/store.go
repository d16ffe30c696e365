package testutil

import (
	"context"
	"errors"

	"github.com/ashwinyue/next-chat/internal/model"
)

// ErrStoreDown FailingChatStore 返回的错误
var ErrStoreDown = errors.New("store down")

// FailingChatStore 每个操作都失败的持久化网关
type FailingChatStore struct{}

func (FailingChatStore) CreateSession(ctx context.Context, ownerID *string, title string) (*model.ChatSession, error) {
	return nil, ErrStoreDown
}

func (FailingChatStore) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	return nil, ErrStoreDown
}

func (FailingChatStore) ListSessions(ctx context.Context, ownerID string) ([]*model.ChatSession, error) {
	return nil, ErrStoreDown
}

func (FailingChatStore) SaveMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	return nil, ErrStoreDown
}

func (FailingChatStore) UpdateSessionTitle(ctx context.Context, id, title string) error {
	return ErrStoreDown
}

func (FailingChatStore) SoftDeleteSession(ctx context.Context, id string) error {
	return ErrStoreDown
}

func (FailingChatStore) ListMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	return nil, ErrStoreDown
}

func (FailingChatStore) CountMessagesByRole(ctx context.Context, sessionID string, role model.Role) (int64, error) {
	return 0, ErrStoreDown
}

func (FailingChatStore) TruncateMessages(ctx context.Context, sessionID, fromMessageID string) (int64, error) {
	return 0, ErrStoreDown
}
