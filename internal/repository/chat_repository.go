package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/model"
)

// ChatRepository 聊天数据访问
type ChatRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewChatRepository 创建聊天仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession 创建会话，title 为空时使用占位标题
func (r *ChatRepository) CreateSession(ctx context.Context, ownerID *string, title string) (*model.ChatSession, error) {
	if title == "" {
		title = model.DefaultSessionTitle
	}
	now := r.now()
	session := &model.ChatSession{
		ID:        uuid.New().String(),
		UserID:    ownerID,
		Title:     title,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, unavailable("create session", err)
	}
	return session, nil
}

// GetSession 获取会话，不存在时返回 nil, nil
// 已移入回收站的会话仍可直接读取
func (r *ChatRepository) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}
	return &session, nil
}

// ListSessions 列出用户未删除的会话，按 updated_at 倒序
func (r *ChatRepository) ListSessions(ctx context.Context, ownerID string) ([]*model.ChatSession, error) {
	sessions := make([]*model.ChatSession, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND trash = ?", ownerID, false).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, unavailable("list sessions", err)
	}
	return sessions, nil
}

// SaveMessage 保存消息并刷新会话 updated_at
// 两次写入在同一事务中完成；会话不存在时回滚并返回 ErrSessionNotFound
func (r *ChatRepository) SaveMessage(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Metadata == nil {
		msg.Metadata = datatypes.JSONMap{}
	}
	now := r.now()
	msg.CreatedAt = now

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return unavailable("insert message", err)
		}
		result := tx.Model(&model.ChatSession{}).
			Where("id = ?", msg.SessionID).
			Update("updated_at", now)
		if result.Error != nil {
			return unavailable("touch session", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateSessionTitle 更新会话标题
func (r *ChatRepository) UpdateSessionTitle(ctx context.Context, id, title string) error {
	return r.updateSession(ctx, id, "update session title", map[string]any{
		"title":      title,
		"updated_at": r.now(),
	})
}

// SoftDeleteSession 将会话移入回收站，不删除任何数据
func (r *ChatRepository) SoftDeleteSession(ctx context.Context, id string) error {
	return r.updateSession(ctx, id, "soft delete session", map[string]any{
		"trash":      true,
		"updated_at": r.now(),
	})
}

func (r *ChatRepository) updateSession(ctx context.Context, id, action string, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&model.ChatSession{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return unavailable(action, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListMessages 获取会话消息，按对话顺序
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	messages := make([]*model.ChatMessage, 0)
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, unavailable("list messages", err)
	}
	return messages, nil
}

// CountMessagesByRole 统计会话中指定角色的消息数
func (r *ChatRepository) CountMessagesByRole(ctx context.Context, sessionID string, role model.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("session_id = ? AND role = ?", sessionID, role).
		Count(&count).Error
	if err != nil {
		return 0, unavailable("count messages", err)
	}
	return count, nil
}

// TruncateMessages 删除会话中从指定消息（含）开始的所有消息，返回删除条数
// 用于编辑消息后重新提交
func (r *ChatRepository) TruncateMessages(ctx context.Context, sessionID, fromMessageID string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var anchor model.ChatMessage
		err := tx.Where("id = ? AND session_id = ?", fromMessageID, sessionID).First(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return unavailable("find rewind anchor", err)
		}

		result := tx.Where("session_id = ? AND created_at >= ?", sessionID, anchor.CreatedAt).
			Delete(&model.ChatMessage{})
		if result.Error != nil {
			return unavailable("truncate messages", result.Error)
		}
		deleted = result.RowsAffected

		if err := tx.Model(&model.ChatSession{}).
			Where("id = ?", sessionID).
			Update("updated_at", r.now()).Error; err != nil {
			return unavailable("touch session", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
