// Package session 会话绑定
// 每个聊天请求只在开始时决定一次：沿用客户端给出的会话、为已登录用户新建会话，或不绑定（不持久化）
package session

import (
	"context"
	"errors"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/validation"
)

var (
	// ErrInvalidSessionID 会话 ID 格式错误
	ErrInvalidSessionID = errors.New("invalid session id format")
	// ErrForbidden 会话属于其他用户
	ErrForbidden = errors.New("session belongs to another user")
)

const component = "session"

// Identity 请求方身份，UserID 为空表示匿名
type Identity struct {
	UserID string
}

// Anonymous 匿名身份
func Anonymous() Identity {
	return Identity{}
}

// User 已登录用户身份
func User(id string) Identity {
	return Identity{UserID: id}
}

// Authenticated 是否已登录
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// OwnerRef 作为会话 owner 写入的值，匿名时为 nil
func (i Identity) OwnerRef() *string {
	if !i.Authenticated() {
		return nil
	}
	id := i.UserID
	return &id
}

// CanAccess 是否可以访问会话；匿名会话对持有 ID 的任何人开放
func (i Identity) CanAccess(s *model.ChatSession) bool {
	return s.Anonymous() || s.OwnedBy(i.UserID)
}

// Binding 请求与会话的绑定状态，零值为未绑定
type Binding struct {
	id      string
	created bool
}

// Unbound 未绑定，本轮对话不持久化
func Unbound() Binding {
	return Binding{}
}

// Bound 绑定到已有会话
func Bound(id string) Binding {
	return Binding{id: id}
}

func created(id string) Binding {
	return Binding{id: id, created: true}
}

// IsBound 是否已绑定
func (b Binding) IsBound() bool {
	return b.id != ""
}

// ID 会话 ID，未绑定时为空
func (b Binding) ID() string {
	return b.id
}

// Created 会话是否在本次请求中新建
func (b Binding) Created() bool {
	return b.created
}

func (b Binding) String() string {
	if !b.IsBound() {
		return "unbound"
	}
	return "bound(" + b.id + ")"
}

// Store 绑定所需的持久化操作
type Store interface {
	CreateSession(ctx context.Context, ownerID *string, title string) (*model.ChatSession, error)
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
}

// Manager 会话绑定管理器
type Manager struct {
	store   Store
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewManager 创建会话绑定管理器
func NewManager(store Store, log *logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{store: store, log: log, metrics: m}
}

// Bind 为一次聊天请求确定会话绑定
// 格式错误和越权是唯一会返回给调用方的错误；持久化失败只记录日志并退化为未绑定
func (m *Manager) Bind(ctx context.Context, requested string, owner Identity) (Binding, error) {
	if requested != "" {
		if !validation.IsSessionID(requested) {
			return Unbound(), ErrInvalidSessionID
		}
		return m.bindExisting(ctx, requested, owner)
	}

	if !owner.Authenticated() {
		return Unbound(), nil
	}

	s, err := m.store.CreateSession(ctx, owner.OwnerRef(), model.DefaultSessionTitle)
	if err != nil {
		m.log.Error(component, "create session failed, continuing without persistence", map[string]any{
			"action":  "create_session",
			"user_id": owner.UserID,
			"error":   err,
		})
		m.metrics.RecordPersistenceFailure(component, "create_session")
		return Unbound(), nil
	}
	return created(s.ID), nil
}

// bindExisting 绑定客户端给出的会话，不存在时也不创建
func (m *Manager) bindExisting(ctx context.Context, id string, owner Identity) (Binding, error) {
	s, err := m.store.GetSession(ctx, id)
	if err != nil {
		// 无法确认归属时不写入
		m.log.Error(component, "session lookup failed, continuing without persistence", map[string]any{
			"action":     "get_session",
			"session_id": id,
			"error":      err,
		})
		m.metrics.RecordPersistenceFailure(component, "get_session")
		return Unbound(), nil
	}
	if s != nil && !owner.CanAccess(s) {
		return Unbound(), ErrForbidden
	}
	return Bound(id), nil
}
