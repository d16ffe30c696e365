package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinyue/next-chat/internal/model"
)

// UserRepository 用户数据访问
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByID 获取用户，不存在时返回 nil, nil
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetUserByEmail 获取用户，不存在时返回 nil, nil
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

// FindOrCreateByEmail 按邮箱查找用户，不存在则创建，并记录登录时间
func (r *UserRepository) FindOrCreateByEmail(ctx context.Context, email string) (*model.User, error) {
	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		LastSignInAt: &now,
	}
	// 并发首次登录时依赖唯一索引去重
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]any{"last_sign_in_at": now}),
		}).
		Create(user).Error
	if err != nil {
		return nil, unavailable("upsert user", err)
	}

	stored, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, unavailable("upsert user", errors.New("user vanished after upsert"))
	}
	return stored, nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return &user, nil
}
