package model

import "time"

// User 用户（通过 magic link 登录，无密码）
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
