// Package testutil 提供测试辅助工具
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/database"
)

// NewTestDB 创建已迁移的内存 SQLite 数据库，测试结束时关闭
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn), false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// 单连接避免 SQLite 写锁竞争
	sqlDB, err := db.DB.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// Ptr 返回值的指针
func Ptr[T any](v T) *T {
	return &v
}
