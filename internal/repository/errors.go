package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable 存储层不可用（连接失败、SQL 错误等），包装原始错误
	ErrUnavailable = errors.New("persistence unavailable")
	// ErrSessionNotFound 写操作的目标会话不存在
	ErrSessionNotFound = errors.New("session not found")
	// ErrMessageNotFound 目标消息不存在
	ErrMessageNotFound = errors.New("message not found")
)

// unavailable 将底层错误包装为 ErrUnavailable
func unavailable(action string, err error) error {
	return fmt.Errorf("%s: %w: %w", action, ErrUnavailable, err)
}
