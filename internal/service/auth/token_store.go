package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore 一次性登录令牌存储
type TokenStore interface {
	// Save 保存令牌摘要对应的邮箱
	Save(ctx context.Context, key, email string, ttl time.Duration) error
	// Consume 读取并删除令牌，不存在或已过期时返回 ErrInvalidToken
	Consume(ctx context.Context, key string) (string, error)
}

const magicLinkKeyPrefix = "magic_link:"

// RedisTokenStore 基于 Redis 的令牌存储，过期由 TTL 保证
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore 创建 Redis 令牌存储
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, key, email string, ttl time.Duration) error {
	return s.client.Set(ctx, magicLinkKeyPrefix+key, email, ttl).Err()
}

// Consume 使用 GETDEL 保证令牌只能使用一次
func (s *RedisTokenStore) Consume(ctx context.Context, key string) (string, error) {
	email, err := s.client.GetDel(ctx, magicLinkKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return email, nil
}
