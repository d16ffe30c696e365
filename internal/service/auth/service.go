// Package auth magic link 登录与 JWT 访问令牌
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/validation"
)

var (
	// ErrInvalidEmail 邮箱格式错误
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidToken magic link 或访问令牌无效、过期或已使用
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound 令牌对应的用户不存在
	ErrUserNotFound = errors.New("user not found")
)

const (
	component  = "auth"
	tokenBytes = 32
	issuer     = "next-chat"
)

// Config 认证配置
type Config struct {
	Secret      []byte
	AccessTTL   time.Duration
	LinkTTL     time.Duration
	RedirectURL string
}

// Claims 访问令牌声明，Subject 为用户 ID
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignIn magic link 验证成功后的登录结果
type SignIn struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Service 认证服务
type Service struct {
	users   repository.UserStore
	tokens  TokenStore
	mailer  Mailer
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService 创建认证服务
// 未配置密钥时生成随机密钥，重启后已签发的令牌全部失效
func NewService(users repository.UserStore, tokens TokenStore, mailer Mailer, cfg Config, log *logger.Logger, m *metrics.Metrics) (*Service, error) {
	if len(cfg.Secret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.Secret = secret
		log.Warn(component, "jwt secret not configured, using a random secret", nil)
	}
	return &Service{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
		metrics: m,
		now:     time.Now,
	}, nil
}

// RequestMagicLink 生成一次性登录链接并发送到邮箱
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	email, ok := validation.NormalizeEmail(email)
	if !ok {
		return ErrInvalidEmail
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	// 只保存令牌摘要
	if err := s.tokens.Save(ctx, hashToken(token), email, s.cfg.LinkTTL); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	link, err := s.magicLink(token)
	if err != nil {
		return err
	}
	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		s.log.Error(component, "send magic link failed", map[string]any{
			"action": "send_magic_link",
			"error":  err,
		})
		return fmt.Errorf("send magic link: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MagicLinksRequested.Inc()
	}
	s.log.Info(component, "magic link sent", nil)
	return nil
}

func (s *Service) magicLink(token string) (string, error) {
	u, err := url.Parse(s.cfg.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifyMagicLink 消费一次性令牌，必要时创建用户，并签发访问令牌
func (s *Service) VerifyMagicLink(ctx context.Context, token string) (*SignIn, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	email, err := s.tokens.Consume(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}

	signed, expiresAt, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.log.Info(component, "user signed in", map[string]any{"user_id": user.ID})
	return &SignIn{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) issue(user *model.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken 校验访问令牌
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CurrentUser 获取当前用户
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
