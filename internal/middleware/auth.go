package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/service/auth"
	"github.com/ashwinyue/next-chat/internal/service/session"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
)

// TokenValidator 访问令牌校验
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// OptionalAuth 可选认证中间件
// 未携带令牌时以匿名身份继续；携带了无效令牌直接返回 401，避免静默降级为匿名
func OptionalAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if !authenticate(c, v, token) {
			return
		}
		c.Next()
	}
}

// RequireAuth 要求有效认证的中间件
func RequireAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !authenticate(c, v, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, v TokenValidator, token string) bool {
	claims, err := v.ValidateToken(token)
	if err != nil {
		abortUnauthorized(c, "Invalid or expired token")
		return false
	}
	c.Set(userIDKey, claims.Subject)
	c.Set(userEmailKey, claims.Email)
	return true
}

// bearerToken 提取 Bearer 令牌，present 表示请求头存在
func bearerToken(c *gin.Context) (token string, present bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": message,
		"code":    "UNAUTHORIZED",
	})
}

// GetUserID 从上下文获取当前用户ID
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}

// GetUserEmail 从上下文获取当前用户邮箱
func GetUserEmail(c *gin.Context) string {
	return c.GetString(userEmailKey)
}

// Identity 当前请求的调用方身份
func Identity(c *gin.Context) session.Identity {
	if id, ok := GetUserID(c); ok {
		return session.User(id)
	}
	return session.Anonymous()
}
