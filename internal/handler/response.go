package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/auth"
	"github.com/ashwinyue/next-chat/internal/service/chat"
)

// 错误码
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Error 根据错误类型返回相应的错误响应，5xx 只记录日志不向客户端暴露细节
func Error(c *gin.Context, log *logger.Logger, action string, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	switch {
	case errors.Is(err, chat.ErrMissingField),
		errors.Is(err, chat.ErrInvalidSessionID),
		errors.Is(err, chat.ErrInvalidRole),
		errors.Is(err, chat.ErrInvalidScore),
		errors.Is(err, chat.ErrUnknownModel),
		errors.Is(err, auth.ErrInvalidEmail):
		abort(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, chat.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken):
		abort(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	case errors.Is(err, chat.ErrForbidden):
		abort(c, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		abort(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, repository.ErrUnavailable):
		log.Error("handler", "database error", map[string]any{"action": action, "error": err})
		abort(c, http.StatusInternalServerError, CodeDatabaseError, "Failed to "+action)
	default:
		log.Error("handler", "internal error", map[string]any{"action": action, "error": err})
		abort(c, http.StatusInternalServerError, CodeInternalError, "Failed to "+action)
	}
}
