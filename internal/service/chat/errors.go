package chat

import (
	"errors"

	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
)

var (
	ErrSessionNotFound  = repository.ErrSessionNotFound
	ErrMessageNotFound  = repository.ErrMessageNotFound
	ErrForbidden        = session.ErrForbidden
	ErrInvalidSessionID = session.ErrInvalidSessionID
	ErrUnknownModel     = llm.ErrUnknownModel

	ErrUnauthenticated = errors.New("authentication required")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrInvalidScore    = errors.New("score must be between 0 and 100")
)

// GenericErrorMessage 模型调用失败时返回给客户端的唯一文本
const GenericErrorMessage = "An error occurred, please try again!"
