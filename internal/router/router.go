package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashwinyue/next-chat/internal/handler"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/middleware"
)

// Options 路由依赖
type Options struct {
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Tokens         middleware.TokenValidator
	AllowedOrigins []string
}

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, opts Options) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(opts.Logger))
	r.Use(middleware.LoggingMiddleware(opts.Logger))
	r.Use(middleware.MetricsMiddleware(opts.Metrics))
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigins))

	// 健康检查与指标
	r.GET("/health", h.System.Health)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	// Auth 认证，登录接口不校验旧令牌
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/magic-link", h.Auth.RequestMagicLink)
		authGroup.POST("/verify", h.Auth.Verify)
		authGroup.GET("/me", middleware.RequireAuth(opts.Tokens), h.Auth.Me)
	}

	chatAPI := api.Group("")
	chatAPI.Use(middleware.OptionalAuth(opts.Tokens))
	{
		chatAPI.POST("/chat", h.Chat.Chat)
		chatAPI.GET("/models", h.Model.ListModels)

		// Message 消息
		chatAPI.GET("/messages", h.Message.ListMessages)
		chatAPI.POST("/messages", h.Message.SaveMessage)

		// Session 会话
		sessions := chatAPI.Group("/sessions")
		{
			sessions.GET("", h.Session.ListSessions)
			sessions.POST("", h.Session.CreateSession)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.PATCH("/:id", h.Session.RenameSession)
			sessions.DELETE("/:id", h.Session.DeleteSession)
		}
	}

	return r
}
