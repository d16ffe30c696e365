package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/auth"
	"github.com/ashwinyue/next-chat/internal/service/callback"
	"github.com/ashwinyue/next-chat/internal/service/chat"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
	"github.com/ashwinyue/next-chat/internal/service/title"
)

// Services 服务集合
type Services struct {
	Chat         *chat.Service
	Orchestrator *chat.Orchestrator
	Recorder     *chat.Recorder
	Sessions     *session.Manager
	Auth         *auth.Service
	Provider     *llm.Provider
	Catalog      *llm.Catalog
}

// NewServices 创建所有服务
func NewServices(ctx context.Context, cfg *config.Config, repo *repository.Repositories, redisClient *redis.Client, log *logger.Logger, m *metrics.Metrics) (*Services, error) {
	callback.SetupGlobalCallbacks(log, cfg.App.Debug)

	catalog, err := llm.NewCatalog(cfg.AI.Models, cfg.Chat.FlagshipModel)
	if err != nil {
		return nil, fmt.Errorf("failed to build model catalog: %w", err)
	}
	provider, err := llm.NewProvider(ctx, catalog, cfg.AI.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	authSvc, err := auth.NewService(
		repo.User,
		auth.NewRedisTokenStore(redisClient),
		auth.NewSMTPMailer(cfg.Auth.SMTP),
		auth.Config{
			Secret:      []byte(cfg.Auth.JWTSecret),
			AccessTTL:   cfg.Auth.AccessTokenDuration(),
			LinkTTL:     cfg.Auth.MagicLinkDuration(),
			RedirectURL: cfg.Auth.RedirectURL,
		},
		log, m,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	return assemble(cfg, repo.Chat, catalog, provider, authSvc, log, m)
}

// assemble 组装聊天相关服务，模型提供方由调用方注入
func assemble(cfg *config.Config, store repository.ChatStore, catalog *llm.Catalog, provider *llm.Provider, authSvc *auth.Service, log *logger.Logger, m *metrics.Metrics) (*Services, error) {
	recorderCfg := chat.RecorderConfig{
		TitleMaxLength: cfg.Chat.TitleMaxLength,
		Detection:      chat.DetectByTitle,
	}
	if cfg.Chat.TitleDetection == string(chat.DetectByCount) {
		recorderCfg.Detection = chat.DetectByCount
	}
	if cfg.Chat.AITitles {
		titleModel, err := provider.ChatModel(catalog.Default().ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve title model: %w", err)
		}
		recorderCfg.AITitles = title.NewLLMGenerator(titleModel, cfg.Chat.TitleMaxLength)
	}

	sessions := session.NewManager(store, log, m)
	recorder := chat.NewRecorder(store, recorderCfg, log, m)
	orchestrator := chat.NewOrchestrator(
		sessions, recorder, store, catalog, provider,
		chat.OrchestratorConfig{
			SystemPrompt: cfg.Chat.SystemPrompt,
			SmoothDelay:  cfg.Chat.SmoothDelay(),
			Thinking: llm.ThinkingPolicy{
				DefaultBudget:  cfg.Chat.DefaultThinkingBudget,
				DisabledBudget: cfg.Chat.DisabledThinkingBudget,
			},
		},
		log, m,
	)

	return &Services{
		Chat:         chat.NewService(store),
		Orchestrator: orchestrator,
		Recorder:     recorder,
		Sessions:     sessions,
		Auth:         authSvc,
		Provider:     provider,
		Catalog:      catalog,
	}, nil
}
