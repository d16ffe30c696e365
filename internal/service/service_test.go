package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/chat"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
	"github.com/ashwinyue/next-chat/internal/testutil"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	for name, p := range cfg.AI.Providers {
		p.APIKey = "test-key"
		cfg.AI.Providers[name] = p
	}
	return cfg
}

func TestNewServices(t *testing.T) {
	cfg := loadConfig(t)
	repo := repository.NewRepositories(testutil.NewTestDB(t))
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = rdb.Close() })

	svcs, err := NewServices(context.Background(), cfg, repo, rdb, logger.Nop(), metrics.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, svcs.Chat)
	assert.NotNil(t, svcs.Orchestrator)
	assert.NotNil(t, svcs.Auth)
	assert.Len(t, svcs.Catalog.Models(), 3)
	_, err = svcs.Provider.ChatModel("deepseek-r1")
	assert.NoError(t, err)
}

func TestNewServices_MissingAPIKey(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	repo := repository.NewRepositories(testutil.NewTestDB(t))

	_, err = NewServices(context.Background(), cfg, repo, redis.NewClient(&redis.Options{}), logger.Nop(), metrics.NewNop())
	assert.Error(t, err)
}

func TestAssemble_AITitles(t *testing.T) {
	ctx := context.Background()
	cfg := loadConfig(t)
	cfg.Chat.AITitles = true
	cfg.Chat.SmoothDelayMs = 0

	repo := repository.NewRepositories(testutil.NewTestDB(t))
	user, err := repo.User.FindOrCreateByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	cm := &testutil.ScriptedChatModel{
		Chunks: testutil.TextChunks("stop", "It is ", "sunny today."),
		Reply:  schema.AssistantMessage(`{"title": "Paris weather"}`, nil),
	}
	catalog, err := llm.NewCatalog(cfg.AI.Models, cfg.Chat.FlagshipModel)
	require.NoError(t, err)
	provider := llm.NewProviderWithModels(catalog, map[string]model.BaseChatModel{"sonnet-3.7": cm})

	svcs, err := assemble(cfg, repo.Chat, catalog, provider, nil, logger.Nop(), metrics.NewNop())
	require.NoError(t, err)

	turn, err := svcs.Orchestrator.Start(ctx, chat.TurnRequest{
		Messages: []chat.InboundMessage{{Role: "user", Content: "what's the weather in paris?"}},
		Identity: session.User(user.ID),
	})
	require.NoError(t, err)
	require.NotEmpty(t, turn.SessionID())

	var last chat.StreamEvent
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-turn.Events():
			if !ok {
				done = true
				break
			}
			last = ev
		case <-timeout:
			t.Fatal("timed out waiting for stream events")
		}
	}
	assert.Equal(t, chat.EventFinish, last.Type)

	s, err := repo.Chat.GetSession(ctx, turn.SessionID())
	require.NoError(t, err)
	assert.Equal(t, "Paris weather", s.Title)

	msgs, err := repo.Chat.ListMessages(ctx, turn.SessionID())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "It is sunny today.", msgs[1].Content)
}

func TestAssemble_TitleDetection(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Chat.TitleDetection = "count"
	catalog, err := llm.NewCatalog(cfg.AI.Models, cfg.Chat.FlagshipModel)
	require.NoError(t, err)

	svcs, err := assemble(cfg, testutil.FailingChatStore{}, catalog, llm.NewProviderWithModels(catalog, nil), nil, logger.Nop(), metrics.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, svcs.Recorder)

	// 标题模型缺失时开启 AI 标题应失败
	cfg.Chat.AITitles = true
	_, err = assemble(cfg, testutil.FailingChatStore{}, catalog, llm.NewProviderWithModels(catalog, nil), nil, logger.Nop(), metrics.NewNop())
	assert.Error(t, err)
}
