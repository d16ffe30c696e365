package chat

import (
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
	"github.com/ashwinyue/next-chat/internal/testutil"
)

const testSystemPrompt = "you are a friendly assistant. do not use emojis in your responses."

type harness struct {
	store        repository.ChatStore
	model        *testutil.ScriptedChatModel
	recorder     *Recorder
	orchestrator *Orchestrator
	service      *Service
}

func newHarness(t *testing.T, store repository.ChatStore, cm *testutil.ScriptedChatModel, rc RecorderConfig) *harness {
	t.Helper()
	if store == nil {
		store = repository.NewChatRepository(testutil.NewTestDB(t))
	}
	if cm == nil {
		cm = &testutil.ScriptedChatModel{}
	}

	catalog, err := llm.NewCatalog(config.DefaultModels(), "sonnet-3.7")
	require.NoError(t, err)
	provider := llm.NewProviderWithModels(catalog, map[string]model.BaseChatModel{
		"sonnet-3.7":  cm,
		"deepseek-r1": cm,
	})

	log := logger.Nop()
	m := metrics.NewNop()
	recorder := NewRecorder(store, rc, log, m)
	orchestrator := NewOrchestrator(
		session.NewManager(store, log, m),
		recorder,
		store,
		catalog,
		provider,
		OrchestratorConfig{
			SystemPrompt: testSystemPrompt,
			Thinking:     llm.ThinkingPolicy{DefaultBudget: 5000, DisabledBudget: 12000},
		},
		log,
		m,
	)

	return &harness{
		store:        store,
		model:        cm,
		recorder:     recorder,
		orchestrator: orchestrator,
		service:      NewService(store),
	}
}

// collect 读取全部事件，超时视为失败
func collect(t *testing.T, turn *Turn) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-turn.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream events")
			return nil
		}
	}
}

func textOf(events []StreamEvent) string {
	var s string
	for _, ev := range events {
		if ev.Type == EventText {
			s += ev.Content
		}
	}
	return s
}

func userTurn(content string) []InboundMessage {
	return []InboundMessage{{Role: "user", Content: content}}
}

func waitClosed(t *testing.T, ch <-chan StreamEvent) {
	t.Helper()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
}
