package callback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ashwinyue/next-chat/internal/logger"
)

var info = &callbacks.RunInfo{Name: "sonnet-3.7", Type: "anthropic", Component: components.ComponentOfChatModel}

func newObserved(debug bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLogger(logger.FromZap(zap.New(core)), debug), logs
}

func TestLogger_OnEndRecordsUsage(t *testing.T) {
	l, logs := newObserved(false)

	l.OnEnd(context.Background(), info, &model.CallbackOutput{
		Message:    schema.AssistantMessage("hi", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 3, CompletionTokens: 5, TotalTokens: 8},
	})

	entries := logs.FilterMessage("component end").All()
	require.Len(t, entries, 1)
	details := entries[0].ContextMap()["details"].(map[string]any)
	assert.Equal(t, "sonnet-3.7", details["name"])
	assert.Equal(t, 8, details["total_tokens"])
}

func TestLogger_OnStartOnlyInDebug(t *testing.T) {
	l, logs := newObserved(false)
	l.OnStart(context.Background(), info, []*schema.Message{schema.UserMessage("hi")})
	assert.Zero(t, logs.FilterMessage("component start").Len())

	l, logs = newObserved(true)
	l.OnStart(context.Background(), info, []*schema.Message{schema.UserMessage("hi")})
	entries := logs.FilterMessage("component start").All()
	require.Len(t, entries, 1)
	details := entries[0].ContextMap()["details"].(map[string]any)
	assert.Equal(t, 1, details["messages"])
}

func TestLogger_OnError(t *testing.T) {
	l, logs := newObserved(false)

	l.OnError(context.Background(), info, errors.New("rate limited"))

	entries := logs.FilterMessage("component error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "rate limited", entries[0].ContextMap()["error"])
}

func TestLogger_OnEndWithStreamOutputDrainsStream(t *testing.T) {
	l, logs := newObserved(false)

	sr, sw := schema.Pipe[callbacks.CallbackOutput](3)
	sw.Send(&model.CallbackOutput{Message: schema.AssistantMessage("a", nil)}, nil)
	sw.Send(&model.CallbackOutput{
		Message:    schema.AssistantMessage("b", nil),
		TokenUsage: &model.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	}, nil)
	sw.Close()

	l.OnEndWithStreamOutput(context.Background(), info, sr)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stream output end").Len() == 1
	}, time.Second, 10*time.Millisecond)
	details := logs.FilterMessage("stream output end").All()[0].ContextMap()["details"].(map[string]any)
	assert.Equal(t, 3, details["total_tokens"])
}
