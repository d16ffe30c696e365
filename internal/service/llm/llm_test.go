package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/testutil"
)

var testPolicy = ThinkingPolicy{DefaultBudget: 5000, DisabledBudget: 12000}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(config.DefaultModels(), "sonnet-3.7")
	require.NoError(t, err)
	return c
}

func TestCatalog(t *testing.T) {
	c := newTestCatalog(t)

	spec, err := c.Lookup("sonnet-3.7")
	require.NoError(t, err)
	assert.True(t, spec.Flagship)
	assert.Equal(t, "claude-3-7-sonnet-20250219", spec.Model)

	spec, err = c.Lookup("deepseek-r1")
	require.NoError(t, err)
	assert.False(t, spec.Flagship)
	assert.Equal(t, "think", spec.ReasoningTag)
	assert.True(t, spec.Reasoning())

	_, err = c.Lookup("gpt-unknown")
	assert.ErrorIs(t, err, ErrUnknownModel)

	def, err := c.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "sonnet-3.7", def.ID)
	assert.Len(t, c.Models(), 3)
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		models []config.ModelConfig
	}{
		{"empty", nil},
		{"missing provider", []config.ModelConfig{{ID: "a", Model: "m"}}},
		{"duplicate", []config.ModelConfig{
			{ID: "a", Provider: "p", Model: "m"},
			{ID: "a", Provider: "p", Model: "m"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.models, "")
			assert.Error(t, err)
		})
	}
}

func TestBuildStreamConfig(t *testing.T) {
	flagship := ModelSpec{ID: "sonnet-3.7", Flagship: true}
	other := ModelSpec{ID: "deepseek-r1", ReasoningTag: "think"}
	const prompt = "be brief"

	tests := []struct {
		name      string
		spec      ModelSpec
		reasoning bool
		want      *Thinking
	}{
		{"flagship reasoning disabled", flagship, false, &Thinking{Enabled: false, BudgetTokens: 12000}},
		{"flagship reasoning enabled", flagship, true, &Thinking{Enabled: true, BudgetTokens: 5000}},
		{"other model disabled", other, false, nil},
		{"other model enabled", other, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := BuildStreamConfig(tt.spec, tt.reasoning, prompt, testPolicy)
			assert.Equal(t, prompt, cfg.SystemPrompt)
			assert.Equal(t, tt.want, cfg.Thinking)
		})
	}
}

func TestThinking_ExtraFields(t *testing.T) {
	var none *Thinking
	assert.Nil(t, none.extraFields())

	off := &Thinking{Enabled: false, BudgetTokens: 12000}
	assert.Equal(t, map[string]any{"thinking": map[string]any{"type": "disabled", "budget_tokens": 12000}}, off.extraFields())

	on := &Thinking{Enabled: true, BudgetTokens: 5000}
	assert.Equal(t, map[string]any{"thinking": map[string]any{"type": "enabled", "budget_tokens": 5000}}, on.extraFields())
}

func TestTagSplitter(t *testing.T) {
	tests := []struct {
		name          string
		chunks        []string
		wantText      string
		wantReasoning string
	}{
		{
			name:     "no tags",
			chunks:   []string{"hello ", "world"},
			wantText: "hello world",
		},
		{
			name:          "single chunk",
			chunks:        []string{"<think>plan</think>\n\nanswer"},
			wantText:      "answer",
			wantReasoning: "plan",
		},
		{
			name:          "tags split across chunks",
			chunks:        []string{"<th", "ink>step one", " step two</", "think>", "\n", "final"},
			wantText:      "final",
			wantReasoning: "step one step two",
		},
		{
			name:          "unterminated reasoning",
			chunks:        []string{"<think>still thinking"},
			wantReasoning: "still thinking",
		},
		{
			name:     "lookalike is text",
			chunks:   []string{"a <b> c <", "thin"},
			wantText: "a <b> c <thin",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTagSplitter("think")
			var text, reasoning strings.Builder
			for _, c := range tt.chunks {
				tx, r := s.Push(c)
				text.WriteString(tx)
				reasoning.WriteString(r)
			}
			tx, r := s.Flush()
			text.WriteString(tx)
			reasoning.WriteString(r)

			assert.Equal(t, tt.wantText, text.String())
			assert.Equal(t, tt.wantReasoning, reasoning.String())
		})
	}
}

func drain(t *testing.T, s *Stream) (string, string) {
	t.Helper()
	var text, reasoning strings.Builder
	for {
		d, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), reasoning.String()
		}
		require.NoError(t, err)
		text.WriteString(d.Text)
		reasoning.WriteString(d.Reasoning)
	}
}

func TestProvider_Stream_ReasoningContent(t *testing.T) {
	chunks := append([]*schema.Message{testutil.ReasoningChunk("thinking hard")},
		testutil.TextChunks("stop", "The answer", " is 42.")...)
	cm := &testutil.ScriptedChatModel{Chunks: chunks}
	p := NewProviderWithModels(newTestCatalog(t), map[string]model.BaseChatModel{"sonnet-3.7": cm})

	cfg := BuildStreamConfig(ModelSpec{Flagship: true}, false, "system prompt", testPolicy)
	history := []*schema.Message{schema.UserMessage("what is the answer?")}
	s, err := p.Stream(context.Background(), "sonnet-3.7", cfg, history)
	require.NoError(t, err)
	defer s.Close()

	text, reasoning := drain(t, s)
	assert.Equal(t, "The answer is 42.", text)
	assert.Equal(t, "thinking hard", reasoning)

	c := s.Completion()
	assert.Equal(t, "The answer is 42.", c.Text)
	require.True(t, c.HasReasoning())
	assert.Equal(t, "thinking hard", *c.Reasoning)
	assert.Equal(t, "stop", c.FinishReason)
	require.NotNil(t, c.Usage)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, schema.System, calls[0][0].Role)
	assert.Equal(t, "system prompt", calls[0][0].Content)
	assert.Equal(t, []int{1}, cm.OptionCounts())
}

func TestProvider_Stream_ThinkTags(t *testing.T) {
	cm := &testutil.ScriptedChatModel{Chunks: testutil.TextChunks("stop", "<think>", "hmm", "</think>", "\n\nHi")}
	p := NewProviderWithModels(newTestCatalog(t), map[string]model.BaseChatModel{"deepseek-r1": cm})

	s, err := p.Stream(context.Background(), "deepseek-r1", StreamConfig{}, []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	drain(t, s)

	c := s.Completion()
	assert.Equal(t, "Hi", c.Text)
	require.NotNil(t, c.Reasoning)
	assert.Equal(t, "hmm", *c.Reasoning)
	assert.Equal(t, []int{0}, cm.OptionCounts())
}

func TestProvider_Stream_NoReasoning(t *testing.T) {
	cm := &testutil.ScriptedChatModel{Chunks: testutil.TextChunks("stop", "plain")}
	p := NewProviderWithModels(newTestCatalog(t), map[string]model.BaseChatModel{"deepseek-r1": cm})

	s, err := p.Stream(context.Background(), "deepseek-r1", StreamConfig{}, nil)
	require.NoError(t, err)
	drain(t, s)
	assert.Nil(t, s.Completion().Reasoning)
	assert.False(t, s.Completion().HasReasoning())
}

func TestProvider_Stream_Errors(t *testing.T) {
	catalog := newTestCatalog(t)

	t.Run("unknown model", func(t *testing.T) {
		p := NewProviderWithModels(catalog, nil)
		_, err := p.Stream(context.Background(), "nope", StreamConfig{}, nil)
		assert.ErrorIs(t, err, ErrUnknownModel)
	})

	t.Run("model not built", func(t *testing.T) {
		p := NewProviderWithModels(catalog, map[string]model.BaseChatModel{})
		_, err := p.Stream(context.Background(), "sonnet-3.7", StreamConfig{}, nil)
		assert.ErrorIs(t, err, ErrUnknownModel)
	})

	t.Run("stream open fails", func(t *testing.T) {
		cm := &testutil.ScriptedChatModel{StreamErr: errors.New("401 unauthorized")}
		p := NewProviderWithModels(catalog, map[string]model.BaseChatModel{"sonnet-3.7": cm})
		_, err := p.Stream(context.Background(), "sonnet-3.7", StreamConfig{}, nil)
		assert.EqualError(t, err, "401 unauthorized")
	})

	t.Run("stream fails midway", func(t *testing.T) {
		cm := &testutil.ScriptedChatModel{
			Chunks:    testutil.TextChunks("", "partial"),
			FailAfter: errors.New("upstream reset"),
		}
		p := NewProviderWithModels(catalog, map[string]model.BaseChatModel{"sonnet-3.7": cm})
		s, err := p.Stream(context.Background(), "sonnet-3.7", StreamConfig{}, nil)
		require.NoError(t, err)

		d, err := s.Recv()
		require.NoError(t, err)
		assert.Equal(t, "partial", d.Text)
		_, err = s.Recv()
		assert.EqualError(t, err, "upstream reset")
	})
}

func TestNewProvider_OpenAICompatible(t *testing.T) {
	srv := testutil.NewOpenAIServer(t, []testutil.OpenAIChunk{
		{Content: "Hello"},
		{Content: " there", FinishReason: "stop"},
	})

	catalog, err := NewCatalog([]config.ModelConfig{
		{ID: "sonnet-3.7", Name: "Sonnet", Provider: "anthropic", Model: "claude-3-7-sonnet-20250219"},
	}, "sonnet-3.7")
	require.NoError(t, err)

	p, err := NewProvider(context.Background(), catalog, map[string]config.ProviderConfig{
		"anthropic": {APIKey: "test-key", BaseURL: srv.URL, Timeout: 5},
	})
	require.NoError(t, err)

	cfg := BuildStreamConfig(catalog.Default(), false, "you are a test", testPolicy)
	s, err := p.Stream(context.Background(), "sonnet-3.7", cfg, []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer s.Close()

	text, _ := drain(t, s)
	assert.Equal(t, "Hello there", text)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "claude-3-7-sonnet-20250219", reqs[0]["model"])
	assert.Equal(t, map[string]any{"type": "disabled", "budget_tokens": float64(12000)}, reqs[0]["thinking"])
}

func TestNewProvider_MissingProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), newTestCatalog(t), map[string]config.ProviderConfig{})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), newTestCatalog(t), map[string]config.ProviderConfig{
		"anthropic": {}, "fireworks": {}, "groq": {},
	})
	assert.Error(t, err)
}
