package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-chat/internal/config"
)

// Delta 流中的一段增量输出
type Delta struct {
	Text      string
	Reasoning string
}

// Completion 流结束后汇总的结果
type Completion struct {
	Text string
	// Reasoning 模型未输出推理内容时为 nil
	Reasoning    *string
	Usage        *schema.TokenUsage
	FinishReason string
}

// HasReasoning 是否带有推理内容
func (c *Completion) HasReasoning() bool {
	return c != nil && c.Reasoning != nil && *c.Reasoning != ""
}

// Provider 模型提供商适配器
type Provider struct {
	catalog *Catalog
	models  map[string]model.BaseChatModel
}

// NewProvider 为目录中的每个模型创建 OpenAI 兼容的 ChatModel
func NewProvider(ctx context.Context, catalog *Catalog, providers map[string]config.ProviderConfig) (*Provider, error) {
	models := make(map[string]model.BaseChatModel)
	for _, spec := range catalog.Models() {
		pc, ok := providers[spec.Provider]
		if !ok {
			return nil, fmt.Errorf("model %s: provider %q is not configured", spec.ID, spec.Provider)
		}
		cm, err := newChatModel(ctx, spec, pc)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", spec.ID, err)
		}
		models[spec.ID] = cm
	}
	return &Provider{catalog: catalog, models: models}, nil
}

// NewProviderWithModels 使用给定的 ChatModel 创建适配器
func NewProviderWithModels(catalog *Catalog, models map[string]model.BaseChatModel) *Provider {
	return &Provider{catalog: catalog, models: models}
}

func newChatModel(ctx context.Context, spec ModelSpec, pc config.ProviderConfig) (model.BaseChatModel, error) {
	if pc.APIKey == "" {
		return nil, errors.New("api key is not set")
	}
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   spec.Model,
		Timeout: time.Duration(pc.Timeout) * time.Second,
	})
}

// Catalog 模型目录
func (p *Provider) Catalog() *Catalog {
	return p.catalog
}

// ChatModel 返回指定模型的 ChatModel
func (p *Provider) ChatModel(modelID string) (model.BaseChatModel, error) {
	cm, ok := p.models[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return cm, nil
}

// Stream 发起流式调用
func (p *Provider) Stream(ctx context.Context, modelID string, cfg StreamConfig, history []*schema.Message) (*Stream, error) {
	spec, err := p.catalog.Lookup(modelID)
	if err != nil {
		return nil, err
	}
	cm, err := p.ChatModel(modelID)
	if err != nil {
		return nil, err
	}

	input := make([]*schema.Message, 0, len(history)+1)
	if cfg.SystemPrompt != "" {
		input = append(input, schema.SystemMessage(cfg.SystemPrompt))
	}
	input = append(input, history...)

	var opts []model.Option
	if extra := cfg.Thinking.extraFields(); extra != nil {
		opts = append(opts, openai.WithExtraFields(extra))
	}

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      spec.ID,
		Type:      spec.Provider,
		Component: components.ComponentOfChatModel,
	})
	reader, err := cm.Stream(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return newStream(reader, spec), nil
}

// Stream 单次流式调用
type Stream struct {
	reader   *schema.StreamReader[*schema.Message]
	splitter *tagSplitter

	text         strings.Builder
	reasoning    strings.Builder
	usage        *schema.TokenUsage
	finishReason string
	done         bool
}

func newStream(reader *schema.StreamReader[*schema.Message], spec ModelSpec) *Stream {
	s := &Stream{reader: reader}
	if spec.ReasoningTag != "" {
		s.splitter = newTagSplitter(spec.ReasoningTag)
	}
	return s
}

// Recv 读取下一段增量，流结束时返回 io.EOF
// 返回的 Delta 可能为空（例如只携带 usage 的 chunk）
func (s *Stream) Recv() (Delta, error) {
	if s.done {
		return Delta{}, io.EOF
	}

	chunk, err := s.reader.Recv()
	if errors.Is(err, io.EOF) {
		s.done = true
		if s.splitter != nil {
			text, reasoning := s.splitter.Flush()
			if text != "" || reasoning != "" {
				return s.record(text, reasoning), nil
			}
		}
		return Delta{}, io.EOF
	}
	if err != nil {
		return Delta{}, err
	}

	if meta := chunk.ResponseMeta; meta != nil {
		if meta.FinishReason != "" {
			s.finishReason = meta.FinishReason
		}
		if meta.Usage != nil {
			s.usage = meta.Usage
		}
	}

	text, reasoning := chunk.Content, chunk.ReasoningContent
	if s.splitter != nil {
		var tagged string
		text, tagged = s.splitter.Push(text)
		reasoning += tagged
	}
	return s.record(text, reasoning), nil
}

func (s *Stream) record(text, reasoning string) Delta {
	s.text.WriteString(text)
	s.reasoning.WriteString(reasoning)
	return Delta{Text: text, Reasoning: reasoning}
}

// Completion 汇总结果，仅在 Recv 返回 io.EOF 后有效
func (s *Stream) Completion() *Completion {
	c := &Completion{
		Text:         s.text.String(),
		Usage:        s.usage,
		FinishReason: s.finishReason,
	}
	if r := strings.TrimSpace(s.reasoning.String()); r != "" {
		c.Reasoning = &r
	}
	return c
}

// Close 关闭底层流
func (s *Stream) Close() {
	s.reader.Close()
}
