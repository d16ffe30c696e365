package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ScriptedChatModel 按脚本输出的 ChatModel
type ScriptedChatModel struct {
	// Chunks Stream 依次输出的消息片段
	Chunks []*schema.Message
	// StreamErr 非空时 Stream 直接返回该错误
	StreamErr error
	// FailAfter 非空时在输出完 Chunks 后以该错误结束流
	FailAfter error
	// Gate 非空时输出第一个片段后等待其关闭（或 ctx 取消）
	Gate <-chan struct{}

	// Reply Generate 的返回值
	Reply       *schema.Message
	GenerateErr error

	mu      sync.Mutex
	calls   [][]*schema.Message
	options [][]model.Option
}

var _ model.BaseChatModel = (*ScriptedChatModel)(nil)

// Generate 实现 model.BaseChatModel
func (m *ScriptedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.record(input, opts)
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}
	if m.Reply == nil {
		return nil, errors.New("no scripted reply")
	}
	return m.Reply, nil
}

// Stream 实现 model.BaseChatModel
func (m *ScriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.record(input, opts)
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}

	sr, sw := schema.Pipe[*schema.Message](len(m.Chunks) + 1)
	go func() {
		defer sw.Close()
		for i, chunk := range m.Chunks {
			if closed := sw.Send(chunk, nil); closed {
				return
			}
			if i == 0 && m.Gate != nil {
				select {
				case <-m.Gate:
				case <-ctx.Done():
					sw.Send(nil, ctx.Err())
					return
				}
			}
		}
		if m.FailAfter != nil {
			sw.Send(nil, m.FailAfter)
		}
	}()
	return sr, nil
}

func (m *ScriptedChatModel) record(input []*schema.Message, opts []model.Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, input)
	m.options = append(m.options, opts)
}

// Calls 每次调用收到的输入
func (m *ScriptedChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// OptionCounts 每次调用收到的选项个数
func (m *ScriptedChatModel) OptionCounts() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.options))
	for i, o := range m.options {
		out[i] = len(o)
	}
	return out
}

// TextChunks 构造纯文本片段，最后一个片段带 finish reason
func TextChunks(finishReason string, parts ...string) []*schema.Message {
	chunks := make([]*schema.Message, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, Content: p})
	}
	if len(chunks) > 0 && finishReason != "" {
		chunks[len(chunks)-1].ResponseMeta = &schema.ResponseMeta{
			FinishReason: finishReason,
			Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: len(parts), TotalTokens: 10 + len(parts)},
		}
	}
	return chunks
}

// ReasoningChunk 构造只含推理内容的片段
func ReasoningChunk(text string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, ReasoningContent: text}
}
