package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
)

const orchestratorComponent = "chat.orchestrator"

// EventType 流事件类型
type EventType string

const (
	// EventStart 仅在会话已绑定时发送，携带已保存的用户消息 ID
	EventStart     EventType = "start"
	EventReasoning EventType = "reasoning"
	EventText      EventType = "text"
	EventError     EventType = "error"
	EventFinish    EventType = "finish"
)

// StreamEvent 推送给客户端的流事件
type StreamEvent struct {
	Type         EventType `json:"type"`
	Content      string    `json:"content,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	FinishReason string    `json:"finish_reason,omitempty"`
	// UserMessageID 本轮已保存的用户消息，可作为编辑重发的 editMessageId
	UserMessageID string `json:"user_message_id,omitempty"`
	// MessageID 本轮已保存的回复消息
	MessageID string `json:"message_id,omitempty"`
}

// TurnRequest 一次聊天请求
type TurnRequest struct {
	Messages         []InboundMessage
	ModelID          string
	ReasoningEnabled bool
	SessionID        string
	// EditMessageID 非空时先删除该消息（含）之后的历史再按正常流程处理
	EditMessageID string
	Identity      session.Identity
}

// Turn 进行中的一轮对话
type Turn struct {
	binding session.Binding
	modelID string
	events  <-chan StreamEvent
}

// SessionID 绑定的会话 ID，未绑定时为空
func (t *Turn) SessionID() string {
	return t.binding.ID()
}

// ModelID 实际使用的模型
func (t *Turn) ModelID() string {
	return t.modelID
}

// Events 事件通道，流结束后关闭
func (t *Turn) Events() <-chan StreamEvent {
	return t.events
}

// StreamProvider 模型流式调用
type StreamProvider interface {
	Stream(ctx context.Context, modelID string, cfg llm.StreamConfig, history []*schema.Message) (*llm.Stream, error)
}

// OrchestratorConfig 流式编排配置
type OrchestratorConfig struct {
	SystemPrompt string
	SmoothDelay  time.Duration
	Thinking     llm.ThinkingPolicy
}

// Orchestrator 流式对话编排
// 顺序：绑定会话 → 保存用户消息 → 调用模型 → 保存回复
type Orchestrator struct {
	sessions *session.Manager
	recorder *Recorder
	store    repository.ChatStore
	catalog  *llm.Catalog
	provider StreamProvider
	cfg      OrchestratorConfig
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewOrchestrator 创建流式对话编排器
func NewOrchestrator(
	sessions *session.Manager,
	recorder *Recorder,
	store repository.ChatStore,
	catalog *llm.Catalog,
	provider StreamProvider,
	cfg OrchestratorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		recorder: recorder,
		store:    store,
		catalog:  catalog,
		provider: provider,
		cfg:      cfg,
		log:      log,
		metrics:  m,
	}
}

// Start 校验请求、绑定会话并保存用户消息，然后在后台开始流式生成
// 返回的 error 只可能是请求校验或越权错误
func (o *Orchestrator) Start(ctx context.Context, req TurnRequest) (*Turn, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages", ErrMissingField)
	}
	for _, m := range req.Messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, m.Role)
		}
	}
	spec, err := o.catalog.Resolve(req.ModelID)
	if err != nil {
		return nil, err
	}

	binding, err := o.sessions.Bind(ctx, req.SessionID, req.Identity)
	if err != nil {
		return nil, err
	}

	if req.EditMessageID != "" {
		o.rewind(ctx, binding, req.EditMessageID)
	}
	userMessageID := o.recorder.PersistUserTurn(ctx, binding, req.Messages)

	cfg := llm.BuildStreamConfig(spec, req.ReasoningEnabled, o.cfg.SystemPrompt, o.cfg.Thinking)
	events := make(chan StreamEvent)
	go o.run(ctx, binding, spec, req, cfg, userMessageID, events)

	return &Turn{binding: binding, modelID: spec.ID, events: events}, nil
}

// rewind 删除被编辑消息及其之后的历史
func (o *Orchestrator) rewind(ctx context.Context, b session.Binding, messageID string) {
	if !b.IsBound() {
		return
	}
	deleted, err := o.store.TruncateMessages(ctx, b.ID(), messageID)
	if err != nil {
		o.log.Error(orchestratorComponent, "rewind failed", map[string]any{
			"action":     "truncate_messages",
			"session_id": b.ID(),
			"message_id": messageID,
			"error":      err,
		})
		o.metrics.RecordPersistenceFailure(orchestratorComponent, "truncate_messages")
		return
	}
	o.log.Info(orchestratorComponent, "conversation rewound", map[string]any{
		"session_id": b.ID(),
		"message_id": messageID,
		"deleted":    deleted,
	})
}

func (o *Orchestrator) run(ctx context.Context, b session.Binding, spec llm.ModelSpec, req TurnRequest, cfg llm.StreamConfig, userMessageID string, events chan<- StreamEvent) {
	defer close(events)

	start := time.Now()
	if o.metrics != nil {
		o.metrics.StreamsInFlight.Inc()
		defer func() {
			o.metrics.StreamsInFlight.Dec()
			o.metrics.StreamDuration.WithLabelValues(spec.ID).Observe(time.Since(start).Seconds())
		}()
	}

	if b.IsBound() {
		if !o.send(ctx, events, StreamEvent{Type: EventStart, SessionID: b.ID(), UserMessageID: userMessageID}) {
			o.aborted(b, spec)
			return
		}
	}

	stream, err := o.provider.Stream(ctx, spec.ID, cfg, toSchemaMessages(req.Messages))
	if err != nil {
		o.fail(ctx, b, spec, err, events)
		return
	}
	defer stream.Close()

	var smoother wordSmoother
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			o.fail(ctx, b, spec, err, events)
			return
		}
		if d.Reasoning != "" {
			if !o.send(ctx, events, StreamEvent{Type: EventReasoning, Content: d.Reasoning}) {
				o.aborted(b, spec)
				return
			}
		}
		for _, word := range smoother.Push(d.Text) {
			if !o.emitText(ctx, events, word) {
				o.aborted(b, spec)
				return
			}
		}
	}
	if rest := smoother.Flush(); rest != "" {
		if !o.emitText(ctx, events, rest) {
			o.aborted(b, spec)
			return
		}
	}

	completion := stream.Completion()
	// 回复已全部送达，客户端断开也要完成保存
	messageID := o.recorder.PersistAssistantTurn(context.WithoutCancel(ctx), b, AssistantTurn{
		Completion:       completion,
		ModelID:          spec.ID,
		ReasoningEnabled: req.ReasoningEnabled,
		UserContent:      lastUserContent(req.Messages),
	})
	o.metrics.RecordTurn(spec.ID, metrics.OutcomeCompleted)

	o.send(ctx, events, StreamEvent{
		Type:          EventFinish,
		SessionID:     b.ID(),
		FinishReason:  completion.FinishReason,
		UserMessageID: userMessageID,
		MessageID:     messageID,
	})
}

func (o *Orchestrator) emitText(ctx context.Context, events chan<- StreamEvent, text string) bool {
	if !o.send(ctx, events, StreamEvent{Type: EventText, Content: text}) {
		return false
	}
	if o.cfg.SmoothDelay <= 0 {
		return true
	}
	timer := time.NewTimer(o.cfg.SmoothDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) send(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) fail(ctx context.Context, b session.Binding, spec llm.ModelSpec, err error, events chan<- StreamEvent) {
	if ctx.Err() != nil {
		o.aborted(b, spec)
		return
	}
	// 提供商错误细节只写日志
	o.log.Error(orchestratorComponent, "model stream failed", map[string]any{
		"model":      spec.ID,
		"provider":   spec.Provider,
		"session_id": b.ID(),
		"error":      err,
	})
	o.metrics.RecordTurn(spec.ID, metrics.OutcomeFailed)
	o.send(ctx, events, StreamEvent{Type: EventError, Content: GenericErrorMessage})
}

func (o *Orchestrator) aborted(b session.Binding, spec llm.ModelSpec) {
	o.log.Info(orchestratorComponent, "client disconnected before stream finished", map[string]any{
		"model":      spec.ID,
		"session_id": b.ID(),
	})
	o.metrics.RecordTurn(spec.ID, metrics.OutcomeAborted)
}

func toSchemaMessages(messages []InboundMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func lastUserContent(messages []InboundMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
