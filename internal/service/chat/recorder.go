package chat

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/metrics"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/session"
	"github.com/ashwinyue/next-chat/internal/service/title"
)

const recorderComponent = "chat.recorder"

// FirstTurnDetection 判断首轮用户消息的方式
type FirstTurnDetection string

const (
	// DetectByTitle 会话标题仍为占位标题即视为首轮
	DetectByTitle FirstTurnDetection = "title"
	// DetectByCount 已持久化的用户消息只有刚保存的这一条即视为首轮
	DetectByCount FirstTurnDetection = "count"
)

// TitleGenerator AI 标题生成，返回 error 时标题为兜底值
type TitleGenerator interface {
	Generate(ctx context.Context, userContent, assistantContent string) (string, error)
}

// InboundMessage 客户端提交的一条对话消息
type InboundMessage struct {
	Role      model.Role
	Content   string
	CreatedAt *time.Time
}

// AssistantTurn 一次完成的模型回复
type AssistantTurn struct {
	Completion       *llm.Completion
	ModelID          string
	ReasoningEnabled bool
	UserContent      string
}

// RecorderConfig 持久化编排配置
type RecorderConfig struct {
	TitleMaxLength int
	Detection      FirstTurnDetection
	// AITitles 非空时在首轮回复完成后用模型生成标题，而不是截取用户消息
	AITitles TitleGenerator
}

// Recorder 消息持久化编排
// 所有失败都只记录日志和指标，不影响正在进行的对话
type Recorder struct {
	store   repository.ChatStore
	cfg     RecorderConfig
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRecorder 创建消息持久化编排器
func NewRecorder(store repository.ChatStore, cfg RecorderConfig, log *logger.Logger, m *metrics.Metrics) *Recorder {
	if cfg.Detection == "" {
		cfg.Detection = DetectByTitle
	}
	return &Recorder{
		store:   store,
		cfg:     cfg,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PersistUserTurn 保存本轮最后一条用户消息，首轮时生成标题
// 返回已保存消息的 ID，未保存时为空
func (r *Recorder) PersistUserTurn(ctx context.Context, b session.Binding, messages []InboundMessage) string {
	if !b.IsBound() || len(messages) == 0 {
		return ""
	}
	last := messages[len(messages)-1]
	if last.Role != model.RoleUser {
		return ""
	}

	ts := r.now()
	if last.CreatedAt != nil {
		ts = last.CreatedAt.UTC()
	}
	saved, err := r.store.SaveMessage(ctx, &model.ChatMessage{
		SessionID: b.ID(),
		Role:      model.RoleUser,
		Content:   last.Content,
		Metadata:  map[string]any{"timestamp": ts.Format(time.RFC3339Nano)},
	})
	if err != nil {
		r.failed("save_user_message", b.ID(), err)
		return ""
	}

	// AI 标题在回复完成后生成
	if r.cfg.AITitles == nil {
		r.titleFirstTurn(ctx, b.ID(), last.Content)
	}
	return saved.ID
}

func (r *Recorder) titleFirstTurn(ctx context.Context, sessionID, content string) {
	first, err := r.isFirstTurn(ctx, sessionID)
	if err != nil {
		r.failed("detect_first_turn", sessionID, err)
		return
	}
	if !first {
		return
	}

	t := title.Generate(content, r.cfg.TitleMaxLength)
	if t == "" {
		return
	}
	if err := r.store.UpdateSessionTitle(ctx, sessionID, t); err != nil {
		r.failed("update_session_title", sessionID, err)
	}
}

func (r *Recorder) isFirstTurn(ctx context.Context, sessionID string) (bool, error) {
	if r.cfg.Detection == DetectByCount {
		n, err := r.store.CountMessagesByRole(ctx, sessionID, model.RoleUser)
		if err != nil {
			return false, err
		}
		return n == 1, nil
	}

	s, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s != nil && s.HasDefaultTitle(), nil
}

// PersistAssistantTurn 保存模型回复，并在需要时生成 AI 标题
// 返回已保存消息的 ID，未保存时为空
func (r *Recorder) PersistAssistantTurn(ctx context.Context, b session.Binding, turn AssistantTurn) string {
	if !b.IsBound() || turn.Completion == nil {
		return ""
	}
	c := turn.Completion
	score := Score(c.Text, c.HasReasoning())

	var reasoning *string
	if c.HasReasoning() {
		reasoning = c.Reasoning
	}

	saved, err := r.store.SaveMessage(ctx, &model.ChatMessage{
		SessionID: b.ID(),
		Role:      model.RoleAssistant,
		Content:   c.Text,
		Reasoning: reasoning,
		Score:     &score,
		Metadata: map[string]any{
			"model":             turn.ModelID,
			"reasoning_enabled": turn.ReasoningEnabled,
			"usage":             usageMetadata(c),
			"finish_reason":     c.FinishReason,
			"timestamp":         r.now().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		r.failed("save_assistant_message", b.ID(), err)
		return ""
	}

	if r.cfg.AITitles != nil {
		r.generateAITitle(ctx, b.ID(), turn.UserContent, c.Text)
	}
	return saved.ID
}

func (r *Recorder) generateAITitle(ctx context.Context, sessionID, userContent, assistantContent string) {
	s, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		r.failed("get_session", sessionID, err)
		return
	}
	if s == nil || !s.HasDefaultTitle() || userContent == "" {
		return
	}

	t, err := r.cfg.AITitles.Generate(ctx, userContent, assistantContent)
	if err != nil {
		r.log.Warn(recorderComponent, "ai title generation failed, using fallback", map[string]any{
			"session_id": sessionID,
			"error":      err,
		})
	}
	if t == "" {
		return
	}
	if err := r.store.UpdateSessionTitle(ctx, sessionID, t); err != nil {
		r.failed("update_session_title", sessionID, err)
	}
}

func (r *Recorder) failed(action, sessionID string, err error) {
	r.log.Error(recorderComponent, "persistence failed", map[string]any{
		"action":     action,
		"session_id": sessionID,
		"error":      err,
	})
	r.metrics.RecordPersistenceFailure(recorderComponent, action)
}

// Score 回复质量的粗略估计，仅用于展示
func Score(text string, hasReasoning bool) int {
	score := utf8.RuneCountInString(text) / 10
	if hasReasoning {
		score += 20
	}
	return min(score, 100)
}

func usageMetadata(c *llm.Completion) map[string]any {
	if c.Usage == nil {
		return nil
	}
	return map[string]any{
		"prompt_tokens":     c.Usage.PromptTokens,
		"completion_tokens": c.Usage.CompletionTokens,
		"total_tokens":      c.Usage.TotalTokens,
	}
}
