package llm

// Thinking extended thinking 指令
type Thinking struct {
	Enabled      bool
	BudgetTokens int
}

// StreamConfig 单次流式调用的模型配置
type StreamConfig struct {
	SystemPrompt string
	// Thinking 为 nil 时不向提供商发送任何推理指令
	Thinking *Thinking
}

// ThinkingPolicy 旗舰模型的推理预算
type ThinkingPolicy struct {
	DefaultBudget  int
	DisabledBudget int
}

// BuildStreamConfig 根据所选模型和推理开关生成调用配置
// 旗舰模型显式关闭推理时发送关闭指令，否则使用提供商默认（开启）；其他模型不发送指令
func BuildStreamConfig(spec ModelSpec, reasoningEnabled bool, systemPrompt string, policy ThinkingPolicy) StreamConfig {
	cfg := StreamConfig{SystemPrompt: systemPrompt}
	if !spec.Flagship {
		return cfg
	}
	if reasoningEnabled {
		cfg.Thinking = &Thinking{Enabled: true, BudgetTokens: policy.DefaultBudget}
	} else {
		cfg.Thinking = &Thinking{Enabled: false, BudgetTokens: policy.DisabledBudget}
	}
	return cfg
}

// extraFields 转换为 OpenAI 兼容请求中的 thinking 字段
func (t *Thinking) extraFields() map[string]any {
	if t == nil {
		return nil
	}
	typ := "enabled"
	if !t.Enabled {
		typ = "disabled"
	}
	return map[string]any{"thinking": map[string]any{
		"type":          typ,
		"budget_tokens": t.BudgetTokens,
	}}
}
