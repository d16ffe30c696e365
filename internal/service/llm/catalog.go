// Package llm 模型提供商适配层
// 通过 eino 的 OpenAI 兼容 ChatModel 接入各家模型，并把推理内容统一为 Completion.Reasoning
package llm

import (
	"errors"
	"fmt"

	"github.com/ashwinyue/next-chat/internal/config"
)

// ErrUnknownModel 模型不在目录中
var ErrUnknownModel = errors.New("unknown model")

// ModelSpec 可选模型
type ModelSpec struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"-"`
	// Flagship 为旗舰推理模型，支持显式关闭 extended thinking
	Flagship bool `json:"flagship"`
	// ReasoningTag 非空时推理内容以 <tag>...</tag> 形式混在正文中
	ReasoningTag string `json:"-"`
}

// Reasoning 模型是否会输出推理内容
func (s ModelSpec) Reasoning() bool {
	return s.Flagship || s.ReasoningTag != ""
}

// Catalog 模型目录
type Catalog struct {
	specs []ModelSpec
	byID  map[string]int
}

// NewCatalog 根据配置创建模型目录，flagshipID 指定旗舰推理模型
func NewCatalog(models []config.ModelConfig, flagshipID string) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(models))}
	for _, m := range models {
		if m.ID == "" || m.Provider == "" || m.Model == "" {
			return nil, fmt.Errorf("model %q: id, provider and model are required", m.ID)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		c.byID[m.ID] = len(c.specs)
		c.specs = append(c.specs, ModelSpec{
			ID:           m.ID,
			Name:         m.Name,
			Provider:     m.Provider,
			Model:        m.Model,
			Flagship:     m.ID == flagshipID,
			ReasoningTag: m.ReasoningTag,
		})
	}
	if len(c.specs) == 0 {
		return nil, errors.New("model catalog is empty")
	}
	return c, nil
}

// Lookup 按 ID 查找模型
func (c *Catalog) Lookup(id string) (ModelSpec, error) {
	i, ok := c.byID[id]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return c.specs[i], nil
}

// Resolve 查找模型，id 为空时返回默认模型
func (c *Catalog) Resolve(id string) (ModelSpec, error) {
	if id == "" {
		return c.Default(), nil
	}
	return c.Lookup(id)
}

// Default 默认模型（目录中的第一个）
func (c *Catalog) Default() ModelSpec {
	return c.specs[0]
}

// Models 所有模型，按配置顺序
func (c *Catalog) Models() []ModelSpec {
	out := make([]ModelSpec, len(c.specs))
	copy(out, c.specs)
	return out
}
