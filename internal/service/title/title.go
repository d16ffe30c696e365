// Package title 会话标题生成
package title

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLength 默认标题最大长度（字符数）
	DefaultMaxLength = 50
	// Ellipsis 截断标记
	Ellipsis = "..."

	// 最后一个空格位于 maxLength 的 70% 之后才按词截断
	wordBoundaryRatio = 0.7
)

// Generate 根据首条用户消息生成标题
// 换行折叠为空格并去除首尾空白；超过 maxLength 时优先在词边界截断并追加省略号
func Generate(firstMessage string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	cleaned := clean(firstMessage)
	if utf8.RuneCountInString(cleaned) <= maxLength {
		return cleaned
	}

	runes := []rune(cleaned)[:maxLength]
	truncated := string(runes)

	lastSpace := -1
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			lastSpace = i
			break
		}
	}
	if lastSpace >= 0 && float64(lastSpace) >= wordBoundaryRatio*float64(maxLength) {
		return string(runes[:lastSpace]) + Ellipsis
	}
	return truncated + Ellipsis
}

// FirstWords 取前 n 个词，作为 AI 标题失败时的兜底
func FirstWords(text string, n int) string {
	words := strings.Fields(text)
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
