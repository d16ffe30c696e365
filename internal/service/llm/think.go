package llm

import (
	"strings"
	"unicode"
)

// tagSplitter 从流式正文中拆出 <tag>...</tag> 推理片段，标签可能跨 chunk
type tagSplitter struct {
	open, close string
	inside      bool
	pending     string
	trimNext    bool
}

func newTagSplitter(tag string) *tagSplitter {
	return &tagSplitter{open: "<" + tag + ">", close: "</" + tag + ">"}
}

// Push 输入一段正文，返回可以立即输出的正文和推理内容
func (s *tagSplitter) Push(chunk string) (text, reasoning string) {
	s.pending += chunk
	var tb, rb strings.Builder

	for {
		marker := s.open
		if s.inside {
			marker = s.close
		}

		if i := strings.Index(s.pending, marker); i >= 0 {
			s.emit(&tb, &rb, s.pending[:i])
			s.pending = s.pending[i+len(marker):]
			s.inside = !s.inside
			if !s.inside {
				s.trimNext = true
			}
			continue
		}

		// 保留可能是标签前缀的尾部
		keep := partialSuffix(s.pending, marker)
		s.emit(&tb, &rb, s.pending[:len(s.pending)-keep])
		s.pending = s.pending[len(s.pending)-keep:]
		return tb.String(), rb.String()
	}
}

// Flush 流结束时输出剩余内容
func (s *tagSplitter) Flush() (text, reasoning string) {
	var tb, rb strings.Builder
	s.emit(&tb, &rb, s.pending)
	s.pending = ""
	return tb.String(), rb.String()
}

func (s *tagSplitter) emit(tb, rb *strings.Builder, part string) {
	if part == "" {
		return
	}
	if s.inside {
		rb.WriteString(part)
		return
	}
	if s.trimNext {
		part = strings.TrimLeftFunc(part, unicode.IsSpace)
		if part == "" {
			return
		}
		s.trimNext = false
	}
	tb.WriteString(part)
}

// partialSuffix 返回 s 末尾与 marker 前缀重合的最大长度
func partialSuffix(s, marker string) int {
	n := len(marker) - 1
	if n > len(s) {
		n = len(s)
	}
	for ; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
