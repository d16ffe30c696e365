package chat

import (
	"strings"
	"unicode"
)

// wordSmoother 把模型输出重新切分为以空白结尾的词块
type wordSmoother struct {
	buf strings.Builder
}

// Push 追加文本，返回已完整的词块
func (s *wordSmoother) Push(text string) []string {
	if text == "" {
		return nil
	}
	s.buf.WriteString(text)
	pending := s.buf.String()

	var out []string
	start := 0
	inSpace := false
	for i, r := range pending {
		space := unicode.IsSpace(r)
		if inSpace && !space {
			if strings.TrimSpace(pending[start:i]) != "" {
				out = append(out, pending[start:i])
				start = i
			}
		}
		inSpace = space
	}

	rest := pending[start:]
	// 以空白结尾的尾部也已完整
	if inSpace && strings.TrimSpace(rest) != "" {
		out = append(out, rest)
		rest = ""
	}
	s.buf.Reset()
	s.buf.WriteString(rest)
	return out
}

// Flush 返回剩余文本
func (s *wordSmoother) Flush() string {
	rest := s.buf.String()
	s.buf.Reset()
	return rest
}
