package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// OpenAIChunk 模拟服务端输出的一个流式片段
type OpenAIChunk struct {
	Content          string
	ReasoningContent string
	FinishReason     string
}

// OpenAIServer 模拟 OpenAI 兼容的 /chat/completions 流式接口
type OpenAIServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

// NewOpenAIServer 启动模拟服务，测试结束时关闭
func NewOpenAIServer(t *testing.T, chunks []OpenAIChunk) *OpenAIServer {
	t.Helper()

	s := &OpenAIServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)

		for _, c := range chunks {
			delta := map[string]any{"role": "assistant", "content": c.Content}
			if c.ReasoningContent != "" {
				delta["reasoning_content"] = c.ReasoningContent
			}
			var finish any
			if c.FinishReason != "" {
				finish = c.FinishReason
			}
			payload, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"created": 1700000000,
				"model":   req["model"],
				"choices": []any{map[string]any{
					"index":         0,
					"delta":         delta,
					"finish_reason": finish,
				}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(s.Close)
	return s
}

// Requests 收到的请求体
func (s *OpenAIServer) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.requests))
	copy(out, s.requests)
	return out
}
