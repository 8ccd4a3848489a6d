package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// HTTPRoundTripper 把请求改写到测试服务器
type HTTPRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

// RoundTrip 实现 http.RoundTripper
func (t *HTTPRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.URL.Scheme = t.base.Scheme
	cloned.URL.Host = t.base.Host
	cloned.Host = t.base.Host
	return t.next.RoundTrip(cloned)
}

// NewTestClient 所有请求都发往 ts 的 HTTP 客户端
// 保留原路径，配置里的 BaseURL 不必改成测试地址
func NewTestClient(ts *httptest.Server) *http.Client {
	u, _ := url.Parse(ts.URL)
	return &http.Client{
		Timeout:   5 * time.Second,
		Transport: &HTTPRoundTripper{base: u, next: http.DefaultTransport},
	}
}

// CompletionReply 一次 /chat/completions 的预设响应
type CompletionReply struct {
	Status int
	Body   string
}

// CompletionServer 模拟 OpenAI 兼容的补全接口，按顺序返回预设响应
type CompletionServer struct {
	*httptest.Server

	mu       sync.Mutex
	replies  []CompletionReply
	requests []map[string]any
}

// NewCompletionServer 启动模拟服务，测试结束时关闭
func NewCompletionServer(t *testing.T, replies ...CompletionReply) *CompletionServer {
	t.Helper()
	s := &CompletionServer{replies: replies}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *CompletionServer) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.requests = append(s.requests, body)
	if len(s.replies) == 0 {
		s.mu.Unlock()
		http.Error(w, `{"error":{"message":"no scripted reply"}}`, http.StatusInternalServerError)
		return
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply.Body)
}

// Requests 收到的请求体
func (s *CompletionServer) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.requests))
	copy(out, s.requests)
	return out
}

// TextCompletion 纯文本补全
func TextCompletion(text string) CompletionReply {
	return completion(map[string]any{"role": "assistant", "content": text}, "stop", 120, 20)
}

// ToolCallCompletion 工具调用补全
func ToolCallCompletion(name, arguments string) CompletionReply {
	return completion(map[string]any{
		"role":    "assistant",
		"content": "",
		"tool_calls": []map[string]any{{
			"id":   "call_" + name,
			"type": "function",
			"function": map[string]any{
				"name":      name,
				"arguments": arguments,
			},
		}},
	}, "tool_calls", 400, 90)
}

// ErrorCompletion 接口错误
func ErrorCompletion(status int, message string) CompletionReply {
	raw, _ := json.Marshal(map[string]any{"error": map[string]any{"message": message, "type": "api_error"}})
	return CompletionReply{Status: status, Body: string(raw)}
}

func completion(msg map[string]any, finish string, prompt, completionTokens int) CompletionReply {
	raw, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1741600000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       msg,
			"finish_reason": finish,
		}},
		"usage": map[string]any{
			"prompt_tokens":     prompt,
			"completion_tokens": completionTokens,
			"total_tokens":      prompt + completionTokens,
		},
	})
	return CompletionReply{Body: string(raw)}
}
