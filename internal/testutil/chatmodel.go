// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrScriptExhausted 脚本中的回复已用完
var ErrScriptExhausted = errors.New("scripted chat model: no more replies")

// Reply 一次调用的预设回复
type Reply struct {
	Message *schema.Message
	Err     error
	Delay   time.Duration // 模拟慢响应，期间会响应 ctx 取消
}

// Call 记录的一次模型调用
type Call struct {
	Messages []*schema.Message
	Tools    []string
}

type script struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// ScriptedChatModel 按顺序返回预设回复的 ToolCallingChatModel
// WithTools 返回的副本与原对象共享同一份脚本
type ScriptedChatModel struct {
	s     *script
	tools []*schema.ToolInfo
}

// NewScriptedChatModel 创建脚本化模型
func NewScriptedChatModel(replies ...Reply) *ScriptedChatModel {
	return &ScriptedChatModel{s: &script{replies: replies}}
}

// Push 追加回复
func (m *ScriptedChatModel) Push(replies ...Reply) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.replies = append(m.s.replies, replies...)
}

// Generate 返回下一条预设回复
func (m *ScriptedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	names := make([]string, 0, len(m.tools))
	for _, t := range m.tools {
		names = append(names, t.Name)
	}

	m.s.mu.Lock()
	m.s.calls = append(m.s.calls, Call{Messages: input, Tools: names})
	if len(m.s.replies) == 0 {
		m.s.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	reply := m.s.replies[0]
	m.s.replies = m.s.replies[1:]
	m.s.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reply.Delay):
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return reply.Message, nil
}

// Stream 以单帧流返回下一条回复
func (m *ScriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// WithTools 绑定工具
func (m *ScriptedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &ScriptedChatModel{s: m.s, tools: tools}, nil
}

// Calls 已发生的调用
func (m *ScriptedChatModel) Calls() []Call {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]Call, len(m.s.calls))
	copy(out, m.s.calls)
	return out
}

// CallCount 已发生的调用次数
func (m *ScriptedChatModel) CallCount() int {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.calls)
}

// Remaining 未消费的回复数
func (m *ScriptedChatModel) Remaining() int {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.replies)
}

// TextReply 纯文本回复
func TextReply(text string) Reply {
	return Reply{Message: &schema.Message{
		Role:    schema.Assistant,
		Content: text,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "stop",
			Usage:        &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 20, TotalTokens: 140},
		},
	}}
}

// ToolCallReply 工具调用回复
func ToolCallReply(name, arguments string) Reply {
	return Reply{Message: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:   "call_" + name,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      name,
				Arguments: arguments,
			},
		}},
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "tool_calls",
			Usage:        &schema.TokenUsage{PromptTokens: 400, CompletionTokens: 90, TotalTokens: 490},
		},
	}}
}

// ErrorReply 调用失败
func ErrorReply(err error) Reply {
	return Reply{Err: err}
}

var _ model.ToolCallingChatModel = (*ScriptedChatModel)(nil)
