// Package extractor 通过函数调用把自由文本转换为结构化载荷
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

// 模型响应类型
const (
	ResponseText         = "text"
	ResponseFunctionCall = "function_call"
)

// Turn 一轮对话
type Turn struct {
	Role    string `json:"role"` // user / assistant
	Content string `json:"content"`
}

// Request 抽取请求
type Request struct {
	History     []Turn
	Message     string
	ContentType ContentType // 为空时由模型在两个工具中选择
	Round       int
}

// Call 一次模型调用的元数据
type Call struct {
	Model        string
	Usage        *schema.TokenUsage // 未返回用量时为 nil
	ResponseType string
	ToolName     string
	Raw          string // 工具参数或文本原文
	Repaired     bool
	Duration     time.Duration
}

// Outcome 抽取结果：*Structured | *NeedsClarification | *Failed
type Outcome interface {
	Meta() Call
	outcome()
}

// Structured 得到终态载荷
type Structured struct {
	Payload *Payload
	Call    Call
}

// NeedsClarification 模型返回文本追问
type NeedsClarification struct {
	Question string
	Call     Call
}

// FailureKind 失败类别
type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindUpstream   FailureKind = "upstream"
)

// Failed 抽取失败
type Failed struct {
	Kind    FailureKind
	Reason  string
	Err     error
	Fields  []FieldError
	Payload *Payload // 校验失败时的候选载荷，仅用于审计
	Call    Call
}

func (o *Structured) Meta() Call         { return o.Call }
func (o *NeedsClarification) Meta() Call { return o.Call }
func (o *Failed) Meta() Call             { return o.Call }

func (*Structured) outcome()         {}
func (*NeedsClarification) outcome() {}
func (*Failed) outcome()             {}

// Config 抽取器配置
type Config struct {
	Model    string // 模型名，用于日志与计费
	Timeout  time.Duration
	Location *time.Location
}

// Extractor 结构化抽取器
type Extractor struct {
	bound map[ContentType]model.ToolCallingChatModel
	cfg   Config
	now   func() time.Time
}

// New 创建抽取器，每种内容类型各绑定一次工具
func New(chatModel model.ToolCallingChatModel, cfg Config) (*Extractor, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}

	bound := make(map[ContentType]model.ToolCallingChatModel, 3)
	for _, t := range []ContentType{"", ContentEvent, ContentUrgentMessage} {
		m, err := chatModel.WithTools(toolsFor(t))
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		bound[t] = m
	}

	return &Extractor{bound: bound, cfg: cfg, now: time.Now}, nil
}

// Extract 执行一轮抽取
func (e *Extractor) Extract(ctx context.Context, req Request) Outcome {
	cm, ok := e.bound[req.ContentType]
	if !ok {
		cm = e.bound[""]
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	call := Call{Model: e.cfg.Model}
	start := time.Now()
	resp, err := cm.Generate(ctx, e.buildMessages(req))
	call.Duration = time.Since(start)

	if err != nil {
		reason := "completion failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "completion timed out"
		}
		return &Failed{Kind: KindUpstream, Reason: reason, Err: fmt.Errorf("failed to generate: %w", err), Call: call}
	}
	if resp == nil {
		return &Failed{Kind: KindUpstream, Reason: "empty response", Err: errors.New("completion returned no message"), Call: call}
	}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		usage := *resp.ResponseMeta.Usage
		call.Usage = &usage
	}

	if len(resp.ToolCalls) > 0 {
		call.ResponseType = ResponseFunctionCall
		return e.fromToolCall(resp.ToolCalls[0], call)
	}

	call.ResponseType = ResponseText
	call.Raw = resp.Content
	question := strings.TrimSpace(resp.Content)
	if question == "" {
		return &Failed{Kind: KindUpstream, Reason: "empty response", Err: errors.New("completion returned neither text nor tool call"), Call: call}
	}
	return &NeedsClarification{Question: question, Call: call}
}

func (e *Extractor) fromToolCall(tc schema.ToolCall, call Call) Outcome {
	call.ToolName = tc.Function.Name
	call.Raw = tc.Function.Arguments

	contentType, ok := toolContentType[tc.Function.Name]
	if !ok {
		return &Failed{Kind: KindUpstream, Reason: "unknown tool", Err: fmt.Errorf("model called unknown tool %q", tc.Function.Name), Call: call}
	}

	args, repaired := repairArguments(tc.Function.Arguments)
	call.Repaired = repaired
	if repaired {
		log.Debug().Str("tool", tc.Function.Name).Msg("tool arguments repaired")
	}

	payload := &Payload{Type: contentType}
	var err error
	switch contentType {
	case ContentEvent:
		payload.Event = &EventPayload{}
		err = json.Unmarshal([]byte(args), payload.Event)
	case ContentUrgentMessage:
		payload.UrgentMessage = &UrgentMessagePayload{}
		err = json.Unmarshal([]byte(args), payload.UrgentMessage)
	}
	if err != nil {
		return &Failed{Kind: KindUpstream, Reason: "malformed tool arguments", Err: fmt.Errorf("failed to decode %s arguments: %w", tc.Function.Name, err), Call: call}
	}

	normalize(payload)
	if err := Validate(payload); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return &Failed{Kind: KindValidation, Reason: "payload validation failed", Err: err, Fields: verr.Fields, Payload: payload, Call: call}
		}
		return &Failed{Kind: KindUpstream, Reason: "payload validation failed", Err: err, Payload: payload, Call: call}
	}

	return &Structured{Payload: payload, Call: call}
}

func (e *Extractor) buildMessages(req Request) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.History)+2)
	msgs = append(msgs, schema.SystemMessage(systemPrompt(e.now().In(e.cfg.Location), req.ContentType)))
	for _, t := range req.History {
		switch t.Role {
		case string(schema.Assistant):
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(t.Content))
		}
	}
	msgs = append(msgs, schema.UserMessage(req.Message))
	return msgs
}
