// Package callback 模型调用的全局日志回调
package callback

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 实现 callbacks.Handler，记录每次模型调用
type Logger struct {
	logger      zerolog.Logger
	EnableDebug bool // 记录调用开始与流式事件
}

// NewLogger 创建日志回调
func NewLogger(enableDebug bool) *Logger {
	return &Logger{
		logger:      log.With().Str("component", "eino").Logger(),
		EnableDebug: enableDebug,
	}
}

// OnStart 调用开始
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if !l.EnableDebug {
		return ctx
	}
	ev := l.event(l.logger.Debug(), info)
	if info != nil && info.Component == components.ComponentOfChatModel {
		if in := model.ConvCallbackInput(input); in != nil {
			ev = ev.Int("messages", len(in.Messages)).Int("tools", len(in.Tools))
		}
	}
	ev.Msg("model call started")
	return ctx
}

// OnEnd 调用成功，记录 token 用量
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	ev := l.event(l.logger.Debug(), info)
	if info != nil && info.Component == components.ComponentOfChatModel {
		if out := model.ConvCallbackOutput(output); out != nil {
			if out.TokenUsage != nil {
				ev = ev.Int("prompt_tokens", out.TokenUsage.PromptTokens).
					Int("completion_tokens", out.TokenUsage.CompletionTokens).
					Int("total_tokens", out.TokenUsage.TotalTokens)
			}
			if out.Message != nil {
				ev = ev.Int("tool_calls", len(out.Message.ToolCalls))
			}
		}
	}
	ev.Msg("model call finished")
	return ctx
}

// OnError 调用失败
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.event(l.logger.Warn(), info).Err(err).Msg("model call failed")
	return ctx
}

// OnStartWithStreamInput 流式输入
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	if l.EnableDebug {
		l.event(l.logger.Debug(), info).Msg("model stream started")
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	if l.EnableDebug {
		l.event(l.logger.Debug(), info).Msg("model stream finished")
	}
	return ctx
}

func (l *Logger) event(ev *zerolog.Event, info *callbacks.RunInfo) *zerolog.Event {
	if info == nil {
		return ev
	}
	return ev.Str("name", info.Name).Str("type", info.Type).Str("kind", string(info.Component))
}

// SetupGlobalCallbacks 注册全局回调
func SetupGlobalCallbacks(enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(enableDebug))
	log.Info().Bool("debug", enableDebug).Msg("eino global callbacks registered")
}

var _ callbacks.Handler = (*Logger)(nil)
