package usagelog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"gorm.io/datatypes"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

// maxLoggedMessage 日志中保留的用户消息最大字符数
const maxLoggedMessage = 2000

// EntryBuilder 构造一条 ChatLogEntry
type EntryBuilder struct {
	entry *model.ChatLogEntry
}

// NewEntry 创建日志构造器，默认 info 级别
func NewEntry(sessionID, action string) *EntryBuilder {
	return &EntryBuilder{entry: &model.ChatLogEntry{
		SessionID: sessionID,
		Action:    action,
		Level:     model.LogLevelInfo,
	}}
}

// Message 用户消息，超长时截断，长度按完整消息计
func (b *EntryBuilder) Message(msg string) *EntryBuilder {
	b.entry.MessageLength = utf8.RuneCountInString(msg)
	b.entry.UserMessage = truncate(msg, maxLoggedMessage)
	return b
}

// Round 对话轮次
func (b *EntryBuilder) Round(n int) *EntryBuilder {
	b.entry.Round = n
	return b
}

// Completion 模型调用信息，仅在确有调用时设置 token 字段
func (b *EntryBuilder) Completion(modelName string, usage *schema.TokenUsage, responseType string) *EntryBuilder {
	b.entry.Model = modelName
	b.entry.ResponseType = responseType
	if usage != nil {
		prompt, completion, total := usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens
		if total == 0 {
			total = prompt + completion
		}
		b.entry.PromptTokens = &prompt
		b.entry.CompletionTokens = &completion
		b.entry.TotalTokens = &total
	}
	return b
}

// Extracted 抽取出的载荷类型
func (b *EntryBuilder) Extracted(contentType string) *EntryBuilder {
	b.entry.ExtractedType = contentType
	return b
}

// Validation 校验结果，fields 序列化为 JSON
func (b *EntryBuilder) Validation(success bool, fields any) *EntryBuilder {
	b.entry.ValidationSuccess = success
	if fields != nil {
		if raw, err := json.Marshal(fields); err == nil && string(raw) != "null" {
			b.entry.ValidationErrors = datatypes.JSON(raw)
		}
	}
	return b
}

// Usage 配额快照
func (b *EntryBuilder) Usage(count, limit int, reached bool) *EntryBuilder {
	b.entry.UsageCount = count
	b.entry.DailyLimit = limit
	b.entry.RateLimitReached = reached
	return b
}

// Error 记录错误并将级别置为 error
func (b *EntryBuilder) Error(err error) *EntryBuilder {
	if err == nil {
		return b
	}
	b.entry.Level = model.LogLevelError
	b.entry.ErrorMessage = err.Error()
	b.entry.ErrorStack = ErrorChain(err)
	return b
}

// Level 显式设置级别
func (b *EntryBuilder) Level(level string) *EntryBuilder {
	b.entry.Level = level
	return b
}

// Duration 阶段耗时
func (b *EntryBuilder) Duration(d time.Duration) *EntryBuilder {
	b.entry.DurationMs = d.Milliseconds()
	return b
}

// Meta 附加元数据
func (b *EntryBuilder) Meta(key string, value any) *EntryBuilder {
	if b.entry.Metadata == nil {
		b.entry.Metadata = datatypes.JSONMap{}
	}
	b.entry.Metadata[key] = value
	return b
}

// Build 返回日志实体
func (b *EntryBuilder) Build() *model.ChatLogEntry {
	return b.entry
}

// ErrorChain 展开错误链，每层一行
func ErrorChain(err error) string {
	var lines []string
	var walk func(e error, depth int)
	walk = func(e error, depth int) {
		if e == nil || depth > 16 {
			return
		}
		msg := strings.ReplaceAll(e.Error(), "\n", "; ")
		lines = append(lines, fmt.Sprintf("%s%T: %s", strings.Repeat("  ", depth), e, msg))
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner, depth+1)
			}
		default:
			walk(errors.Unwrap(e), depth+1)
		}
	}
	walk(err, 0)
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
