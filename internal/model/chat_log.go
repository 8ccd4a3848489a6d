package model

import (
	"time"

	"gorm.io/datatypes"
)

// 日志级别
const (
	LogLevelInfo  = "info"
	LogLevelError = "error"
)

// 流水线阶段（action）
const (
	ActionValidate  = "validate"
	ActionRateLimit = "rate_limit"
	ActionExtract   = "extract"
	ActionTranslate = "translate"
	ActionCommit    = "commit"
	ActionAbort     = "abort"
)

// 模型响应类型
const (
	ResponseTypeText         = "text"
	ResponseTypeFunctionCall = "function_call"
)

// ChatLogEntry 智能助手流水日志，只追加不修改
type ChatLogEntry struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	SessionID     string `gorm:"size:36;index" json:"session_id"`
	Level         string `gorm:"size:10;index" json:"level"`
	Action        string `gorm:"size:32;index" json:"action"`
	UserMessage   string `gorm:"type:text" json:"user_message,omitempty"`
	MessageLength int    `json:"message_length"`

	// 模型调用（未调用时为空）
	Model            string   `gorm:"size:64" json:"model,omitempty"`
	Round            int      `json:"round"`
	PromptTokens     *int     `json:"prompt_tokens,omitempty"`
	CompletionTokens *int     `json:"completion_tokens,omitempty"`
	TotalTokens      *int     `json:"total_tokens,omitempty"`
	EstimatedCost    *float64 `gorm:"type:decimal(12,6)" json:"estimated_cost,omitempty"`
	ResponseType     string   `gorm:"size:20" json:"response_type,omitempty"`
	ExtractedType    string   `gorm:"size:32" json:"extracted_type,omitempty"`

	// 校验结果
	ValidationSuccess bool           `gorm:"index" json:"validation_success"`
	ValidationErrors  datatypes.JSON `gorm:"type:jsonb" json:"validation_errors,omitempty"`

	// 配额快照
	UsageCount       int  `json:"usage_count"`
	DailyLimit       int  `json:"daily_limit"`
	RateLimitReached bool `json:"rate_limit_reached"`

	ErrorMessage string            `gorm:"type:text" json:"error_message,omitempty"`
	ErrorStack   string            `gorm:"type:text" json:"error_stack,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (ChatLogEntry) TableName() string {
	return "assistant_chat_logs"
}
