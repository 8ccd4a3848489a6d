package assistant

import (
	"github.com/ashwinyue/committee-assistant/internal/service/examples"
	"github.com/ashwinyue/committee-assistant/internal/service/extractor"
	"github.com/ashwinyue/committee-assistant/internal/service/quota"
)

// Phase 会话阶段
type Phase string

const (
	PhaseTypeSelection     Phase = examples.PhaseTypeSelection
	PhaseCollectingDetails Phase = "collecting_details"
	PhaseConfirming        Phase = "confirming"
	PhaseCommitting        Phase = "committing"
	PhaseDone              Phase = "done"
	PhaseAborted           Phase = "aborted"
)

// Terminal 是否为终态
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseAborted
}

// Action 用户动作
type Action string

const (
	ActionSelectType Action = "select_type"
	ActionMessage    Action = "message"
	ActionConfirm    Action = "confirm"
	ActionEdit       Action = "edit"
	ActionCancel     Action = "cancel"
)

// ErrorKind 面向用户的错误类别
type ErrorKind string

const (
	ErrInput        ErrorKind = "input"
	ErrQuota        ErrorKind = "quota"
	ErrUpstream     ErrorKind = "upstream"
	ErrCommit       ErrorKind = "commit"
	ErrRoundLimit   ErrorKind = "round_limit"
	ErrUnauthorized ErrorKind = "unauthorized"
	ErrInvalidState ErrorKind = "invalid_state"
)

// Error 返回给用户的错误
type Error struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Fields  []extractor.FieldError `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Conversation 会话状态，不可变值
// 每次转换都返回新值，随签名令牌在客户端与服务端之间传递
type Conversation struct {
	SessionID      string                `json:"sid"`
	Phase          Phase                 `json:"phase"`
	ContentType    extractor.ContentType `json:"content_type,omitempty"`
	Round          int                   `json:"round"`          // 已进行的抽取次数
	Clarifications int                   `json:"clarifications"` // 连续追问次数
	History        []extractor.Turn      `json:"history,omitempty"`
	Pending        *extractor.Payload    `json:"pending,omitempty"`
	Charged        bool                  `json:"charged,omitempty"` // 本会话已计入配额，提交重试不再计数
	LastError      *Error                `json:"last_error,omitempty"`
}

// with 拷贝后修改
func (c Conversation) with(fn func(*Conversation)) Conversation {
	next := c
	next.History = append([]extractor.Turn(nil), c.History...)
	next.Pending = c.Pending.Clone()
	if c.LastError != nil {
		e := *c.LastError
		next.LastError = &e
	}
	fn(&next)
	return next
}

// TurnRequest 一次用户请求
type TurnRequest struct {
	IsAdmin     bool
	State       string
	Action      Action
	Message     string
	ContentType string
}

// Response 一次请求的响应
type Response struct {
	SessionID string             `json:"session_id,omitempty"`
	Phase     Phase              `json:"phase,omitempty"`
	State     string             `json:"state,omitempty"`
	Message   string             `json:"message,omitempty"`
	Payload   *extractor.Payload `json:"payload,omitempty"`
	Examples  []examples.Example `json:"examples,omitempty"`
	Usage     *quota.Usage       `json:"usage,omitempty"`
	RecordID  string             `json:"record_id,omitempty"`
	Error     *Error             `json:"error,omitempty"`

	Conversation Conversation `json:"-"`
}
