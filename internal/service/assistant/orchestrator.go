// Package assistant 智能助手会话编排
// 串联输入校验、配额、结构化抽取、翻译、确认与提交
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ashwinyue/committee-assistant/internal/model"
	"github.com/ashwinyue/committee-assistant/internal/service/examples"
	"github.com/ashwinyue/committee-assistant/internal/service/extractor"
	"github.com/ashwinyue/committee-assistant/internal/service/message"
	"github.com/ashwinyue/committee-assistant/internal/service/quota"
	"github.com/ashwinyue/committee-assistant/internal/service/translation"
	"github.com/ashwinyue/committee-assistant/internal/service/usagelog"
)

// MessageValidator 输入校验
type MessageValidator interface {
	Validate(msg string) message.Result
}

// Extractor 结构化抽取
type Extractor interface {
	Extract(ctx context.Context, req extractor.Request) extractor.Outcome
}

// Translator 第二语言翻译
type Translator interface {
	BatchTranslateDetailed(ctx context.Context, entries []translation.Entry) translation.Batch
	Model() string
}

// Recorder 审计日志
type Recorder interface {
	Record(ctx context.Context, entry *model.ChatLogEntry)
}

// 面向用户的提示
const (
	promptChooseType    = "מה תרצו ליצור? אירוע או הודעה דחופה"
	promptDescribe      = "תארו בקצרה את הפרטים"
	promptConfirm       = "זו הטיוטה. לאשר ולפרסם?"
	promptWhatToChange  = "מה לשנות?"
	promptSaved         = "נשמר בהצלחה"
	promptCancelled     = "השיחה בוטלה"
	msgUpstream         = "the assistant is temporarily unavailable, please try again"
	msgIncompleteDraft  = "the draft is incomplete, please add the missing details"
	msgInvalidState     = "conversation state is invalid or expired, start a new conversation"
	msgAlreadyCommitted = "this conversation was already committed"
)

// Config 编排器配置
type Config struct {
	MaxRounds        int // 连续追问上限
	MaxExtractRounds int // 单个会话抽取调用总上限，含校验失败与修改后的重抽
	Location         *time.Location
	CreatedBy        string
}

// Deps 编排器依赖
type Deps struct {
	Validator  MessageValidator
	Quota      quota.Quota
	Examples   *examples.Catalog
	Extractor  Extractor
	Translator Translator // 可为 nil，此时保留模型内联翻译
	Recorder   Recorder
	Content    ContentStore
	Guard      CommitGuard
	Codec      *StateCodec
}

// Orchestrator 会话状态机，本身不保存会话
type Orchestrator struct {
	validator  MessageValidator
	quota      quota.Quota
	examples   *examples.Catalog
	extractor  Extractor
	translator Translator
	recorder   Recorder
	content    ContentStore
	guard      CommitGuard
	codec      *StateCodec
	cfg        Config
}

// New 创建编排器
func New(d Deps, cfg Config) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 3
	}
	if cfg.MaxExtractRounds <= 0 {
		cfg.MaxExtractRounds = 10
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CreatedBy == "" {
		cfg.CreatedBy = "assistant"
	}
	if d.Examples == nil {
		d.Examples = examples.NewCatalog()
	}
	if d.Guard == nil {
		d.Guard = NewMemoryGuard()
	}
	return &Orchestrator{
		validator:  d.Validator,
		quota:      d.Quota,
		examples:   d.Examples,
		extractor:  d.Extractor,
		translator: d.Translator,
		recorder:   d.Recorder,
		content:    d.Content,
		guard:      d.Guard,
		codec:      d.Codec,
		cfg:        cfg,
	}
}

// Start 开始新会话
func (o *Orchestrator) Start(ctx context.Context, isAdmin bool) Response {
	if !isAdmin {
		return unauthorized()
	}
	conv := Conversation{SessionID: uuid.New().String(), Phase: PhaseTypeSelection}
	usage := o.quota.GetUsage(ctx)
	return o.respond(conv, Response{
		Message:  promptChooseType,
		Examples: o.examples.Contextual(string(PhaseTypeSelection), ""),
		Usage:    &usage,
	})
}

// Handle 处理一次用户动作
func (o *Orchestrator) Handle(ctx context.Context, req TurnRequest) Response {
	if !req.IsAdmin {
		return unauthorized()
	}

	conv, err := o.codec.Decode(req.State)
	if err != nil {
		o.record(ctx, usagelog.NewEntry("", model.ActionValidate).
			Message(req.Message).
			Error(err).
			Meta("action", string(req.Action)))
		return Response{Error: &Error{Kind: ErrInvalidState, Message: msgInvalidState}}
	}
	if conv.Phase.Terminal() {
		return o.reject(ctx, conv, req, fmt.Sprintf("conversation is %s, start a new conversation", conv.Phase))
	}

	switch req.Action {
	case ActionSelectType:
		return o.selectType(ctx, conv, req)
	case ActionMessage:
		return o.message(ctx, conv, req)
	case ActionConfirm:
		return o.confirm(ctx, conv, req)
	case ActionEdit:
		return o.edit(ctx, conv, req)
	case ActionCancel:
		return o.cancel(ctx, conv)
	default:
		return o.reject(ctx, conv, req, fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (o *Orchestrator) selectType(ctx context.Context, conv Conversation, req TurnRequest) Response {
	if conv.Phase != PhaseTypeSelection && conv.Phase != PhaseCollectingDetails {
		return o.reject(ctx, conv, req, fmt.Sprintf("cannot select a type in phase %s", conv.Phase))
	}

	ct := extractor.ContentType(req.ContentType)
	if !ct.Valid() {
		e := &Error{Kind: ErrInput, Message: "content type must be event or urgent_message", Fields: []extractor.FieldError{
			{Field: "content_type", Rule: "oneof", Message: "must be one of: event, urgent_message"},
		}}
		o.record(ctx, usagelog.NewEntry(conv.SessionID, model.ActionValidate).
			Round(conv.Round).
			Validation(false, e.Fields).
			Error(e).
			Level(model.LogLevelInfo))
		return o.respond(conv, Response{Error: e, Examples: o.examples.Contextual(string(conv.Phase), "")})
	}

	next := conv.with(func(c *Conversation) {
		c.ContentType = ct
		c.Phase = PhaseCollectingDetails
	})
	if strings.TrimSpace(req.Message) != "" {
		return o.message(ctx, next, req)
	}
	return o.respond(next, Response{
		Message:  promptDescribe,
		Examples: o.examples.All(examples.Category(ct)),
	})
}

func (o *Orchestrator) message(ctx context.Context, conv Conversation, req TurnRequest) Response {
	if conv.Phase != PhaseTypeSelection && conv.Phase != PhaseCollectingDetails {
		return o.reject(ctx, conv, req, fmt.Sprintf("cannot send a message in phase %s", conv.Phase))
	}
	sid := conv.SessionID
	if ct := extractor.ContentType(req.ContentType); conv.ContentType == "" && ct.Valid() {
		conv = conv.with(func(c *Conversation) { c.ContentType = ct })
	}

	// 1. 输入校验
	started := time.Now()
	vr := o.validator.Validate(req.Message)
	if !vr.Valid {
		e := &Error{Kind: ErrInput, Message: vr.Error.Error()}
		o.record(ctx, usagelog.NewEntry(sid, model.ActionValidate).
			Message(req.Message).
			Round(conv.Round).
			Validation(false, map[string]int{"length": vr.Length, "max_length": vr.MaxLength}).
			Error(vr.Error).
			Level(model.LogLevelInfo).
			Duration(time.Since(started)))
		return o.respond(conv, Response{Error: e, Examples: o.examples.Contextual(string(conv.Phase), req.Message)})
	}

	// 2. 抽取次数已到上限时直接终止，不再调用模型
	if conv.Round >= o.cfg.MaxExtractRounds {
		return o.abortRoundLimit(ctx, conv, req.Message, conv.Round,
			fmt.Sprintf("no draft after %d extraction rounds, start a new conversation", conv.Round), "")
	}

	// 3. 配额预检，已用尽时不调用模型
	usage := o.quota.GetUsage(ctx)
	if usage.LimitReached {
		e := &Error{Kind: ErrQuota, Message: fmt.Sprintf("daily limit of %d requests reached, try again tomorrow", usage.DailyLimit)}
		o.record(ctx, usagelog.NewEntry(sid, model.ActionRateLimit).
			Message(req.Message).
			Round(conv.Round).
			Usage(usage.CurrentCount, usage.DailyLimit, usage.Exceeded()).
			Error(e).
			Meta("stage", "admission"))
		return o.respond(conv, Response{Error: e, Usage: &usage})
	}

	// 4. 抽取
	round := conv.Round + 1
	outcome := o.extractor.Extract(ctx, extractor.Request{
		History:     conv.History,
		Message:     req.Message,
		ContentType: conv.ContentType,
		Round:       round,
	})
	call := outcome.Meta()
	entry := usagelog.NewEntry(sid, model.ActionExtract).
		Message(req.Message).
		Round(round).
		Completion(call.Model, call.Usage, call.ResponseType).
		Usage(usage.CurrentCount, usage.DailyLimit, usage.Exceeded()).
		Duration(call.Duration)
	if call.ToolName != "" {
		entry.Meta("tool", call.ToolName)
	}
	if call.Repaired {
		entry.Meta("arguments_repaired", true)
	}

	switch out := outcome.(type) {
	case *extractor.NeedsClarification:
		o.record(ctx, entry.Validation(false, nil).Meta("question", out.Question))
		clarifications := conv.Clarifications + 1
		next := conv.with(func(c *Conversation) {
			c.Round = round
			c.Clarifications = clarifications
			c.Phase = PhaseCollectingDetails
			c.History = append(c.History,
				extractor.Turn{Role: "user", Content: req.Message},
				extractor.Turn{Role: "assistant", Content: out.Question})
		})
		if clarifications >= o.cfg.MaxRounds || round >= o.cfg.MaxExtractRounds {
			return o.abortRoundLimit(ctx, next, req.Message, round,
				fmt.Sprintf("no draft after %d clarification rounds, start a new conversation", clarifications), out.Question)
		}
		return o.respond(next, Response{
			Message:  out.Question,
			Examples: o.examples.Contextual(string(next.Phase), req.Message),
		})

	case *extractor.Structured:
		payload := out.Payload.Clone()
		o.record(ctx, entry.Extracted(string(payload.Type)).Validation(true, nil))
		o.refineTranslations(ctx, sid, round, payload)
		next := conv.with(func(c *Conversation) {
			c.Round = round
			c.Clarifications = 0
			c.ContentType = payload.Type
			c.Phase = PhaseConfirming
			c.Pending = payload
			c.History = append(c.History,
				extractor.Turn{Role: "user", Content: req.Message},
				extractor.Turn{Role: "assistant", Content: draftNote(payload)})
		})
		return o.respond(next, Response{Message: promptConfirm, Payload: next.Pending})

	case *extractor.Failed:
		next := conv.with(func(c *Conversation) {
			c.Round = round
			c.Phase = PhaseCollectingDetails
		})
		if out.Kind == extractor.KindValidation {
			e := &Error{Kind: ErrInput, Message: msgIncompleteDraft, Fields: out.Fields}
			if out.Payload != nil {
				entry.Extracted(string(out.Payload.Type))
			}
			o.record(ctx, entry.Validation(false, out.Fields).Error(out.Err).Level(model.LogLevelInfo))
			next = next.with(func(c *Conversation) {
				c.History = append(c.History,
					extractor.Turn{Role: "user", Content: req.Message},
					extractor.Turn{Role: "assistant", Content: rejectedNote(out.Fields)})
			})
			if round >= o.cfg.MaxExtractRounds {
				return o.abortRoundLimit(ctx, next, req.Message, round,
					fmt.Sprintf("no valid draft after %d extraction rounds, start a new conversation", round), "")
			}
			return o.respond(next, Response{Error: e})
		}
		o.record(ctx, entry.Error(out.Err).Meta("reason", out.Reason))
		return o.respond(next, Response{Error: &Error{Kind: ErrUpstream, Message: msgUpstream}})

	default:
		err := fmt.Errorf("unexpected extraction outcome %T", outcome)
		o.record(ctx, entry.Error(err))
		return o.respond(conv, Response{Error: &Error{Kind: ErrUpstream, Message: msgUpstream}})
	}
}

// abortRoundLimit 记录 abort 并终止会话
func (o *Orchestrator) abortRoundLimit(ctx context.Context, conv Conversation, msg string, round int, reason, question string) Response {
	e := &Error{Kind: ErrRoundLimit, Message: reason}
	o.record(ctx, usagelog.NewEntry(conv.SessionID, model.ActionAbort).
		Message(msg).
		Round(round).
		Error(e).
		Meta("reason", string(ErrRoundLimit)))
	return o.respond(conv.with(func(c *Conversation) { c.Phase = PhaseAborted }), Response{Error: e, Message: question})
}

// refineTranslations 逐条重译长文本的第二语言字段，失败项保留模型的内联翻译
func (o *Orchestrator) refineTranslations(ctx context.Context, sid string, round int, p *extractor.Payload) {
	if o.translator == nil {
		return
	}
	sources := p.LongFormSources()
	if len(sources) == 0 {
		return
	}
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]translation.Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, translation.Entry{Key: k, Text: sources[k]})
	}

	started := time.Now()
	batch := o.translator.BatchTranslateDetailed(ctx, entries)
	for k, text := range batch.Texts {
		p.SetSecondLanguage(k, text)
	}

	entry := usagelog.NewEntry(sid, model.ActionTranslate).
		Round(round).
		Extracted(string(p.Type)).
		Duration(time.Since(started)).
		Meta("items", len(entries)).
		Meta("translated", len(batch.Texts))
	if batch.Calls > 0 {
		usage := batch.Usage
		entry.Completion(o.translator.Model(), &usage, model.ResponseTypeText)
	}
	if len(batch.Failures) > 0 {
		errs := make([]error, 0, len(batch.Failures))
		failed := make([]string, 0, len(batch.Failures))
		for _, f := range batch.Failures {
			errs = append(errs, fmt.Errorf("%s: %w", f.Key, f.Err))
			failed = append(failed, f.Key)
		}
		entry.Error(errors.Join(errs...)).Meta("failed_keys", failed)
	}
	o.record(ctx, entry)
}

func (o *Orchestrator) confirm(ctx context.Context, conv Conversation, req TurnRequest) Response {
	if conv.Phase != PhaseConfirming || conv.Pending == nil {
		return o.reject(ctx, conv, req, fmt.Sprintf("nothing to confirm in phase %s", conv.Phase))
	}
	sid := conv.SessionID
	started := time.Now()
	commitEntry := func() *usagelog.EntryBuilder {
		return usagelog.NewEntry(sid, model.ActionCommit).
			Round(conv.Round).
			Extracted(string(conv.Pending.Type))
	}

	// 1. 重新校验
	if err := extractor.Validate(conv.Pending); err != nil {
		var verr *extractor.ValidationError
		var fields []extractor.FieldError
		if errors.As(err, &verr) {
			fields = verr.Fields
		}
		o.record(ctx, commitEntry().Validation(false, fields).Error(err).Level(model.LogLevelInfo))
		next := conv.with(func(c *Conversation) {
			c.Phase = PhaseCollectingDetails
			c.Pending = nil
		})
		return o.respond(next, Response{Error: &Error{Kind: ErrInput, Message: msgIncompleteDraft, Fields: fields}})
	}

	// 2. 防重放
	acquired, err := o.guard.Acquire(ctx, sid)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sid).Msg("commit guard unavailable, continuing without it")
		acquired = true
	}
	if !acquired {
		e := &Error{Kind: ErrInvalidState, Message: msgAlreadyCommitted}
		o.record(ctx, commitEntry().Validation(true, nil).Error(e))
		return o.respond(conv, Response{Error: e, Payload: conv.Pending})
	}
	committing := conv.with(func(c *Conversation) { c.Phase = PhaseCommitting })

	// 3. 计数，写入失败后的重试不再计数
	var res quota.Result
	if conv.Charged {
		res = quota.Result{Success: true, Stats: o.quota.GetUsage(ctx)}
	} else {
		res = o.quota.Increment(ctx)
	}
	stats := res.Stats
	if !res.Success {
		o.release(ctx, sid)
		e := &Error{Kind: ErrQuota, Message: fmt.Sprintf("daily limit of %d requests reached, the draft is kept, try again tomorrow", stats.DailyLimit)}
		entry := usagelog.NewEntry(sid, model.ActionRateLimit).
			Round(conv.Round).
			Usage(stats.CurrentCount, stats.DailyLimit, stats.Exceeded()).
			Error(e).
			Meta("stage", "commit")
		if res.Err != nil {
			entry.Meta("store_error", res.Err.Error())
		}
		o.record(ctx, entry)
		return o.respond(conv, Response{Error: e, Payload: conv.Pending, Usage: &stats})
	}

	// 4. 写入
	id, err := o.persist(ctx, sid, committing.Pending)
	if err != nil {
		o.release(ctx, sid)
		o.record(ctx, commitEntry().
			Validation(true, nil).
			Usage(stats.CurrentCount, stats.DailyLimit, stats.Exceeded()).
			Error(err).
			Meta("charged", true).
			Duration(time.Since(started)))
		charged := conv.with(func(c *Conversation) { c.Charged = true })
		return o.respond(charged, Response{
			Error:   &Error{Kind: ErrCommit, Message: "saving failed, the draft is kept, please confirm again"},
			Payload: conv.Pending,
			Usage:   &stats,
		})
	}

	entry := commitEntry().
		Validation(true, nil).
		Usage(stats.CurrentCount, stats.DailyLimit, stats.Exceeded()).
		Duration(time.Since(started)).
		Meta("record_id", id)
	if res.Err != nil {
		entry.Meta("store_error", res.Err.Error())
	}
	o.record(ctx, entry)

	done := committing.with(func(c *Conversation) { c.Phase = PhaseDone })
	return o.respond(done, Response{Message: promptSaved, Payload: done.Pending, RecordID: id, Usage: &stats})
}

func (o *Orchestrator) edit(ctx context.Context, conv Conversation, req TurnRequest) Response {
	if conv.Phase != PhaseConfirming {
		return o.reject(ctx, conv, req, fmt.Sprintf("nothing to edit in phase %s", conv.Phase))
	}
	next := conv.with(func(c *Conversation) {
		c.Phase = PhaseCollectingDetails
		c.Pending = nil
	})
	if strings.TrimSpace(req.Message) != "" {
		return o.message(ctx, next, req)
	}
	return o.respond(next, Response{Message: promptWhatToChange})
}

func (o *Orchestrator) cancel(ctx context.Context, conv Conversation) Response {
	o.record(ctx, usagelog.NewEntry(conv.SessionID, model.ActionAbort).
		Round(conv.Round).
		Meta("reason", "cancelled").
		Meta("phase", string(conv.Phase)))
	next := conv.with(func(c *Conversation) {
		c.Phase = PhaseAborted
		c.Pending = nil
	})
	return o.respond(next, Response{Message: promptCancelled})
}

// Translate 管理表单的批量翻译，不经过会话也不计入配额
func (o *Orchestrator) Translate(ctx context.Context, isAdmin bool, entries []translation.Entry) (translation.Batch, *Error) {
	if !isAdmin {
		return translation.Batch{}, unauthorized().Error
	}
	for _, item := range entries {
		if vr := o.validator.Validate(item.Text); !vr.Valid {
			e := &Error{Kind: ErrInput, Message: fmt.Sprintf("%s: %s", item.Key, vr.Error)}
			o.record(ctx, usagelog.NewEntry("", model.ActionTranslate).
				Validation(false, map[string]int{"length": vr.Length, "max_length": vr.MaxLength}).
				Error(e).
				Level(model.LogLevelInfo).
				Meta("source", "form"))
			return translation.Batch{}, e
		}
	}
	if o.translator == nil {
		return translation.Batch{}, &Error{Kind: ErrUpstream, Message: msgUpstream}
	}

	started := time.Now()
	batch := o.translator.BatchTranslateDetailed(ctx, entries)
	entry := usagelog.NewEntry("", model.ActionTranslate).
		Validation(true, nil).
		Duration(time.Since(started)).
		Meta("source", "form").
		Meta("items", len(entries)).
		Meta("translated", len(batch.Texts))
	if batch.Calls > 0 {
		usage := batch.Usage
		entry.Completion(o.translator.Model(), &usage, model.ResponseTypeText)
	}
	if len(batch.Failures) > 0 {
		errs := make([]error, 0, len(batch.Failures))
		for _, f := range batch.Failures {
			errs = append(errs, fmt.Errorf("%s: %w", f.Key, f.Err))
		}
		entry.Error(errors.Join(errs...))
	}
	o.record(ctx, entry)

	if len(batch.Texts) == 0 && len(batch.Failures) > 0 {
		return batch, &Error{Kind: ErrUpstream, Message: msgUpstream}
	}
	return batch, nil
}

// reject 当前阶段不允许该动作
func (o *Orchestrator) reject(ctx context.Context, conv Conversation, req TurnRequest, reason string) Response {
	e := &Error{Kind: ErrInvalidState, Message: reason}
	o.record(ctx, usagelog.NewEntry(conv.SessionID, model.ActionValidate).
		Message(req.Message).
		Round(conv.Round).
		Error(e).
		Meta("phase", string(conv.Phase)).
		Meta("action", string(req.Action)))
	return o.respond(conv, Response{Error: e, Payload: conv.Pending})
}

func (o *Orchestrator) release(ctx context.Context, sid string) {
	if err := o.guard.Release(ctx, sid); err != nil {
		log.Warn().Err(err).Str("session_id", sid).Msg("failed to release commit guard")
	}
}

func (o *Orchestrator) record(ctx context.Context, b *usagelog.EntryBuilder) {
	o.recorder.Record(ctx, b.Build())
}

// respond 签名新状态并填充响应
func (o *Orchestrator) respond(conv Conversation, r Response) Response {
	conv.LastError = r.Error
	state, err := o.codec.Encode(conv)
	if err != nil {
		log.Error().Err(err).Str("session_id", conv.SessionID).Msg("failed to encode conversation state")
	}
	r.SessionID = conv.SessionID
	r.Phase = conv.Phase
	r.State = state
	r.Conversation = conv
	return r
}

func unauthorized() Response {
	return Response{Error: &Error{Kind: ErrUnauthorized, Message: "admin access required"}}
}

// draftNote 写入历史的草稿摘要，供编辑时模型参考
func draftNote(p *extractor.Payload) string {
	raw, err := json.Marshal(p)
	if err != nil {
		return "[draft " + string(p.Type) + "]"
	}
	return "[draft " + string(p.Type) + "] " + string(raw)
}

func rejectedNote(fields []extractor.FieldError) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field+" "+f.Message)
	}
	return "[draft rejected] " + strings.Join(names, "; ")
}
