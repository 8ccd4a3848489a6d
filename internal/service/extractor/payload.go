package extractor

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ContentType 目标内容类型
type ContentType string

const (
	ContentEvent         ContentType = "event"
	ContentUrgentMessage ContentType = "urgent_message"
)

// Valid 是否为已知类型
func (t ContentType) Valid() bool {
	return t == ContentEvent || t == ContentUrgentMessage
}

// 日期时间格式
const (
	DatetimeLayout = "2006-01-02T15:04"
	DateLayout     = "2006-01-02"
)

// 活动类型与通知级别
var (
	EventTypes   = []string{"general", "meeting", "party", "trip", "holiday", "fundraiser", "workshop"}
	MessageTypes = []string{"info", "warning", "danger", "success"}
)

// EventPayload create_event 的参数
// 每个已填写的希伯来语字段都必须有对应的 _ru 字段
type EventPayload struct {
	Title         string `json:"title" validate:"required"`
	TitleRu       string `json:"title_ru" validate:"required"`
	StartDatetime string `json:"start_datetime" validate:"required,datetime=2006-01-02T15:04"`
	EndDatetime   string `json:"end_datetime,omitempty" validate:"omitempty,datetime=2006-01-02T15:04"`
	Description   string `json:"description,omitempty"`
	DescriptionRu string `json:"description_ru,omitempty" validate:"required_with=Description"`
	Location      string `json:"location,omitempty"`
	LocationRu    string `json:"location_ru,omitempty" validate:"required_with=Location"`
	EventType     string `json:"event_type,omitempty" validate:"omitempty,oneof=general meeting party trip holiday fundraiser workshop"`
}

// UrgentMessagePayload create_urgent_message 的参数
type UrgentMessagePayload struct {
	Title         string `json:"title" validate:"required"`
	TitleRu       string `json:"title_ru" validate:"required"`
	Description   string `json:"description" validate:"required"`
	DescriptionRu string `json:"description_ru" validate:"required"`
	MessageType   string `json:"message_type,omitempty" validate:"omitempty,oneof=info warning danger success"`
	StartDate     string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Payload 终态载荷，两种类型二选一
type Payload struct {
	Type          ContentType           `json:"type"`
	Event         *EventPayload         `json:"event,omitempty"`
	UrgentMessage *UrgentMessagePayload `json:"urgent_message,omitempty"`
}

// Title 希伯来语标题
func (p *Payload) Title() string {
	switch {
	case p.Event != nil:
		return p.Event.Title
	case p.UrgentMessage != nil:
		return p.UrgentMessage.Title
	}
	return ""
}

// LongFormSources 需要二次翻译的长文本，key 为第二语言字段名
func (p *Payload) LongFormSources() map[string]string {
	out := map[string]string{}
	switch {
	case p.Event != nil:
		if p.Event.Description != "" {
			out["description_ru"] = p.Event.Description
		}
	case p.UrgentMessage != nil:
		if p.UrgentMessage.Description != "" {
			out["description_ru"] = p.UrgentMessage.Description
		}
	}
	return out
}

// SetSecondLanguage 覆盖第二语言字段，未知字段返回 false
func (p *Payload) SetSecondLanguage(field, text string) bool {
	if field != "description_ru" || strings.TrimSpace(text) == "" {
		return false
	}
	switch {
	case p.Event != nil:
		p.Event.DescriptionRu = strings.TrimSpace(text)
		return true
	case p.UrgentMessage != nil:
		p.UrgentMessage.DescriptionRu = strings.TrimSpace(text)
		return true
	}
	return false
}

// Clone 深拷贝
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := &Payload{Type: p.Type}
	if p.Event != nil {
		ev := *p.Event
		out.Event = &ev
	}
	if p.UrgentMessage != nil {
		um := *p.UrgentMessage
		out.UrgentMessage = &um
	}
	return out
}

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError 载荷校验失败
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "payload validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate 校验载荷，返回 *ValidationError 或 nil
func Validate(p *Payload) error {
	if p == nil {
		return &ValidationError{Fields: []FieldError{{Field: "type", Rule: "required", Message: "payload is missing"}}}
	}

	var target any
	switch {
	case p.Type == ContentEvent && p.Event != nil:
		target = p.Event
	case p.Type == ContentUrgentMessage && p.UrgentMessage != nil:
		target = p.UrgentMessage
	default:
		return &ValidationError{Fields: []FieldError{{Field: "type", Rule: "oneof", Message: fmt.Sprintf("unsupported payload type %q", p.Type)}}}
	}

	var fields []FieldError
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate payload: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: describe(fe)})
		}
	}
	fields = append(fields, checkRanges(p)...)

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// checkRanges 结束时间不得早于开始时间
func checkRanges(p *Payload) []FieldError {
	switch {
	case p.Event != nil && p.Event.EndDatetime != "":
		start, err1 := time.Parse(DatetimeLayout, p.Event.StartDatetime)
		end, err2 := time.Parse(DatetimeLayout, p.Event.EndDatetime)
		if err1 == nil && err2 == nil && end.Before(start) {
			return []FieldError{{Field: "end_datetime", Rule: "gtefield", Message: "must not be before start_datetime"}}
		}
	case p.UrgentMessage != nil && p.UrgentMessage.StartDate != "" && p.UrgentMessage.EndDate != "":
		start, err1 := time.Parse(DateLayout, p.UrgentMessage.StartDate)
		end, err2 := time.Parse(DateLayout, p.UrgentMessage.EndDate)
		if err1 == nil && err2 == nil && end.Before(start) {
			return []FieldError{{Field: "end_date", Rule: "gtefield", Message: "must not be before start_date"}}
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "translation is required when " + toSnake(fe.Param()) + " is set"
	case "datetime":
		if fe.Param() == DateLayout {
			return "must be a date in YYYY-MM-DD format"
		}
		return "must be a date-time in YYYY-MM-DDTHH:MM format"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed on " + fe.Tag()
	}
}

// toSnake Description -> description
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

var datetimeLayouts = []string{
	DatetimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var dateLayouts = []string{
	DateLayout,
	DatetimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// normalizeDatetime 统一为 YYYY-MM-DDTHH:MM，保留原始墙钟时间，无法解析时原样返回
func normalizeDatetime(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DatetimeLayout)
		}
	}
	return s
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

// normalize 去除空白、统一日期格式、补默认值
func normalize(p *Payload) {
	switch {
	case p.Event != nil:
		e := p.Event
		e.Title = strings.TrimSpace(e.Title)
		e.TitleRu = strings.TrimSpace(e.TitleRu)
		e.Description = strings.TrimSpace(e.Description)
		e.DescriptionRu = strings.TrimSpace(e.DescriptionRu)
		e.Location = strings.TrimSpace(e.Location)
		e.LocationRu = strings.TrimSpace(e.LocationRu)
		e.StartDatetime = normalizeDatetime(e.StartDatetime)
		e.EndDatetime = normalizeDatetime(e.EndDatetime)
		e.EventType = strings.ToLower(strings.TrimSpace(e.EventType))
		if e.EventType == "" {
			e.EventType = "general"
		}
	case p.UrgentMessage != nil:
		m := p.UrgentMessage
		m.Title = strings.TrimSpace(m.Title)
		m.TitleRu = strings.TrimSpace(m.TitleRu)
		m.Description = strings.TrimSpace(m.Description)
		m.DescriptionRu = strings.TrimSpace(m.DescriptionRu)
		m.StartDate = normalizeDate(m.StartDate)
		m.EndDate = normalizeDate(m.EndDate)
		m.MessageType = strings.ToLower(strings.TrimSpace(m.MessageType))
		if m.MessageType == "" {
			m.MessageType = "info"
		}
	}
}
