package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/committee-assistant/internal/model"
	"github.com/ashwinyue/committee-assistant/internal/service/extractor"
	"github.com/ashwinyue/committee-assistant/internal/service/message"
	"github.com/ashwinyue/committee-assistant/internal/service/quota"
	"github.com/ashwinyue/committee-assistant/internal/service/translation"
	"github.com/ashwinyue/committee-assistant/internal/testutil"
)

// usageStore 内存计数，记录自增次数
type usageStore struct {
	mu         sync.Mutex
	counts     map[string]int
	increments int
}

func newUsageStore() *usageStore {
	return &usageStore{counts: map[string]int{}}
}

func (s *usageStore) Count(ctx context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[date], nil
}

func (s *usageStore) Increment(ctx context.Context, date string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments++
	s.counts[date]++
	return s.counts[date], nil
}

func (s *usageStore) seedToday(loc *time.Location, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[time.Now().In(loc).Format("2006-01-02")] = n
}

func (s *usageStore) incrementCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.increments
}

// logSink 同步收集日志
type logSink struct {
	mu      sync.Mutex
	entries []*model.ChatLogEntry
}

func (l *logSink) Record(ctx context.Context, entry *model.ChatLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *logSink) actions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Action)
	}
	return out
}

func (l *logSink) last(action string) *model.ChatLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Action == action {
			return l.entries[i]
		}
	}
	return nil
}

// contentStore 内存内容存储，failures 次写入失败后恢复
type contentStore struct {
	mu       sync.Mutex
	events   []*model.Event
	messages []*model.UrgentMessage
	failures int
}

var errStorage = errors.New("storage unavailable")

func (c *contentStore) CreateEvent(ctx context.Context, ev *model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errStorage
	}
	ev.ID = "ev-1"
	c.events = append(c.events, ev)
	return nil
}

func (c *contentStore) CreateUrgentMessage(ctx context.Context, msg *model.UrgentMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errStorage
	}
	msg.ID = "um-1"
	c.messages = append(c.messages, msg)
	return nil
}

// countingValidator 记录调用次数
type countingValidator struct {
	inner *message.Validator
	calls int
}

func (v *countingValidator) Validate(msg string) message.Result {
	v.calls++
	return v.inner.Validate(msg)
}

type harness struct {
	orch       *Orchestrator
	chat       *testutil.ScriptedChatModel
	translator *testutil.ScriptedChatModel
	usage      *usageStore
	logs       *logSink
	content    *contentStore
	validator  *countingValidator
	loc        *time.Location
}

type harnessOption func(*Deps, *Config)

func newHarness(t *testing.T, dailyLimit int, opts ...harnessOption) *harness {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)

	h := &harness{
		chat:       testutil.NewScriptedChatModel(),
		translator: testutil.NewScriptedChatModel(),
		usage:      newUsageStore(),
		logs:       &logSink{},
		content:    &contentStore{},
		validator:  &countingValidator{inner: message.NewValidator(200)},
		loc:        loc,
	}

	ex, err := extractor.New(h.chat, extractor.Config{Model: "gpt-4o-mini", Timeout: time.Second, Location: loc})
	require.NoError(t, err)

	deps := Deps{
		Validator:  h.validator,
		Quota:      quota.New(h.usage, quota.Config{DailyLimit: dailyLimit, Location: loc}),
		Extractor:  ex,
		Translator: translation.NewService(h.translator, translation.Config{Model: "gpt-4o-mini", Timeout: time.Second}),
		Recorder:   h.logs,
		Content:    h.content,
		Codec:      NewStateCodec([]byte("state-secret"), time.Hour),
	}
	cfg := Config{MaxRounds: 3, Location: loc}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	h.orch = New(deps, cfg)
	return h
}

func (h *harness) start(t *testing.T) Response {
	t.Helper()
	resp := h.orch.Start(context.Background(), true)
	require.Nil(t, resp.Error)
	return resp
}

func (h *harness) turn(state string, action Action, msg, contentType string) Response {
	return h.orch.Handle(context.Background(), TurnRequest{
		IsAdmin:     true,
		State:       state,
		Action:      action,
		Message:     msg,
		ContentType: contentType,
	})
}
