package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/committee-assistant/internal/testutil"
)

const purimMessage = "מסיבת פורים ב-15/03/2025 בשעה 17:00 באולם בית הספר"

const purimArgs = `{
  "title": "מסיבת פורים",
  "title_ru": "Праздник Пурим",
  "start_datetime": "2025-03-15T17:00",
  "location": "אולם בית הספר",
  "location_ru": "Актовый зал школы",
  "event_type": "party"
}`

func newTestExtractor(t *testing.T, replies ...testutil.Reply) (*Extractor, *testutil.ScriptedChatModel) {
	t.Helper()
	cm := testutil.NewScriptedChatModel(replies...)
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	ex, err := New(cm, Config{Model: "gpt-4o-mini", Timeout: time.Second, Location: loc})
	require.NoError(t, err)
	ex.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, loc) }
	return ex, cm
}

func TestExtract_EventRoundTrip(t *testing.T) {
	ex, cm := newTestExtractor(t, testutil.ToolCallReply(ToolCreateEvent, purimArgs))

	out := ex.Extract(context.Background(), Request{Message: purimMessage, ContentType: ContentEvent, Round: 1})

	structured, ok := out.(*Structured)
	require.True(t, ok, "expected *Structured, got %T", out)
	require.NotNil(t, structured.Payload.Event)
	assert.Equal(t, ContentEvent, structured.Payload.Type)
	assert.Equal(t, "מסיבת פורים", structured.Payload.Event.Title)
	assert.Equal(t, "2025-03-15T17:00", structured.Payload.Event.StartDatetime)
	assert.Equal(t, "אולם בית הספר", structured.Payload.Event.Location)

	meta := structured.Meta()
	assert.Equal(t, ResponseFunctionCall, meta.ResponseType)
	assert.Equal(t, ToolCreateEvent, meta.ToolName)
	assert.Equal(t, "gpt-4o-mini", meta.Model)
	require.NotNil(t, meta.Usage)
	assert.Equal(t, 490, meta.Usage.TotalTokens)
	assert.False(t, meta.Repaired)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{ToolCreateEvent}, calls[0].Tools)
	assert.Contains(t, calls[0].Messages[0].Content, "2025-03-10")
	assert.Equal(t, purimMessage, calls[0].Messages[len(calls[0].Messages)-1].Content)
}

func TestExtract_BindsBothToolsWithoutContentType(t *testing.T) {
	ex, cm := newTestExtractor(t, testutil.TextReply("מה תרצה ליצור?"))

	ex.Extract(context.Background(), Request{Message: "שלום"})

	calls := cm.Calls()
	require.Len(t, calls, 1)
	assert.ElementsMatch(t, []string{ToolCreateEvent, ToolCreateUrgentMessage}, calls[0].Tools)
}

func TestExtract_HistoryIsReplayed(t *testing.T) {
	ex, cm := newTestExtractor(t, testutil.ToolCallReply(ToolCreateEvent, purimArgs))

	history := []Turn{
		{Role: "user", Content: "מסיבת פורים"},
		{Role: "assistant", Content: "מתי ואיפה?"},
	}
	ex.Extract(context.Background(), Request{History: history, Message: "15/03 ב-17:00 באולם", ContentType: ContentEvent, Round: 2})

	msgs := cm.Calls()[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "מתי ואיפה?", msgs[2].Content)
	assert.Equal(t, "assistant", string(msgs[2].Role))
}

func TestExtract_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		reply      testutil.Reply
		wantKind   FailureKind
		wantFields []string
		question   string
	}{
		{
			name:     "plain text is a clarification",
			reply:    testutil.TextReply("  באיזו שעה מתחילה המסיבה?  "),
			question: "באיזו שעה מתחילה המסיבה?",
		},
		{
			name:     "empty text is an upstream failure",
			reply:    testutil.TextReply("   "),
			wantKind: KindUpstream,
		},
		{
			name:     "completion error",
			reply:    testutil.ErrorReply(errors.New("429 insufficient_quota")),
			wantKind: KindUpstream,
		},
		{
			name:       "missing second-language title",
			reply:      testutil.ToolCallReply(ToolCreateEvent, `{"title":"מסיבה","start_datetime":"2025-03-15T17:00"}`),
			wantKind:   KindValidation,
			wantFields: []string{"title_ru"},
		},
		{
			name:       "description without translation",
			reply:      testutil.ToolCallReply(ToolCreateEvent, `{"title":"מסיבה","title_ru":"Праздник","start_datetime":"2025-03-15T17:00","description":"תחפושות"}`),
			wantKind:   KindValidation,
			wantFields: []string{"description_ru"},
		},
		{
			name:       "urgent message missing translations",
			reply:      testutil.ToolCallReply(ToolCreateUrgentMessage, `{"title":"ביטול","description":"הטיול בוטל"}`),
			wantKind:   KindValidation,
			wantFields: []string{"title_ru", "description_ru"},
		},
		{
			name:       "bad start format",
			reply:      testutil.ToolCallReply(ToolCreateEvent, `{"title":"מסיבה","title_ru":"Праздник","start_datetime":"15/03/2025"}`),
			wantKind:   KindValidation,
			wantFields: []string{"start_datetime"},
		},
		{
			name:     "unknown tool",
			reply:    testutil.ToolCallReply("create_vendor", `{}`),
			wantKind: KindUpstream,
		},
		{
			name:     "arguments that cannot be decoded",
			reply:    testutil.ToolCallReply(ToolCreateEvent, `["not", "an", "object"]`),
			wantKind: KindUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, _ := newTestExtractor(t, tt.reply)
			out := ex.Extract(context.Background(), Request{Message: purimMessage, Round: 1})

			switch o := out.(type) {
			case *NeedsClarification:
				assert.Empty(t, tt.wantKind, "unexpected clarification")
				assert.Equal(t, tt.question, o.Question)
				assert.Equal(t, ResponseText, o.Call.ResponseType)
			case *Failed:
				require.NotEmpty(t, tt.wantKind, "unexpected failure: %v", o.Err)
				assert.Equal(t, tt.wantKind, o.Kind)
				assert.Error(t, o.Err)
				got := make([]string, 0, len(o.Fields))
				for _, f := range o.Fields {
					got = append(got, f.Field)
				}
				assert.ElementsMatch(t, tt.wantFields, got)
			case *Structured:
				t.Fatalf("unexpected structured payload: %+v", o.Payload)
			}
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	ex, _ := newTestExtractor(t, testutil.Reply{Delay: 500 * time.Millisecond, Message: testutil.TextReply("late").Message})
	ex.cfg.Timeout = 20 * time.Millisecond

	out := ex.Extract(context.Background(), Request{Message: purimMessage})

	failed, ok := out.(*Failed)
	require.True(t, ok, "expected *Failed, got %T", out)
	assert.Equal(t, KindUpstream, failed.Kind)
	assert.Equal(t, "completion timed out", failed.Reason)
	assert.ErrorIs(t, failed.Err, context.DeadlineExceeded)
	assert.Nil(t, failed.Call.Usage)
}

func TestExtract_RepairsArguments(t *testing.T) {
	broken := "```json\n{\"title\": \"אסיפת הורים\", \"title_ru\": \"Родительское собрание\", \"start_datetime\": \"2025-03-18 19:30\", \"event_type\": \"Meeting\",}\n```"
	ex, _ := newTestExtractor(t, testutil.ToolCallReply(ToolCreateEvent, broken))

	out := ex.Extract(context.Background(), Request{Message: "אסיפת הורים", ContentType: ContentEvent})

	structured, ok := out.(*Structured)
	require.True(t, ok, "expected *Structured, got %T", out)
	assert.True(t, structured.Call.Repaired)
	assert.Equal(t, "2025-03-18T19:30", structured.Payload.Event.StartDatetime)
	assert.Equal(t, "meeting", structured.Payload.Event.EventType)
}

func TestExtract_UrgentDefaults(t *testing.T) {
	args := `{"title":" ביטול טיול ","title_ru":"Отмена экскурсии","description":"הטיול מחר בוטל","description_ru":"Завтрашняя экскурсия отменена","end_date":"2025-03-12T00:00"}`
	ex, _ := newTestExtractor(t, testutil.ToolCallReply(ToolCreateUrgentMessage, args))

	out := ex.Extract(context.Background(), Request{Message: "ביטול", ContentType: ContentUrgentMessage})

	structured, ok := out.(*Structured)
	require.True(t, ok, "expected *Structured, got %T", out)
	um := structured.Payload.UrgentMessage
	require.NotNil(t, um)
	assert.Equal(t, "ביטול טיול", um.Title)
	assert.Equal(t, "info", um.MessageType)
	assert.Equal(t, "2025-03-12", um.EndDate)
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}

func TestSystemPrompt_MentionsToday(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	p := systemPrompt(time.Date(2025, 3, 10, 23, 0, 0, 0, loc), ContentUrgentMessage)

	assert.Contains(t, p, "2025-03-10")
	assert.Contains(t, p, "Monday")
	assert.True(t, strings.Contains(p, ToolCreateUrgentMessage))
}
