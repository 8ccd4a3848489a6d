package translation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/committee-assistant/internal/testutil"
)

func TestTranslate(t *testing.T) {
	cm := testutil.NewScriptedChatModel(testutil.TextReply("  Праздник Пурим \n"))
	svc := NewService(cm, Config{Model: "gpt-4o-mini"})

	res := svc.Translate(context.Background(), "מסיבת פורים")
	require.NoError(t, res.Err)
	assert.Equal(t, "Праздник Пурим", res.Text)
	require.NotNil(t, res.Usage)

	calls := cm.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Contains(t, calls[0].Messages[0].Content, "Hebrew to Russian")
	assert.Contains(t, calls[0].Messages[0].Content, "Transliterate proper nouns")
	assert.Equal(t, "מסיבת פורים", calls[0].Messages[1].Content)
}

func TestTranslate_EmptyInputSkipsCall(t *testing.T) {
	cm := testutil.NewScriptedChatModel()
	svc := NewService(cm, Config{})

	res := svc.Translate(context.Background(), "   ")
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Text)
	assert.Equal(t, 0, cm.CallCount())
}

func TestTranslate_Errors(t *testing.T) {
	upstream := errors.New("503 service unavailable")

	tests := []struct {
		name  string
		reply testutil.Reply
		want  error
	}{
		{name: "upstream error", reply: testutil.ErrorReply(upstream), want: upstream},
		{name: "empty output", reply: testutil.TextReply(" "), want: ErrEmptyTranslation},
		{name: "timeout", reply: testutil.Reply{Delay: time.Second, Message: testutil.TextReply("x").Message}, want: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(testutil.NewScriptedChatModel(tt.reply), Config{Timeout: 20 * time.Millisecond})
			res := svc.Translate(context.Background(), "שלום")
			assert.ErrorIs(t, res.Err, tt.want)
			assert.Empty(t, res.Text)
		})
	}
}

func TestBatchTranslate_PartialFailure(t *testing.T) {
	cm := testutil.NewScriptedChatModel(
		testutil.TextReply("один"),
		testutil.ErrorReply(errors.New("rate limited")),
		testutil.TextReply("три"),
	)
	svc := NewService(cm, Config{})

	got := svc.BatchTranslate(context.Background(), []Entry{
		{Key: "1", Text: "אחת"},
		{Key: "2", Text: "שתיים"},
		{Key: "3", Text: "שלוש"},
	})

	assert.Equal(t, map[string]string{"1": "один", "3": "три"}, got)
	_, ok := got["2"]
	assert.False(t, ok)
}

func TestBatchTranslateDetailed(t *testing.T) {
	cm := testutil.NewScriptedChatModel(
		testutil.TextReply("Описание"),
		testutil.TextReply(""),
	)
	svc := NewService(cm, Config{})

	batch := svc.BatchTranslateDetailed(context.Background(), []Entry{
		{Key: "description_ru", Text: "תיאור"},
		{Key: "location_ru", Text: ""},
		{Key: "notes_ru", Text: "הערות"},
	})

	assert.Equal(t, 2, cm.CallCount(), "empty entries are skipped")
	assert.Equal(t, 2, batch.Calls)
	assert.Equal(t, map[string]string{"description_ru": "Описание"}, batch.Texts)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "notes_ru", batch.Failures[0].Key)
	assert.ErrorIs(t, batch.Failures[0].Err, ErrEmptyTranslation)
	assert.Equal(t, 280, batch.Usage.TotalTokens)
}
