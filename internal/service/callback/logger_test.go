package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(debug bool) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{logger: zerolog.New(buf).Level(zerolog.DebugLevel), EnableDebug: debug}, buf
}

func TestLogger_OnEndRecordsUsage(t *testing.T) {
	l, buf := newBufferedLogger(false)
	info := &callbacks.RunInfo{Name: "extract", Type: "OpenAI", Component: components.ComponentOfChatModel}

	l.OnEnd(context.Background(), info, &model.CallbackOutput{
		Message:    schema.AssistantMessage("", []schema.ToolCall{{ID: "1"}}),
		TokenUsage: &model.TokenUsage{PromptTokens: 400, CompletionTokens: 90, TotalTokens: 490},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "model call finished", line["message"])
	assert.Equal(t, float64(490), line["total_tokens"])
	assert.Equal(t, float64(1), line["tool_calls"])
	assert.Equal(t, "extract", line["name"])
}

func TestLogger_OnStartOnlyInDebug(t *testing.T) {
	l, buf := newBufferedLogger(false)
	l.OnStart(context.Background(), &callbacks.RunInfo{}, &model.CallbackInput{})
	assert.Zero(t, buf.Len())

	l, buf = newBufferedLogger(true)
	l.OnStart(context.Background(), &callbacks.RunInfo{Component: components.ComponentOfChatModel}, &model.CallbackInput{
		Messages: []*schema.Message{schema.UserMessage("hi")},
	})
	assert.Contains(t, buf.String(), `"messages":1`)
}

func TestLogger_OnError(t *testing.T) {
	l, buf := newBufferedLogger(false)
	l.OnError(context.Background(), nil, errors.New("429 too many requests"))

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "429 too many requests")
}
