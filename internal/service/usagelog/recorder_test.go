package usagelog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

type memStore struct {
	mu      sync.Mutex
	entries []*model.ChatLogEntry
	err     error
}

func (m *memStore) Create(ctx context.Context, entry *model.ChatLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// gatedStore 第一次写入阻塞直到 release 关闭
type gatedStore struct {
	memStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedStore) Create(ctx context.Context, entry *model.ChatLogEntry) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
	}
	return g.memStore.Create(ctx, entry)
}

func TestRecorder_DrainsOnClose(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, nil, 16)

	for i := 0; i < 10; i++ {
		r.Record(context.Background(), NewEntry("s1", fmt.Sprintf("a%d", i)).Build())
	}
	r.Close()

	assert.Len(t, store.actions(), 10)
	assert.Equal(t, "a0", store.actions()[0])

	// 关闭后同步写入
	r.Record(context.Background(), NewEntry("s1", "late").Build())
	assert.Len(t, store.actions(), 11)

	r.Close()
}

func TestRecorder_FullQueueFallsBackToSyncInsert(t *testing.T) {
	store := &gatedStore{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRecorder(store, nil, 1)

	r.Record(context.Background(), NewEntry("s1", "first").Build())
	<-store.started

	r.Record(context.Background(), NewEntry("s1", "queued").Build())
	r.Record(context.Background(), NewEntry("s1", "sync").Build())
	assert.Equal(t, []string{"sync"}, store.actions())

	close(store.release)
	r.Close()
	assert.ElementsMatch(t, []string{"first", "queued", "sync"}, store.actions())
}

func TestRecorder_StoreFailureIsSwallowed(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	r := NewRecorder(store, nil, 4)

	assert.NotPanics(t, func() {
		r.Record(context.Background(), NewEntry("s1", model.ActionExtract).Build())
		r.Record(context.Background(), nil)
		r.Close()
	})
	assert.Empty(t, store.actions())
}

func TestRecorder_CanceledContextStillWrites(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, nil, 1)
	r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, NewEntry("s1", model.ActionAbort).Build())
	assert.Equal(t, []string{model.ActionAbort}, store.actions())
}

func TestRecorder_PricesEntries(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, NewPricing(nil), 4)

	withTokens := NewEntry("s1", model.ActionExtract).
		Completion("gpt-4o-mini", &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}, model.ResponseTypeFunctionCall).
		Build()
	withoutCall := NewEntry("s1", model.ActionValidate).Build()

	r.Record(context.Background(), withTokens)
	r.Record(context.Background(), withoutCall)
	r.Close()

	require.NotNil(t, withTokens.EstimatedCost)
	assert.InDelta(t, 0.75, *withTokens.EstimatedCost, 1e-9)
	require.NotNil(t, withTokens.TotalTokens)
	assert.Equal(t, 2_000_000, *withTokens.TotalTokens)

	assert.Nil(t, withoutCall.EstimatedCost)
	assert.Nil(t, withoutCall.PromptTokens)
	assert.Nil(t, withoutCall.TotalTokens)
}

func TestRecorder_ConcurrentRecordAndClose(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, nil, 8)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(context.Background(), NewEntry("s", "x").Build())
		}()
	}
	wg.Wait()
	r.Close()

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Close blocked")
	}
	assert.Len(t, store.actions(), 20)
}
