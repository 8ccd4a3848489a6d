// Package usagelog 智能助手审计日志
package usagelog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

const insertTimeout = 5 * time.Second

// Store 日志存储
type Store interface {
	Create(ctx context.Context, entry *model.ChatLogEntry) error
}

// Recorder 异步写入审计日志
// 写入失败只记录到 zerolog，不影响主流程
type Recorder struct {
	store   Store
	pricing *Pricing

	mu     sync.RWMutex
	closed bool
	queue  chan *model.ChatLogEntry
	done   chan struct{}
}

// NewRecorder 创建日志记录器并启动后台写入
func NewRecorder(store Store, pricing *Pricing, queueSize int) *Recorder {
	if pricing == nil {
		pricing = NewPricing(nil)
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &Recorder{
		store:   store,
		pricing: pricing,
		queue:   make(chan *model.ChatLogEntry, queueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Pricing 价格表
func (r *Recorder) Pricing() *Pricing {
	return r.pricing
}

// Record 记录一条日志，队列满或已关闭时同步写入
func (r *Recorder) Record(ctx context.Context, entry *model.ChatLogEntry) {
	if entry == nil {
		return
	}
	r.price(entry)

	r.mu.RLock()
	if !r.closed {
		select {
		case r.queue <- entry:
			r.mu.RUnlock()
			return
		default:
		}
	}
	r.mu.RUnlock()

	log.Debug().Str("action", entry.Action).Msg("usage log queue unavailable, inserting synchronously")
	r.insert(context.WithoutCancel(ctx), entry)
}

// Close 停止接收并写完队列中的日志
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.insert(context.Background(), entry)
	}
}

func (r *Recorder) insert(ctx context.Context, entry *model.ChatLogEntry) {
	ctx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()
	if err := r.store.Create(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("session_id", entry.SessionID).
			Str("action", entry.Action).
			Str("level", entry.Level).
			Msg("failed to write usage log")
	}
}

// price 有 token 数据且未设置费用时估算费用
func (r *Recorder) price(entry *model.ChatLogEntry) {
	if entry.EstimatedCost != nil || entry.Model == "" || entry.PromptTokens == nil || entry.CompletionTokens == nil {
		return
	}
	if cost, ok := r.pricing.EstimateCost(entry.Model, *entry.PromptTokens, *entry.CompletionTokens); ok {
		entry.EstimatedCost = &cost
	}
}
