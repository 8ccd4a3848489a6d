// Package quota 智能助手每日配额
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy 存储不可用时的处理策略
type Policy int

const (
	// FailOpen 存储故障时放行，视为零用量
	FailOpen Policy = iota
	// FailClosed 存储故障时拒绝
	FailClosed
)

// String 策略名称
func (p Policy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// Unlimited Remaining 取该值表示不限量
const Unlimited = -1

// Usage 当日用量快照
type Usage struct {
	CurrentCount int  `json:"current_count"`
	DailyLimit   int  `json:"daily_limit"`
	Remaining    int  `json:"remaining"`
	LimitReached bool `json:"limit_reached"`
}

// Exceeded 计数是否已超过上限（日志中的 rate_limit_reached）
func (u Usage) Exceeded() bool {
	return u.Remaining != Unlimited && u.CurrentCount > u.DailyLimit
}

// Result Increment 的返回
type Result struct {
	Success bool
	Stats   Usage
	Err     error // 存储错误，FailOpen 时 Success 仍为 true
}

// Quota 配额接口，编排器只依赖该接口
type Quota interface {
	GetUsage(ctx context.Context) Usage
	Increment(ctx context.Context) Result
}

// Store 计数存储
// Increment 必须是单次原子的插入或自增
type Store interface {
	Count(ctx context.Context, date string) (int, error)
	Increment(ctx context.Context, date string, at time.Time) (int, error)
}

// Config 配额配置
type Config struct {
	DailyLimit   int
	Location     *time.Location // 按该时区切日
	OnStoreError Policy
}

// Service 基于 Store 的配额实现
type Service struct {
	store Store
	cfg   Config
	nowFn func() time.Time
}

// New 创建配额服务
func New(store Store, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{store: store, cfg: cfg, nowFn: time.Now}
}

// today 业务时区的当天日期
func (s *Service) today() (string, time.Time) {
	now := s.nowFn().In(s.cfg.Location)
	return now.Format("2006-01-02"), now
}

// GetUsage 只读查询当日用量
func (s *Service) GetUsage(ctx context.Context) Usage {
	date, _ := s.today()
	count, err := s.store.Count(ctx, date)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Str("policy", s.cfg.OnStoreError.String()).Msg("quota store read failed")
		if s.cfg.OnStoreError == FailClosed {
			return Usage{DailyLimit: s.cfg.DailyLimit, LimitReached: true}
		}
		return s.failOpen()
	}
	return s.usage(count)
}

// Increment 原子自增当日计数
// 超出上限后继续计数，Success 为 false
func (s *Service) Increment(ctx context.Context) Result {
	date, now := s.today()
	count, err := s.store.Increment(ctx, date, now)
	if err != nil {
		err = fmt.Errorf("failed to increment usage for %s: %w", date, err)
		log.Warn().Err(err).Str("policy", s.cfg.OnStoreError.String()).Msg("quota store write failed")
		if s.cfg.OnStoreError == FailClosed {
			return Result{Success: false, Stats: Usage{DailyLimit: s.cfg.DailyLimit, LimitReached: true}, Err: err}
		}
		return Result{Success: true, Stats: s.failOpen(), Err: err}
	}
	return Result{Success: count <= s.cfg.DailyLimit, Stats: s.usage(count)}
}

// failOpen 存储故障放行时的快照，无论上限为何都不报告已达上限
func (s *Service) failOpen() Usage {
	u := s.usage(0)
	u.LimitReached = false
	return u
}

func (s *Service) usage(count int) Usage {
	remaining := s.cfg.DailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		CurrentCount: count,
		DailyLimit:   s.cfg.DailyLimit,
		Remaining:    remaining,
		LimitReached: count >= s.cfg.DailyLimit,
	}
}

// Noop 不限量配额，用于关闭限流的部署环境
type Noop struct {
	DailyLimit int
}

// NewNoop 创建不限量配额
func NewNoop(dailyLimit int) *Noop {
	return &Noop{DailyLimit: dailyLimit}
}

// GetUsage 始终未达上限
func (n *Noop) GetUsage(ctx context.Context) Usage {
	return Usage{DailyLimit: n.DailyLimit, Remaining: Unlimited}
}

// Increment 始终成功，不计数
func (n *Noop) Increment(ctx context.Context) Result {
	return Result{Success: true, Stats: n.GetUsage(ctx)}
}

var (
	_ Quota = (*Service)(nil)
	_ Quota = (*Noop)(nil)
)
