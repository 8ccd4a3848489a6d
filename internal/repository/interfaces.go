// Package repository 定义数据访问接口
// 服务层依赖这些接口，单元测试用内存实现替换
package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/committee-assistant/internal/model"
)

// UsageStore 每日计数存储
// Increment 必须是单次原子操作，返回自增后的值
type UsageStore interface {
	Count(ctx context.Context, date string) (int, error)
	Increment(ctx context.Context, date string, at time.Time) (int, error)
}

// ChatLogStore 助手日志存储
type ChatLogStore interface {
	Create(ctx context.Context, entry *model.ChatLogEntry) error
	List(ctx context.Context, sessionID string, offset, limit int) ([]*model.ChatLogEntry, error)
}

// ContentStore 最终内容存储
type ContentStore interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	CreateUrgentMessage(ctx context.Context, msg *model.UrgentMessage) error
}

var (
	_ UsageStore   = (*UsageRepository)(nil)
	_ ChatLogStore = (*ChatLogRepository)(nil)
	_ ContentStore = (*ContentRepository)(nil)
)
