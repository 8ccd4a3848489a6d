package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CommitGuard 防止同一会话重复提交
type CommitGuard interface {
	// Acquire 首次获取返回 true，重复获取返回 false
	Acquire(ctx context.Context, sessionID string) (bool, error)
	// Release 提交失败后释放，允许重试
	Release(ctx context.Context, sessionID string) error
}

const guardTTL = 48 * time.Hour

// RedisGuard 基于 SETNX 的提交锁，多实例共享
type RedisGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisGuard 创建 Redis 提交锁
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, prefix: "committee:commit"}
}

func (g *RedisGuard) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", g.prefix, sessionID)
}

// Acquire SETNX 获取
func (g *RedisGuard) Acquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(sessionID), time.Now().Unix(), guardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire commit guard: %w", err)
	}
	return ok, nil
}

// Release 删除锁
func (g *RedisGuard) Release(ctx context.Context, sessionID string) error {
	if err := g.client.Del(ctx, g.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to release commit guard: %w", err)
	}
	return nil
}

// MemoryGuard 进程内提交锁，未启用 Redis 时使用
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryGuard 创建进程内提交锁
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]time.Time)}
}

// Acquire 获取，顺带清理过期项
func (g *MemoryGuard) Acquire(ctx context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for id, at := range g.held {
		if now.Sub(at) > guardTTL {
			delete(g.held, id)
		}
	}
	if _, ok := g.held[sessionID]; ok {
		return false, nil
	}
	g.held[sessionID] = now
	return true, nil
}

// Release 释放
func (g *MemoryGuard) Release(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, sessionID)
	return nil
}

var (
	_ CommitGuard = (*RedisGuard)(nil)
	_ CommitGuard = (*MemoryGuard)(nil)
)
