package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "committee:usage"

// RedisStore 基于 Redis 的计数存储
// 每天一个 hash：count 与 last_request_at，不设过期，与数据库计数行一样保留
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 计数存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: defaultKeyPrefix}
}

func (s *RedisStore) key(date string) string {
	return fmt.Sprintf("%s:%s", s.prefix, date)
}

// Count 读取某日计数
func (s *RedisStore) Count(ctx context.Context, date string) (int, error) {
	n, err := s.client.HGet(ctx, s.key(date), "count").Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return n, nil
}

// Increment 在 MULTI 事务内自增并记录最近请求时间
func (s *RedisStore) Increment(ctx context.Context, date string, at time.Time) (int, error) {
	key := s.key(date)
	pipe := s.client.TxPipeline()
	incr := pipe.HIncrBy(ctx, key, "count", 1)
	pipe.HSet(ctx, key, "last_request_at", at.Format(time.RFC3339))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return int(incr.Val()), nil
}

var _ Store = (*RedisStore)(nil)
