package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter 按消息记录投递失败次数，key 在首次计数后 ttl 过期
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet INCR 与 EXPIRE NX 在同一个 MULTI 中执行，过期时间只在首次计数时设置
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment retry counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey retry:<handler>:<id>
func FormatRetryKey(handler string, id int64) string {
	return fmt.Sprintf("retry:%s:%d", handler, id)
}
