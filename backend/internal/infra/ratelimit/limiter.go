/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-10 17:01:17
 * @FilePath: \simple-diary\backend\internal\infra\ratelimit\limiter.go
 * @LastEditTime: 2026-01-28 14:12:50
 */
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix 是 Redis 限流 key 的默认前缀。
const DefaultPrefix = "diary:ratelimit"

// AllowResult 描述限流请求的结果。
type AllowResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// Limiter 定义限流器的通用能力。
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error)
}

// RedisLimiter 使用 Redis 计数器实现固定窗口限流，多实例部署时共享额度。
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter 根据 Redis 客户端构造限流器，可自定义 key 前缀。
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow 以 Redis 计数器实现固定窗口限流，窗口从该 key 的第一次请求开始计算。
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error) {
	if limit <= 0 {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if r == nil || r.client == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}

	namespaced := r.prefix + ":" + key
	pipe := r.client.TxPipeline()
	counter := pipe.Incr(ctx, namespaced)
	ttlCmd := pipe.PTTL(ctx, namespaced)
	if _, err := pipe.Exec(ctx); err != nil {
		return AllowResult{}, err
	}

	ttl := ttlCmd.Val()
	// 新 key 或者丢失了过期时间的 key 需要补上窗口。
	if ttl < 0 {
		if err := r.client.PExpire(ctx, namespaced, window).Err(); err != nil {
			return AllowResult{}, err
		}
		ttl = window
	}

	count := int(counter.Val())
	if count > limit {
		return AllowResult{Allowed: false, RetryAfter: ttl, Remaining: 0}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - count}, nil
}

// MemoryLimiter 是未配置 Redis 时的替代方案，只在单个进程内生效。
type MemoryLimiter struct {
	mu    sync.Mutex
	store map[string]window
	now   func() time.Time
}

type window struct {
	count   int
	expires time.Time
}

// NewMemoryLimiter 构建内存版限流器，常用于本地开发与单元测试。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{store: make(map[string]window), now: time.Now}
}

// Allow 通过内存 map 统计请求次数，模拟 Redis 的固定窗口限流行为。
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (AllowResult, error) {
	if limit <= 0 {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if period <= 0 {
		period = time.Minute
	}
	if m == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	ent, ok := m.store[key]
	if !ok || !now.Before(ent.expires) {
		m.store[key] = window{count: 1, expires: now.Add(period)}
		return AllowResult{Allowed: true, Remaining: limit - 1}, nil
	}

	ent.count++
	m.store[key] = ent

	if ent.count > limit {
		return AllowResult{Allowed: false, RetryAfter: ent.expires.Sub(now), Remaining: 0}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - ent.count}, nil
}

// sweep 顺带清理已过期的窗口，避免 map 随客户端数量无限增长。
func (m *MemoryLimiter) sweep(now time.Time) {
	if len(m.store) < 1024 {
		return
	}
	for key, ent := range m.store {
		if !now.Before(ent.expires) {
			delete(m.store, key)
		}
	}
}
