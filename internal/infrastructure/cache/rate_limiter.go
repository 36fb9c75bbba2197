package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed windows
type RateLimiter interface {
	// Allow records one request for key and reports whether it is within the
	// limit, plus the requests remaining in the current window
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// RedisRateLimiter implements a fixed-window counter with INCR + EXPIRE
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter creates a limiter sharing counters across instances
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "kontor:ratelimit:",
	}
}

// Allow implements RateLimiter
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	return count <= l.limit, max(l.limit-count, 0), nil
}

// Limit implements RateLimiter
func (l *RedisRateLimiter) Limit() int { return l.limit }

// InMemoryRateLimiter is the single-instance fallback
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	buckets map[string]*window
}

type window struct {
	start time.Time
	count int
}

// NewInMemoryRateLimiter creates an in-process limiter
func NewInMemoryRateLimiter(limit int, w time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		limit:   limit,
		window:  w,
		now:     time.Now,
		buckets: make(map[string]*window),
	}
}

// Allow implements RateLimiter
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		l.evict(now)
		b = &window{start: now}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.limit, max(l.limit-b.count, 0), nil
}

// Limit implements RateLimiter
func (l *InMemoryRateLimiter) Limit() int { return l.limit }

// evict drops windows that ended more than one window ago; caller holds mu
func (l *InMemoryRateLimiter) evict(now time.Time) {
	if len(l.buckets) < 1024 {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.start) >= 2*l.window {
			delete(l.buckets, k)
		}
	}
}

var (
	_ RateLimiter = (*RedisRateLimiter)(nil)
	_ RateLimiter = (*InMemoryRateLimiter)(nil)
)
