package cache

import (
	"time"

	"github.com/kontor/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis-backed store when a client is available
// and an in-memory store otherwise
func NewIdempotencyStore(client *redis.Client, logger *zap.Logger) shared.IdempotencyStore {
	if client != nil {
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, "")
	}
	logger.Warn("Redis not configured, using in-memory idempotency store; " +
		"webhook deduplication is not shared between instances")
	return NewInMemoryIdempotencyStore(0)
}

// NewRateLimiter returns a Redis-backed limiter when a client is available
// and an in-memory limiter otherwise
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) RateLimiter {
	if client != nil {
		return NewRedisRateLimiter(client, limit, window)
	}
	return NewInMemoryRateLimiter(limit, window)
}
