package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared, multi-instance counter backend. It
// translates directly from
// original_source/backend/src/middleware/rate_limiter.py's Redis
// pipeline (ZREMRANGEBYSCORE to evict the expired tail, ZCARD to
// count, ZADD to record the current attempt, EXPIRE to bound key
// lifetime) into go-redis, giving an exact sliding window rather than
// a fixed one.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an already-dialed Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration, _ int) (bool, time.Duration, error) {
	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	// Millisecond-resolution scores keep well inside float64's 53-bit
	// exact-integer range (unlike nanoseconds, which would silently
	// lose precision at Unix-epoch magnitudes).
	nowMilli := now.UnixMilli()
	windowStart := now.Add(-window).UnixMilli()

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := countCmd.Val()
	if count >= int64(limit) {
		retryAfter := window
		if scores := oldestCmd.Val(); len(scores) > 0 {
			oldest := time.UnixMilli(int64(scores[0].Score))
			retryAfter = oldest.Add(window).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return false, retryAfter, nil
	}

	member := fmt.Sprintf("%d:%s", nowMilli, uuid.NewString())
	addPipe := s.rdb.TxPipeline()
	addPipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowMilli), Member: member})
	addPipe.Expire(ctx, redisKey, window)
	if _, err := addPipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit record: %w", err)
	}
	return true, 0, nil
}
