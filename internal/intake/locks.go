package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// GenerationLocks guards against duplicate report generation for one
// consultation. TryAcquire is an atomic check-and-set; Release must be
// called unconditionally when generation finishes, success or failure.
type GenerationLocks interface {
	TryAcquire(ctx context.Context, consultationID string) (bool, error)
	Release(ctx context.Context, consultationID string) error
}

// MemoryLocks is the single-process implementation: a plain map behind a
// mutex is enough because acquisition is a single critical section.
type MemoryLocks struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

func NewMemoryLocks() *MemoryLocks {
	return &MemoryLocks{locked: make(map[string]struct{})}
}

func (l *MemoryLocks) TryAcquire(_ context.Context, consultationID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.locked[consultationID]; held {
		return false, nil
	}
	l.locked[consultationID] = struct{}{}
	return true, nil
}

func (l *MemoryLocks) Release(_ context.Context, consultationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, consultationID)
	return nil
}

const redisLockKeyPrefix = "report_generation_lock:"

// RedisLocks is the multi-process implementation: a SetNX lease keyed by
// consultation id. The TTL bounds how long a crashed generator can hold
// the lock.
type RedisLocks struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisLocks(redisClient *redis.Client, ttl time.Duration) *RedisLocks {
	if redisClient == nil {
		panic("intake: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocks{redis: redisClient, ttl: ttl}
}

func (l *RedisLocks) TryAcquire(ctx context.Context, consultationID string) (bool, error) {
	ok, err := l.redis.SetNX(ctx, redisLockKeyPrefix+consultationID, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("intake: acquire generation lock for %s: %w", consultationID, err)
	}
	return ok, nil
}

func (l *RedisLocks) Release(ctx context.Context, consultationID string) error {
	if err := l.redis.Del(ctx, redisLockKeyPrefix+consultationID).Err(); err != nil {
		return fmt.Errorf("intake: release generation lock for %s: %w", consultationID, err)
	}
	return nil
}
