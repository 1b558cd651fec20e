package intake

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLocks(t *testing.T) {
	ctx := context.Background()
	locks := NewMemoryLocks()

	ok, err := locks.TryAcquire(ctx, "c-1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = locks.TryAcquire(ctx, "c-1")
	if err != nil || ok {
		t.Fatalf("second acquire must fail: ok=%v err=%v", ok, err)
	}

	// A different consultation is independent.
	ok, _ = locks.TryAcquire(ctx, "c-2")
	if !ok {
		t.Fatal("other consultation blocked")
	}

	if err := locks.Release(ctx, "c-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = locks.TryAcquire(ctx, "c-1")
	if !ok {
		t.Fatal("acquire after release must succeed")
	}
}

func TestMemoryLocksReleaseIdempotent(t *testing.T) {
	ctx := context.Background()
	locks := NewMemoryLocks()
	if err := locks.Release(ctx, "never-held"); err != nil {
		t.Fatalf("release of unheld lock: %v", err)
	}
}

func newRedisLocksFixture(t *testing.T, ttl time.Duration) (*RedisLocks, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocks(client, ttl), mr
}

func TestRedisLocks(t *testing.T) {
	ctx := context.Background()
	locks, _ := newRedisLocksFixture(t, time.Minute)

	ok, err := locks.TryAcquire(ctx, "c-1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = locks.TryAcquire(ctx, "c-1")
	if err != nil || ok {
		t.Fatalf("second acquire must fail: ok=%v err=%v", ok, err)
	}

	if err := locks.Release(ctx, "c-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = locks.TryAcquire(ctx, "c-1")
	if !ok {
		t.Fatal("acquire after release must succeed")
	}
}

func TestRedisLocksLeaseExpiry(t *testing.T) {
	ctx := context.Background()
	locks, mr := newRedisLocksFixture(t, time.Minute)

	if ok, _ := locks.TryAcquire(ctx, "c-1"); !ok {
		t.Fatal("setup acquire failed")
	}

	// A crashed holder never releases; the lease must lapse on its own.
	mr.FastForward(61 * time.Second)
	ok, err := locks.TryAcquire(ctx, "c-1")
	if err != nil || !ok {
		t.Fatalf("acquire after lease expiry: ok=%v err=%v", ok, err)
	}
}

func TestRedisLocksKeyPrefix(t *testing.T) {
	ctx := context.Background()
	locks, mr := newRedisLocksFixture(t, time.Minute)

	if ok, _ := locks.TryAcquire(ctx, "c-1"); !ok {
		t.Fatal("acquire failed")
	}
	if !mr.Exists(redisLockKeyPrefix + "c-1") {
		t.Fatalf("expected key %q", redisLockKeyPrefix+"c-1")
	}
}
