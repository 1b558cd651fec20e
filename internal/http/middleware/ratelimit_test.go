package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(rate float64, burst int) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(rate, burst)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl.clock = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterBurstThenBlocks(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("expected request over burst to be blocked")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl, now := newTestLimiter(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second immediate request should be blocked")
	}

	*now = now.Add(2 * time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("expected token refill after 2s")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first client should pass")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("second client has its own bucket")
	}
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl, now := newTestLimiter(1, 1)

	rl.Allow("10.0.0.1")
	*now = now.Add(bucketIdleEviction + time.Minute)
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	_, stale := rl.buckets["10.0.0.1"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("expected idle bucket to be evicted")
	}
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	handler := RateLimit(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/intake/events/message", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.9")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
