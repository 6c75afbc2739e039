package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginRateLimiterMemory(t *testing.T) {
	limiter := NewLoginRateLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("attempt %d: expected allow", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("expected reject over the threshold")
	}
	// Otra IP no se ve afectada.
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("expected independent keys")
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLoginRateLimiterRedis(t *testing.T) {
	client := newTestRedis(t)
	limiter := NewRedisLoginRateLimiter(client, time.Minute, 2)

	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("expected first attempt allowed")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("expected second attempt allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("expected reject over the threshold")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("expected independent keys")
	}
	if limiter.Allow("") {
		t.Fatalf("expected empty key rejected")
	}
}

func TestLoginRateLimiterRedisNilClient(t *testing.T) {
	if NewRedisLoginRateLimiter(nil, time.Minute, 2) != nil {
		t.Fatalf("expected nil limiter for nil client")
	}
}
