package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/logger"
)

func testRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(config.RedisConfig{Addr: mr.Addr()}, time.Minute, logger.NewDefault("test"))
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisGetSet(t *testing.T) {
	ctx := context.Background()
	r, _ := testRedis(t)

	if _, ok := r.Get(ctx, "missing"); ok {
		t.Fatal("missing key must miss")
	}

	r.Set(ctx, "k", []byte("v"))
	got, ok := r.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v; want v, true", got, ok)
	}
}

func TestRedisTTLExpiry(t *testing.T) {
	ctx := context.Background()
	r, mr := testRedis(t)

	r.Set(ctx, "k", []byte("v"))
	mr.FastForward(2 * time.Minute)

	if _, ok := r.Get(ctx, "k"); ok {
		t.Fatal("expired entry must miss")
	}
}

func TestRedisUnreachableIsMiss(t *testing.T) {
	ctx := context.Background()
	r, mr := testRedis(t)
	mr.Close()

	// Reads and writes degrade to misses, never errors.
	r.Set(ctx, "k", []byte("v"))
	if _, ok := r.Get(ctx, "k"); ok {
		t.Fatal("unreachable backend must report a miss")
	}
}

func TestRedisHealth(t *testing.T) {
	ctx := context.Background()
	r, mr := testRedis(t)

	if h := r.CheckHealth(ctx); h.Status != "up" {
		t.Fatalf("status = %s, want up", h.Status)
	}
	mr.Close()
	if h := r.CheckHealth(ctx); h.Status != "down" {
		t.Fatalf("status = %s, want down after close", h.Status)
	}
}
