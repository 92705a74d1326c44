package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Redis tests need a live server: VIBEMATCH_REDIS_ADDR=localhost:6379 go test ./internal/store
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("VIBEMATCH_REDIS_ADDR")
	if addr == "" {
		t.Skip("VIBEMATCH_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, 0, "vibematch-test:"+uuid.NewString()+":")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Clear(ctx)
		_ = s.Close()
	})
	return s
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, newTestRedisStore(t))
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRedisStore(ctx, "127.0.0.1:1", 0, ""); err == nil {
		t.Error("expected error for unreachable redis")
	}
}
