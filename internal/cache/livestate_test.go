package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*LiveState, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New(rdb, time.Minute, nil), mr
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, []byte(`{"gameId":"g1"}`))

	got, ok := c.Get(ctx)
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if string(got) != `{"gameId":"g1"}` {
		t.Errorf("got %q", got)
	}
}

func TestGetMissWhenEmpty(t *testing.T) {
	c, _ := newTestCache(t)
	if _, ok := c.Get(context.Background()); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestGetMissAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := New(rdb, 50*time.Millisecond, nil)
	ctx := context.Background()
	c.Set(ctx, []byte(`{}`))

	mr.FastForward(time.Second)

	if _, ok := c.Get(ctx); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	c := New(nil, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, []byte(`{}`)) // must not panic

	if _, ok := c.Get(ctx); ok {
		t.Error("expected disabled cache to always miss")
	}
}
