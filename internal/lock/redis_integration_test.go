package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when REDIS_ADDR is set.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisLockerExcludes(t *testing.T) {
	rdb := newTestClient(t)
	l := NewRedisLocker(rdb, "test-lock-"+t.Name(), 2*time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "k")
	assert.ErrorIs(t, err, ErrNotAcquired)

	unlock()
	unlock2, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLockerExpires(t *testing.T) {
	rdb := newTestClient(t)
	l := NewRedisLocker(rdb, "test-lock-"+t.Name(), 200*time.Millisecond)
	ctx := context.Background()

	_, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	wait, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	unlock, err := l.Lock(wait, "k")
	require.NoError(t, err, "abandoned lock is reclaimed after its ttl")
	unlock()
}
