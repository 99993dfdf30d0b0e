package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylistRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDenylist()
	exp := time.Now().Add(time.Hour)

	added, err := d.Revoke(ctx, "jti-1", exp)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = d.Revoke(ctx, "jti-1", exp)
	require.NoError(t, err)
	assert.False(t, added)

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryDenylistPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDenylist()
	now := time.Now()

	_, _ = d.Revoke(ctx, "old", now.Add(-time.Minute))
	_, _ = d.Revoke(ctx, "edge", now)
	_, _ = d.Revoke(ctx, "fresh", now.Add(time.Minute))

	removed, err := d.Prune(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, d.Len())

	revoked, _ := d.IsRevoked(ctx, "fresh")
	assert.True(t, revoked)
}

func TestMemoryDenylistConcurrentRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := NewMemoryDenylist()
	exp := time.Now().Add(time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if added, _ := d.Revoke(ctx, "shared", exp); added {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisDenylist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, client := newTestRedis(t)
	d := NewRedisDenylist(client)

	added, err := d.Revoke(ctx, "jti-1", time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = d.Revoke(ctx, "jti-1", time.Now().Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, added)

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL(redisDenylistPrefix + "jti-1")
	assert.True(t, ttl > 9*time.Minute && ttl <= 10*time.Minute, "unexpected ttl %s", ttl)

	mr.FastForward(11 * time.Minute)

	revoked, err = d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	removed, err := d.Prune(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisDenylistPastExpiryKeepsMinimumTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, client := newTestRedis(t)
	d := NewRedisDenylist(client)

	added, err := d.Revoke(ctx, "late", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, time.Second, mr.TTL(redisDenylistPrefix+"late"))
}

func TestRedisDenylistUnavailable(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	d := NewRedisDenylist(client)
	mr.Close()

	_, err := d.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}
