package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist tracks token identifiers revoked before their natural expiry.
type Denylist interface {
	// Revoke adds id until expiresAt. It reports false when id was already present.
	Revoke(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, id string) (bool, error)
	// Prune drops entries whose token expired before now.
	Prune(ctx context.Context, now time.Time) (int, error)
}

// MemoryDenylist is a process-local Denylist.
type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryDenylist creates an empty in-memory denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time)}
}

func (d *MemoryDenylist) Revoke(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[id]; exists {
		return false, nil
	}
	d.entries[id] = expiresAt
	return true, nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.entries[id]
	return exists, nil
}

func (d *MemoryDenylist) Prune(_ context.Context, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, expiresAt := range d.entries {
		if !expiresAt.After(now) {
			delete(d.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked entries.
func (d *MemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

const redisDenylistPrefix = "auth:denylist:"

// RedisDenylist stores revoked token ids as expiring Redis keys.
type RedisDenylist struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisDenylist wraps a go-redis client.
func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(d.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return d.client.SetNX(ctx, redisDenylistPrefix+id, expiresAt.Unix(), ttl).Result()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := d.client.Exists(ctx, redisDenylistPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Prune is a no-op: Redis expires keys on its own.
func (d *RedisDenylist) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}
