package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bluele/gcache"
)

// Cache stores rendered chart images by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Locker guards a key so only one instance renders it at a time
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	LockHeld(ctx context.Context, key string) (bool, error)
}

// LocalCache is an in-process LRU of rendered charts
type LocalCache struct {
	store gcache.Cache
}

// NewLocal builds an LRU holding up to size charts. A zero ttl keeps entries
// until they are evicted.
func NewLocal(size int, ttl time.Duration) *LocalCache {
	if size <= 0 {
		size = 64
	}

	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}

	return &LocalCache{store: builder.Build()}
}

// Get retrieves a cached chart
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := c.store.Get(key)
	if err == gcache.KeyNotFoundError {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, ok := value.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("unexpected cached value type %T", value)
	}
	return data, true, nil
}

// Set caches a chart
func (c *LocalCache) Set(_ context.Context, key string, value []byte) error {
	return c.store.Set(key, value)
}

// Len returns the number of live entries
func (c *LocalCache) Len() int {
	return c.store.Len(true)
}

// Tiered reads the local tier first and falls back to a shared tier,
// back-filling the local tier on a shared hit. Shared tier failures are logged
// and treated as misses.
type Tiered struct {
	local  Cache
	shared Cache
}

// NewTiered combines a local and a shared cache. shared may be nil.
func NewTiered(local, shared Cache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

// Get retrieves a cached chart from the first tier that has it
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := t.local.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}

	if t.shared == nil {
		return nil, false, nil
	}

	data, ok, err := t.shared.Get(ctx, key)
	if err != nil {
		log.Printf("Warning: shared cache read failed for %s: %v", key, err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	if err := t.local.Set(ctx, key, data); err != nil {
		log.Printf("Warning: local cache fill failed for %s: %v", key, err)
	}
	return data, true, nil
}

// Set caches a chart in every tier
func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	if err := t.local.Set(ctx, key, value); err != nil {
		return err
	}

	if t.shared != nil {
		if err := t.shared.Set(ctx, key, value); err != nil {
			log.Printf("Warning: shared cache write failed for %s: %v", key, err)
		}
	}
	return nil
}

// Locker returns the shared tier's locker, if it has one
func (t *Tiered) Locker() (Locker, bool) {
	l, ok := t.shared.(Locker)
	return l, ok
}

// WaitForLock waits for a lock to be released and then retrieves the result
// This implements the "wait for result" pattern to avoid thundering herd
func WaitForLock(ctx context.Context, c Cache, l Locker, key string, maxWait time.Duration) ([]byte, bool, error) {
	lockKey := LockKey(key)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		held, err := l.LockHeld(ctx, lockKey)
		if err != nil {
			return nil, false, err
		}

		if !held {
			return c.Get(ctx, key)
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil, false, fmt.Errorf("timeout waiting for lock")
}
