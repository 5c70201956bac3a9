package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis configuration
type Config struct {
	Enabled    bool
	Host       string
	Port       int
	Password   string
	DB         int
	TLSEnabled bool
	TTL        time.Duration
	MutexTTL   time.Duration
}

// NewClient connects to Redis and verifies the connection
func NewClient(config *Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	// Enable TLS if configured (required for Upstash)
	if config.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// ChartKey generates a cache key for a rendered chart. The dataset ID and the
// panel size are hashed so a new data file or size never reads stale images.
func ChartKey(datasetID, chart string, width, height int) string {
	data := fmt.Sprintf("%s|%dx%d", datasetID, width, height)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("chart:%x:%s", hash[:8], chart)
}

// LockKey generates a mutex lock key
func LockKey(chartKey string) string {
	return fmt.Sprintf("lock:%s", chartKey)
}

// releaseScript deletes a lock only while it still holds the caller's token
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisCache stores rendered charts in Redis
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string // lock key -> token of the lock this instance holds
}

// NewRedis wraps a connected client. A zero ttl keeps entries forever.
func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, tokens: make(map[string]string)}
}

// Get retrieves a cached chart
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil // cache miss
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set caches a chart
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// AcquireLock attempts to acquire a distributed lock
// Returns true if lock was acquired, false if already locked
func (c *RedisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.New().String()

	// Try to set the lock key with NX (only if not exists)
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	c.mu.Lock()
	c.tokens[key] = token
	c.mu.Unlock()
	return true, nil
}

// ReleaseLock releases a lock acquired by this instance. A lock that expired
// and was taken by someone else is left alone.
func (c *RedisCache) ReleaseLock(ctx context.Context, key string) error {
	c.mu.Lock()
	token, ok := c.tokens[key]
	delete(c.tokens, key)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return c.client.Eval(ctx, releaseScript, []string{key}, token).Err()
}

// LockHeld reports whether a lock key is still set
func (c *RedisCache) LockHeld(ctx context.Context, key string) (bool, error) {
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// HealthCheck performs a health check on the Redis connection
func HealthCheck(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}

	return nil
}

// Stats returns Redis pool stats
func Stats(client *redis.Client) map[string]interface{} {
	poolStats := client.PoolStats()

	return map[string]interface{}{
		"hits":        poolStats.Hits,
		"misses":      poolStats.Misses,
		"timeouts":    poolStats.Timeouts,
		"total_conns": poolStats.TotalConns,
		"idle_conns":  poolStats.IdleConns,
		"stale_conns": poolStats.StaleConns,
	}
}
