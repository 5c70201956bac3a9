package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var clock = time.Now

// Counter increments a fixed-window request counter
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keeps request counters in Redis
type RedisCounter struct {
	rdb redis.Cmdable
}

// NewRedisCounter wraps a connected Redis client
func NewRedisCounter(rdb redis.Cmdable) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

// Incr bumps key and makes it expire shortly after its window closes
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, window+time.Second).Err(); err != nil {
			log.Printf("Warning: failed to set expiry on %s: %v", key, err)
		}
	}
	return count, nil
}

// RateLimitKey is the counter key for a client in the minute containing now
func RateLimitKey(clientIP string, now time.Time) string {
	return fmt.Sprintf("rl:client:%s:minute:%d", clientIP, now.Unix()/60)
}

// RateLimitMiddleware limits each client IP to perMinute requests per
// calendar minute. A nil counter or a non-positive limit disables it; counter
// errors let the request through.
func RateLimitMiddleware(counter Counter, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if counter == nil || perMinute <= 0 {
			return c.Next()
		}

		now := clock()
		count, err := counter.Incr(c.UserContext(), RateLimitKey(c.IP(), now), time.Minute)
		if err != nil {
			log.Printf("Warning: rate limit check failed: %v", err)
			return c.Next()
		}

		nextMinute := now.Truncate(time.Minute).Add(time.Minute)
		c.Set("X-RateLimit-Limit-Minute", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Reset-Minute", strconv.FormatInt(nextMinute.Unix(), 10))

		if count > int64(perMinute) {
			retryAfter := int64(nextMinute.Sub(now).Seconds()) + 1

			c.Set("X-RateLimit-Remaining-Minute", "0")
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per minute",
				"limit_type":  "per_minute",
				"limit":       perMinute,
				"retry_after": retryAfter,
			})
		}

		c.Set("X-RateLimit-Remaining-Minute", strconv.FormatInt(int64(perMinute)-count, 10))
		return c.Next()
	}
}
