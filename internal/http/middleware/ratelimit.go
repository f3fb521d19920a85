package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitWindow = time.Minute

// CounterStore increments the request counter for a key within a fixed window
// and returns the updated count.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter counts requests in redis so the budget holds across replicas.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter returns a redis-backed counter store.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr increments the key and starts its expiry window on first use.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// MemoryCounter is the in-process fallback used when no redis address is
// configured.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*countWindow
	nextSweep time.Time
}

type countWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter returns an in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*countWindow)}
}

// Incr increments the key, resetting its window once it has elapsed.
// Expired windows for other keys are swept periodically so the map does not
// grow with every distinct client ever seen.
func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.After(c.nextSweep) {
		for k, w := range c.windows {
			if now.After(w.resetAt) {
				delete(c.windows, k)
			}
		}
		c.nextSweep = now.Add(window)
	}

	w, ok := c.windows[key]
	if !ok || now.After(w.resetAt) {
		c.windows[key] = &countWindow{count: 1, resetAt: now.Add(window)}
		return 1, nil
	}

	w.count++
	return w.count, nil
}

// RateLimit caps requests per client IP to perMinute within a fixed
// one-minute window. The health endpoint is exempt. Counter store failures
// fail open.
func RateLimit(counter CounterStore, perMinute int, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s", clientIP(r))
			count, err := counter.Incr(r.Context(), key, rateLimitWindow)
			if err != nil {
				logger.Warn("rate limit counter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(perMinute) {
				w.Header().Set("Retry-After", "60")
				writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
