package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/peerlink/backend/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts hits per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
}

// RedisLimiter is a fixed-window counter shared by all API instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter builds a limiter; windows under a second are raised to one.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// NewRedisClient parses a redis:// URL and pings the server
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowBucket(time.Now(), l.window))

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, l.limit, err
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, nil
}

func windowBucket(now time.Time, window time.Duration) int64 {
	return now.UnixNano() / int64(window)
}

// RateLimit throttles authenticated callers. A failing limiter lets the
// request through; the store-level duplicate check still applies.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, err := limiter.Allow(r.Context(), userID)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("user_id", userID), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				response.TooManyRequests(w, "too many connection requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
