// Package ratelimit throttles requests per client with a sliding window in
// Redis, or with echo's in-memory limiter when Redis is not configured.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const keyPrefix = "storefront:ratelimit:"

// RedisStore implements echo's RateLimiterStore with a sorted set per client
// holding the request timestamps of the current window.
type RedisStore struct {
	rdb         *redis.Client
	maxRequests int
	window      time.Duration
	timeout     time.Duration
	now         func() time.Time
}

func NewRedisStore(rdb *redis.Client, maxRequests int, window time.Duration) *RedisStore {
	return &RedisStore{
		rdb:         rdb,
		maxRequests: maxRequests,
		window:      window,
		timeout:     500 * time.Millisecond,
		now:         time.Now,
	}
}

// Allow fails open: a Redis error lets the request through.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ok, err := s.allow(ctx, identifier)
	if err != nil {
		slog.Error("rate_limit_store_error", "error", err)
		return true, nil
	}
	return ok, nil
}

func (s *RedisStore) allow(ctx context.Context, identifier string) (bool, error) {
	key := keyPrefix + identifier
	now := s.now()
	windowStart := now.Add(-s.window)

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString(),
	})
	pipe.Expire(ctx, key, s.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}

	return countCmd.Val() < int64(s.maxRequests), nil
}

// MemoryStore allows maxRequests per window on average with a burst of
// maxRequests.
func MemoryStore(maxRequests int, window time.Duration) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(maxRequests) / window.Seconds()),
		Burst:     maxRequests,
		ExpiresIn: 3 * window,
	})
}

// Middleware limits per client IP.
func Middleware(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logging.FromContext(c.Request().Context()).Warn("rate_limited", "client", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})
}
