package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tournament-checkin/internal/config"
)

// tokenBucket takes one token from the bucket at KEYS[1], first crediting
// whole refill intervals elapsed since the last refill. It replies
// {allowed (0|1), tokens left, ms until the next refill}.
var tokenBucket = redis.NewScript(`
local now, cap, per, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 't', 'at')
local left, at = tonumber(b[1]) or cap, tonumber(b[2]) or now
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
	left = math.min(cap, left + n * per)
	at = at + n * every
end
local ok, wait = 0, 0
if left >= 1 then
	ok, left = 1, left - 1
else
	wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 't', left, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, left, wait}
`)

type bucketReply struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

func takeToken(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketReply, error) {
	vals, err := tokenBucket.Run(ctx, rdb, []string{key},
		time.Now().UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketReply{}, err
	}
	if len(vals) != 3 {
		return bucketReply{}, fmt.Errorf("token bucket replied %d values", len(vals))
	}
	return bucketReply{allowed: vals[0] == 1, remaining: vals[1], wait: time.Duration(vals[2]) * time.Millisecond}, nil
}

// NewTokenBucket limits requests per key using a Redis token bucket. It is
// a no-op when disabled or when Redis is unavailable, and fails open when
// a Redis call errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	limit := strconv.Itoa(cfg.Capacity)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			reply, err := takeToken(c.Request().Context(), rdb, cfg, key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(reply.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if reply.allowed {
				return next(c)
			}
			secs := int(math.Ceil(reply.wait.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			logger.Debug("rate limited", "key", key, "wait", reply.wait)
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

// keyParts maps a key strategy to the request attributes it combines.
var keyParts = map[string][]string{
	"ip":            {"ip"},
	"user":          {"user"},
	"route":         {"route"},
	"ip_user":       {"ip", "user"},
	"user_route":    {"user", "route"},
	"ip_user_route": {"ip", "user", "route"},
}

// buildRateKey scopes buckets to the tournament in the path, then to the
// attributes named by the key strategy. Unknown strategies use all three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	key := []string{cfg.Prefix}
	if t := c.Param("tournament"); t != "" {
		key = append(key, "t", t)
	}
	parts, ok := keyParts[strings.ToLower(cfg.KeyStrategy)]
	if !ok {
		parts = keyParts["ip_user_route"]
	}
	for _, p := range parts {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key = append(key, "ip", ip)
		case "user":
			key = append(key, "user", userID(c))
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}
