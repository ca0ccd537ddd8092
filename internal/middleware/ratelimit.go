package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-tracker/internal/config"
	"github.com/iliyamo/movie-tracker/internal/logging"
)

// tokenBucket refills continuously at rate tokens per millisecond, keeps the
// fractional balance in the hash and returns {allowed, remaining, wait_ms}.
// Lua numbers are truncated to integers on the way out.
var tokenBucket = redis.NewScript(`
	local capacity = tonumber(ARGV[2])
	local rate = tonumber(ARGV[3]) / math.max(1, tonumber(ARGV[4]))
	local now = tonumber(ARGV[1])

	local balance = tonumber(redis.call('HGET', KEYS[1], 'b'))
	local seen = tonumber(redis.call('HGET', KEYS[1], 't'))
	if balance == nil or seen == nil then
		balance, seen = capacity, now
	end
	if now > seen then
		balance = math.min(capacity, balance + (now - seen) * rate)
	end

	local ok, wait = 0, 0
	if balance >= 1 then
		ok = 1
		balance = balance - 1
	else
		wait = math.ceil((1 - balance) / rate)
	end

	redis.call('HSET', KEYS[1], 'b', tostring(balance), 't', math.max(now, seen))
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
	return { ok, math.floor(balance), wait }
`)

// NewTokenBucket limits requests per key with a token bucket kept in Redis.
// When Redis is unavailable or errors, requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	log := logging.Component("ratelimit")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second)).Int64Slice()
			if err != nil || len(vals) != 3 {
				log.Debug().Err(err).Str("key", key).Msg("rate limiter unavailable, letting request through")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if vals[0] == 1 {
				return next(c)
			}

			wait := time.Duration(vals[2]) * time.Millisecond
			retryAfter := int(math.Ceil(wait.Seconds()))
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			log.Debug().Str("key", key).Dur("wait", wait).Msg("request limited")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": retryAfter,
			})
		}
	}
}

// buildRateKey joins the request parts named by the key strategy, for
// example "ip_route" or "user". Unknown or empty strategies use ip, user and
// route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	part := map[string]func() string{
		"ip": func() string {
			if ip := c.RealIP(); ip != "" {
				return ip
			}
			return "unknown"
		},
		"user":  func() string { return currentUserID(c) },
		"route": func() string { return c.Request().Method + " " + c.Path() },
	}
	names := strings.Split(strings.ToLower(cfg.KeyStrategy), "_")
	for _, n := range names {
		if part[n] == nil {
			names = []string{"ip", "user", "route"}
			break
		}
	}

	key := []string{cfg.Prefix}
	for _, n := range names {
		key = append(key, n, part[n]())
	}
	return strings.Join(key, ":")
}

func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
