package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/sleeping-barber/internal/config"
)

// bucketScript refills continuously at ARGV[3] tokens per millisecond up
// to ARGV[2] and takes one token if a whole one is available.  It returns
// {allowed, remaining, wait_ms}.
var bucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, math.floor(tokens), wait}
`)

type verdict struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

// ArrivalLimiter is a Redis token bucket shared by every server instance.
type ArrivalLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func NewArrivalLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *ArrivalLimiter {
	return &ArrivalLimiter{cfg: cfg, rdb: rdb}
}

func (l *ArrivalLimiter) take(ctx context.Context, key string, now time.Time) (verdict, error) {
	rate := float64(l.cfg.RefillTokens) / (float64(l.cfg.RefillInterval) / float64(time.Millisecond))
	res, err := bucketScript.Run(ctx, l.rdb, []string{key},
		now.UnixMilli(),
		l.cfg.Burst,
		strconv.FormatFloat(rate, 'f', -1, 64),
		int64(l.cfg.TTL/time.Second),
	).Slice()
	if err != nil {
		return verdict{}, err
	}
	return parseVerdict(res)
}

func parseVerdict(res []interface{}) (verdict, error) {
	if len(res) != 3 {
		return verdict{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	var n [3]int64
	for i, v := range res {
		x, ok := v.(int64)
		if !ok {
			return verdict{}, fmt.Errorf("ratelimit: reply[%d] is %T", i, v)
		}
		n[i] = x
	}
	return verdict{allowed: n[0] == 1, remaining: n[1], wait: time.Duration(n[2]) * time.Millisecond}, nil
}

// Middleware rejects callers whose bucket is empty with 429.  A disabled
// limiter or one without Redis lets everything through, and so does a
// Redis failure.
func (l *ArrivalLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil || !l.cfg.Enabled || l.rdb == nil {
			return next
		}
		return func(c echo.Context) error {
			key := rateKey(l.cfg, c)
			v, err := l.take(c.Request().Context(), key, time.Now())
			if err != nil {
				c.Logger().Warnf("ratelimit: %s: %v", key, err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if l.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			secs := int(math.Ceil(v.wait.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "too many arrivals from this caller",
				"retry_after": secs,
			})
		}
	}
}

// rateKey buckets callers by address, by route or by both.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		return cfg.Prefix + ":ip:" + ip
	case "route":
		return cfg.Prefix + ":route:" + route
	default:
		return cfg.Prefix + ":ip:" + ip + ":route:" + route
	}
}
