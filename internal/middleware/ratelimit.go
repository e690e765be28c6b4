package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/stadium-hospitality/internal/config"
)

// Request classes with their own buckets.
const (
    classScan   = "scan"   // check-in / check-out at the room door
    classLookup = "lookup" // search, status, history, dashboards
)

// takeToken refills continuously at ARGV[3] tokens per millisecond up to
// ARGV[2], then spends one token.  Tokens are stored as a decimal string
// so partial refills survive between calls.
// Returns {allowed, whole tokens left, ms until the next token}.
var takeToken = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(b[1]) or burst
local ts = tonumber(b[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed, wait = 0, 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
else
    wait = math.ceil((1 - tokens) / rate)
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, math.floor(tokens), wait}
`)

// NewTokenBucket limits /v1 traffic per request class.  Badge scans and
// lookups draw from separate buckets, keyed per user or per stadium
// depending on cfg.Scope.  With the limiter disabled or no Redis client it
// is a pass-through; Redis errors at request time let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            class := requestClass(c)
            quota := cfg.Lookup
            if class == classScan {
                quota = cfg.Scan
            }
            key := rateKey(cfg, class, c)

            res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                quota.Burst,
                quota.PerSecond()/1000,
                cfg.TTL.Milliseconds(),
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                log.Warn("rate limiter unavailable, request let through", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            allowed, left, waitMs := res[0] == 1, res[1], res[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(quota.Burst))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
            if allowed {
                return next(c)
            }

            secs := int64(math.Ceil(float64(waitMs) / 1000))
            h.Set("Retry-After", strconv.FormatInt(secs, 10))
            log.Debug("rate limited", zap.String("key", key), zap.String("class", class), zap.Int64("retry_ms", waitMs))
            return c.JSON(http.StatusTooManyRequests, map[string]any{
                "error":       "too_many_requests",
                "message":     "too many " + class + " requests",
                "retry_after": secs,
            })
        }
    }
}

// requestClass puts check-in and check-out in the scan class and
// everything else in lookup.
func requestClass(c echo.Context) string {
    p := c.Path()
    if strings.HasSuffix(p, "/checkin") || strings.HasSuffix(p, "/checkout") {
        return classScan
    }
    return classLookup
}

// rateKey is prefix:class:stadium:<id>[:user:<id>].  Super admins without
// a stadium share the "all" tenant.
func rateKey(cfg config.RateLimitConfig, class string, c echo.Context) string {
    stadium := "all"
    if id, ok := c.Get(ctxStadiumID).(uint64); ok && id > 0 {
        stadium = strconv.FormatUint(id, 10)
    }
    parts := []string{cfg.Prefix, class, "stadium", stadium}
    if cfg.Scope != config.RateScopeStadium {
        parts = append(parts, "user", userKey(c))
    }
    return strings.Join(parts, ":")
}
