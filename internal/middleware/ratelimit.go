package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/account-service/internal/config"
    "github.com/iliyamo/account-service/internal/metrics"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// RateLimiter throttles credential endpoints with a redis token bucket.
// When redis is unavailable requests pass through: the limiter protects
// against brute force but must not take login down with it.
type RateLimiter struct {
    cfg     config.RateLimitConfig
    rdb     *redis.Client
    log     logrus.FieldLogger
    metrics *metrics.Metrics
    now     func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger, m *metrics.Metrics) *RateLimiter {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &RateLimiter{cfg: cfg, rdb: rdb, log: log, metrics: m, now: time.Now}
}

type takeResult struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func (l *RateLimiter) take(c echo.Context, key string) (takeResult, error) {
    args := []interface{}{
        l.now().UnixMilli(),
        l.cfg.Capacity,
        l.cfg.RefillTokens,
        l.cfg.RefillInterval.Milliseconds(),
        int64(l.cfg.TTL / time.Second),
    }
    vals, err := tokenBucketScript.Run(c.Request().Context(), l.rdb, []string{key}, args...).Result()
    if err != nil {
        return takeResult{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return takeResult{}, fmt.Errorf("unexpected script result %#v", vals)
    }
    return takeResult{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
    }, nil
}

// Middleware applies the bucket.  A disabled limiter or a nil client makes
// it a no-op.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
    if !l.cfg.Enabled || l.rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(l.cfg, c)
            res, err := l.take(c, key)
            if err != nil {
                l.log.WithError(err).WithField("key", key).Warn("ratelimit: redis unavailable, allowing request")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if l.cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }

            if !res.allowed {
                secs := int(math.Ceil(res.retry.Seconds()))
                if secs < 0 {
                    secs = 0
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                l.metrics.ObserveRateLimited(c.Path())
                l.log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("ratelimit: blocked")
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := currentUserID(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
