package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/config"
    "github.com/iliyamo/matrimony-api/internal/metrics"
    "github.com/iliyamo/matrimony-api/internal/response"
)

// Decision is the outcome of counting one request against a window.
type Decision struct {
    Allowed   bool
    Remaining int
    ResetIn   time.Duration
}

// Limiter counts requests in fixed windows.  The window starts at the first
// request for a key and counters reset when it ends.
type Limiter interface {
    Allow(ctx context.Context, key string, max int, window time.Duration) (Decision, error)
}

func decide(count int64, max int, resetIn time.Duration) Decision {
    remaining := max - int(count)
    if remaining < 0 {
        remaining = 0
    }
    return Decision{Allowed: count <= int64(max), Remaining: remaining, ResetIn: resetIn}
}

// ----- in-process -----

type memWindow struct {
    count   int64
    resetAt time.Time
}

// MemoryLimiter keeps counters in process memory.  It is enough for a
// single instance; several instances need RedisLimiter.
type MemoryLimiter struct {
    mu        sync.Mutex
    windows   map[string]*memWindow
    now       func() time.Time
    lastSweep time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
    return &MemoryLimiter{windows: make(map[string]*memWindow), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, max int, window time.Duration) (Decision, error) {
    l.mu.Lock()
    defer l.mu.Unlock()

    now := l.now()
    if now.Sub(l.lastSweep) > time.Minute {
        for k, w := range l.windows {
            if !now.Before(w.resetAt) {
                delete(l.windows, k)
            }
        }
        l.lastSweep = now
    }

    w, ok := l.windows[key]
    if !ok || !now.Before(w.resetAt) {
        w = &memWindow{resetAt: now.Add(window)}
        l.windows[key] = w
    }
    w.count++
    return decide(w.count, max, w.resetAt.Sub(now)), nil
}

// ----- redis -----

// fixedWindowScript increments the counter and starts its expiry on the
// first hit, atomically.  Returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
    local count = redis.call('INCR', KEYS[1])
    if count == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
    end
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl < 0 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
        ttl = tonumber(ARGV[1])
    end
    return { count, ttl }
`)

// RedisLimiter shares counters between instances through Redis.
type RedisLimiter struct{ rdb *redis.Client }

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter { return &RedisLimiter{rdb: rdb} }

func (l *RedisLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (Decision, error) {
    vals, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Result()
    if err != nil {
        return Decision{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 2 {
        return Decision{}, fmt.Errorf("ratelimit: unexpected script result %#v", vals)
    }
    return decide(asInt64(arr[0]), max, time.Duration(asInt64(arr[1]))*time.Millisecond), nil
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

// ----- middleware -----

// RateLimit applies rule to every request of the group it wraps.  Over the
// limit the request ends with 429 before any handler runs.  Limiter errors
// let the request through.
func RateLimit(prefix string, rule config.RateLimitRule, limiter Limiter, log *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    skip := make(map[string]bool, len(rule.SkipPaths))
    for _, p := range rule.SkipPaths {
        skip[p] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if skip[c.Request().URL.Path] || skip[c.Path()] {
                return next(c)
            }
            key := rateKey(prefix, rule.Group, c)
            d, err := limiter.Allow(c.Request().Context(), key, rule.Max, rule.Window)
            if err != nil {
                log.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(rule.Max))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
            h.Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(d.ResetIn)))
            if !d.Allowed {
                h.Set("Retry-After", strconv.Itoa(ceilSeconds(d.ResetIn)))
                m.RateLimited(rule.Group)
                log.Info("rate limit exceeded", zap.String("group", rule.Group), zap.String("ip", c.RealIP()), zap.String("user", userID(c)))
                return response.Fail(c, http.StatusTooManyRequests, response.CodeRateLimited, rule.Message)
            }
            return next(c)
        }
    }
}

func rateKey(prefix, group string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return strings.Join([]string{prefix, group, ip}, ":")
}

func ceilSeconds(d time.Duration) int {
    if d <= 0 {
        return 0
    }
    return int(math.Ceil(d.Seconds()))
}
