package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/config"
    "github.com/iliyamo/matrimony-api/internal/metrics"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
        cw.buf.Write(b)
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// truncated reports whether the body outgrew the capture limit.
func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

// ResponseCache stores successful GET responses in Redis keyed by request
// path, and lets writers drop the entry for a path they just changed.
type ResponseCache struct {
    cfg     config.CacheConfig
    rdb     *redis.Client
    log     *zap.Logger
    metrics *metrics.Metrics
}

// NewResponseCache returns a cache.  With caching disabled or rdb nil the
// middleware passes requests straight through and Invalidate is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger, m *metrics.Metrics) *ResponseCache {
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &ResponseCache{cfg: cfg, rdb: rdb, log: log, metrics: m}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// key builds a stable cache key honoring prefix/strategy.
func (rc *ResponseCache) key(path, query string) string {
    var tail string
    switch strings.ToLower(rc.cfg.KeyStrategy) {
    case "path_query":
        tail = "path:" + path + ":q:" + query
    default: // "path"
        tail = "path:" + path
    }
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

// Invalidate removes the cached response for path.  With the path_query
// strategy, entries for query variants of path simply expire.
func (rc *ResponseCache) Invalidate(ctx context.Context, path string) {
    if !rc.enabled() {
        return
    }
    if err := rc.rdb.Del(ctx, rc.key(path, "")).Err(); err != nil {
        rc.log.Warn("cache invalidation failed", zap.String("path", path), zap.Error(err))
    }
}

// replayable reports whether a response header describes the resource
// rather than the request that produced it.  Limiter counters, request ids
// and cookies belong to one client and are never stored or replayed.
func replayable(key string) bool {
    k := http.CanonicalHeaderKey(key)
    switch k {
    case echo.HeaderContentLength, echo.HeaderXRequestID, echo.HeaderRetryAfter, echo.HeaderSetCookie, "X-Cache":
        return false
    }
    return !strings.HasPrefix(k, "X-Ratelimit-")
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    hdr := make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, hdr, bs[8+hlen:], true
}

// Middleware serves hits from Redis and stores 200 responses on a miss.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            r := c.Request()
            if !rc.cfg.Methods[strings.ToUpper(r.Method)] {
                return next(c)
            }
            ctx := r.Context()
            key := rc.key(r.URL.Path, r.URL.RawQuery)

            bs, err := rc.rdb.Get(ctx, key).Bytes()
            if err != nil && err != redis.Nil {
                rc.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
            }
            if err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if !replayable(k) {
                            continue
                        }
                        c.Response().Header()[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    rc.metrics.CacheResult("hit")
                    c.Response().WriteHeader(status)
                    _, _ = c.Response().Write(body)
                    return nil
                }
            }
            rc.metrics.CacheResult("miss")

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated() {
                return nil
            }
            hdr := make(http.Header)
            for k, vals := range c.Response().Header() {
                if replayable(k) {
                    hdr[k] = append([]string(nil), vals...)
                }
            }
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := rc.rdb.Set(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
                rc.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}
