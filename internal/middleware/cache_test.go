package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/matrimony-api/internal/config"
)

func newCachedEcho(t *testing.T, status *int, calls *int) (*echo.Echo, *ResponseCache) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })

    rc := NewResponseCache(config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{http.MethodGet: true},
        TTL:          time.Minute,
        KeyStrategy:  "path",
        Prefix:       "cache:profile",
        MaxBodyBytes: 1024,
    }, rdb, nil, nil)

    e := echo.New()
    e.GET("/profiles/:id", func(c echo.Context) error {
        *calls++
        return c.JSON(*status, map[string]interface{}{"id": c.Param("id"), "n": *calls})
    }, rc.Middleware())
    return e, rc
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
    return rec
}

func TestResponseCacheHitAndInvalidate(t *testing.T) {
    status, calls := http.StatusOK, 0
    e, rc := newCachedEcho(t, &status, &calls)

    first := get(e, "/profiles/7")
    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

    second := get(e, "/profiles/7")
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Contains(t, second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
    assert.Equal(t, 1, calls)

    // path strategy ignores the query
    assert.Equal(t, "HIT", get(e, "/profiles/7?x=1").Header().Get("X-Cache"))

    rc.Invalidate(context.Background(), "/profiles/7")
    third := get(e, "/profiles/7")
    assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)
}

func TestResponseCacheKeepsPerClientHeadersOut(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    rc := NewResponseCache(config.CacheConfig{
        Enabled: true,
        Methods: map[string]bool{http.MethodGet: true},
        TTL:     time.Minute,
        Prefix:  "cache:profile",
    }, rdb, nil, nil)

    rule := config.RateLimitRule{Group: "api", Max: 100, Window: time.Minute}
    e := echo.New()
    e.IPExtractor = echo.ExtractIPDirect()
    e.Use(RequestID())
    e.GET("/profiles/:id", func(c echo.Context) error {
        return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
    }, RateLimit("rl", rule, NewMemoryLimiter(), nil, nil), rc.Middleware())

    miss := hit(e, http.MethodGet, "/profiles/3", "198.51.100.10:4000")
    assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))
    assert.Equal(t, []string{"99"}, miss.Header().Values("X-RateLimit-Remaining"))

    again := hit(e, http.MethodGet, "/profiles/3", "198.51.100.10:4000")
    assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
    assert.Equal(t, []string{"98"}, again.Header().Values("X-RateLimit-Remaining"))

    other := hit(e, http.MethodGet, "/profiles/3", "198.51.100.20:4000")
    assert.Equal(t, "HIT", other.Header().Get("X-Cache"))
    assert.Equal(t, []string{"99"}, other.Header().Values("X-RateLimit-Remaining"))
    assert.Equal(t, []string{"100"}, other.Header().Values("X-RateLimit-Limit"))
    assert.Len(t, other.Header().Values(echo.HeaderXRequestID), 1)
    assert.NotEqual(t, miss.Header().Get(echo.HeaderXRequestID), other.Header().Get(echo.HeaderXRequestID))
    assert.Len(t, other.Header().Values(echo.HeaderContentType), 1)
}

func TestReplayableHeaders(t *testing.T) {
    for _, k := range []string{"Content-Type", "Cache-Control", "ETag"} {
        assert.True(t, replayable(k), k)
    }
    for _, k := range []string{"x-ratelimit-remaining", "X-RateLimit-Reset", "Retry-After", "X-Request-ID", "Set-Cookie", "X-Cache", "Content-Length"} {
        assert.False(t, replayable(k), k)
    }
}

func TestResponseCacheSkipsErrors(t *testing.T) {
    status, calls := http.StatusNotFound, 0
    e, _ := newCachedEcho(t, &status, &calls)

    get(e, "/profiles/9")
    assert.Equal(t, "MISS", get(e, "/profiles/9").Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)
}

func TestResponseCacheDisabledPassesThrough(t *testing.T) {
    rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, nil, nil)
    calls := 0
    e := echo.New()
    e.GET("/p", func(c echo.Context) error { calls++; return c.NoContent(http.StatusOK) }, rc.Middleware())
    get(e, "/p")
    get(e, "/p")
    assert.Equal(t, 2, calls)
    rc.Invalidate(context.Background(), "/p")
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": []string{"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
    assert.NoError(t, err)
    status, got, body, ok := decodePayload(bs)
    assert.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, hdr, got)
    assert.Equal(t, `{"ok":true}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 1})
    assert.False(t, ok)
}
