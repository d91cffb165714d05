package config

import (
    "net/http"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestRateLimitDefaults(t *testing.T) {
    rl := LoadRateLimitConfig()
    assert.True(t, rl.Enabled)
    assert.Equal(t, 5, rl.Login.Max)
    assert.Equal(t, 15*time.Minute, rl.Login.Window)
    assert.Contains(t, rl.Login.SkipPaths, "/health")
    assert.Equal(t, 30, rl.API.Max)
    assert.Equal(t, time.Minute, rl.API.Window)
    assert.Equal(t, 20, rl.Auth.Max)
    assert.Equal(t, time.Hour, rl.Auth.Window)
}

func TestRateLimitOverrides(t *testing.T) {
    t.Setenv("RATE_LIMIT_ENABLED", "off")
    t.Setenv("RATE_LIMIT_LOGIN_MAX", "3")
    t.Setenv("RATE_LIMIT_LOGIN_WINDOW", "90s")
    t.Setenv("RATE_LIMIT_API_MAX", "-4")
    t.Setenv("RATE_LIMIT_AUTH_WINDOW", "not-a-duration")

    rl := LoadRateLimitConfig()
    assert.False(t, rl.Enabled)
    assert.Equal(t, 3, rl.Login.Max)
    assert.Equal(t, 90*time.Second, rl.Login.Window)
    assert.Equal(t, 1, rl.API.Max)
    assert.Equal(t, time.Hour, rl.Auth.Window)
}

func TestCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    cc := LoadCacheConfig()
    assert.Equal(t, map[string]bool{http.MethodGet: true, http.MethodHead: true}, cc.Methods)
    assert.Equal(t, "path", cc.KeyStrategy)
    assert.Equal(t, 30*time.Second, cc.TTL)
}

func TestIsDev(t *testing.T) {
    assert.True(t, Config{Env: "Development"}.IsDev())
    assert.False(t, Config{Env: "prod"}.IsDev())
}

func TestNewRedisClient(t *testing.T) {
    mr := miniredis.RunT(t)
    t.Setenv("REDIS_ADDR", mr.Addr())
    rdb := NewRedisClient()
    require.NotNil(t, rdb)
    _ = rdb.Close()

    t.Setenv("REDIS_ENABLED", "false")
    assert.Nil(t, NewRedisClient())
}

func TestLoadRedisConfig(t *testing.T) {
    t.Setenv("REDIS_ADDR", "cache:6380")
    t.Setenv("REDIS_DB", "2")
    t.Setenv("REDIS_TLS", "1")
    rc := LoadRedisConfig()
    assert.True(t, rc.Enabled)
    assert.Equal(t, "cache:6380", rc.Addr)
    assert.Equal(t, 2, rc.DB)
    assert.True(t, rc.TLS)
    assert.Equal(t, 2*time.Second, rc.PingTimeout)

    t.Setenv("REDIS_HOST", "redis.internal")
    t.Setenv("REDIS_PORT", "6379")
    assert.Equal(t, "redis.internal:6379", LoadRedisConfig().Addr)
}

func TestRedisOpenUnreachable(t *testing.T) {
    mr := miniredis.RunT(t)
    addr := mr.Addr()
    mr.Close()
    rc := RedisConfig{Enabled: true, Addr: addr, PingTimeout: 200 * time.Millisecond}
    assert.Nil(t, rc.Open())
}
