package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds the shared Redis used for rate-limit counters and the
// profile response cache.
type RedisConfig struct {
    Enabled     bool
    Addr        string
    Password    string
    DB          int
    TLS         bool
    PingTimeout time.Duration
}

// LoadRedisConfig reads REDIS_*.  REDIS_HOST plus REDIS_PORT take
// precedence over REDIS_ADDR.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        Enabled:     envBool("REDIS_ENABLED", true),
        Addr:        addr,
        Password:    envStr("REDIS_PASSWORD", ""),
        DB:          envInt("REDIS_DB", 0),
        TLS:         envBool("REDIS_TLS", false),
        PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
    }
}

// Open connects and pings.  It returns nil when Redis is disabled or
// unreachable; callers then use in-process counters and skip caching.
func (rc RedisConfig) Open() *redis.Client {
    if !rc.Enabled {
        return nil
    }
    opts := &redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB}
    if rc.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), rc.PingTimeout)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}

// NewRedisClient is LoadRedisConfig().Open().
func NewRedisClient() *redis.Client { return LoadRedisConfig().Open() }
