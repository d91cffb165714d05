package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitRule bounds one route group: at most Max requests per client per
// fixed Window.  Requests whose path is in SkipPaths are never counted.
type RateLimitRule struct {
    Group     string
    Max       int
    Window    time.Duration
    Message   string
    SkipPaths []string
}

type RateLimitConfig struct {
    Enabled bool
    Prefix  string
    Login   RateLimitRule // login attempts
    API     RateLimitRule // general API traffic
    Auth    RateLimitRule // register, refresh and mobile-code endpoints
}

func LoadRateLimitConfig() RateLimitConfig {
    return RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
        Login: loadRule("login", 5, 15*time.Minute,
            "Too many login attempts, please try again after 15 minutes", "/health"),
        API: loadRule("api", 30, time.Minute,
            "Too many requests, please slow down"),
        Auth: loadRule("auth", 20, time.Hour,
            "Too many authentication requests, please try again later"),
    }
}

func loadRule(group string, max int, window time.Duration, msg string, skip ...string) RateLimitRule {
    up := strings.ToUpper(group)
    r := RateLimitRule{
        Group:     group,
        Max:       envInt("RATE_LIMIT_"+up+"_MAX", max),
        Window:    envDur("RATE_LIMIT_"+up+"_WINDOW", window),
        Message:   envStr("RATE_LIMIT_"+up+"_MESSAGE", msg),
        SkipPaths: skip,
    }
    if r.Max < 1 { r.Max = 1 }
    if r.Window <= 0 { r.Window = window }
    return r
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
