package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/response"
)

// Pinger is anything health can probe: the SQL pool, the memory store, Redis.
type Pinger interface {
    Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Health answers load balancers: 200 "ok" when every dependency responds,
// 503 otherwise.  The check names are reported but never error details.
func Health(log *zap.Logger, checks map[string]Pinger) echo.HandlerFunc {
    if log == nil {
        log = zap.NewNop()
    }
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := map[string]string{}
        healthy := true
        for name, p := range checks {
            if err := p.Ping(ctx); err != nil {
                healthy = false
                status[name] = "down"
                log.Warn("health check failed", zap.String("check", name), zap.Error(err))
                continue
            }
            status[name] = "up"
        }
        if !healthy {
            return c.JSON(http.StatusServiceUnavailable, response.Envelope{
                Success: false, Message: "degraded", Data: status, Error: response.CodeUnavailable,
            })
        }
        return response.OK(c, "ok", status)
    }
}
