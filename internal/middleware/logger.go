package middleware

import (
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"

    "github.com/iliyamo/matrimony-api/internal/metrics"
)

const maxRequestIDLen = 64

// RequestID keeps a client-supplied X-Request-ID when it is short enough
// and otherwise generates one.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
        RequestIDHandler: func(c echo.Context, id string) {
            if len(id) > maxRequestIDLen {
                id = uuid.NewString()
                c.Request().Header.Set(echo.HeaderXRequestID, id)
                c.Response().Header().Set(echo.HeaderXRequestID, id)
            }
            c.Set(echo.HeaderXRequestID, id)
        },
    })
}

// RequestLogger writes one structured line per request: 5xx at error, 4xx
// at warn, everything else at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogStatus:    true,
        LogMethod:    true,
        LogURIPath:   true,
        LogRoutePath: true,
        LogRemoteIP:  true,
        LogLatency:   true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            level := zapcore.InfoLevel
            switch {
            case v.Status >= 500:
                level = zapcore.ErrorLevel
            case v.Status >= 400:
                level = zapcore.WarnLevel
            }
            fields := []zap.Field{
                zap.Int("status", v.Status),
                zap.String("method", v.Method),
                zap.String("path", v.URIPath),
                zap.String("route", v.RoutePath),
                zap.String("ip", v.RemoteIP),
                zap.Duration("latency", v.Latency),
                zap.String("request_id", v.RequestID),
                zap.String("user", userID(c)),
            }
            if v.Error != nil {
                fields = append(fields, zap.Error(v.Error))
            }
            log.Log(level, "request", fields...)
            return nil
        },
    })
}

// Metrics records request counts and latency by route template.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            m.ObserveRequest(c.Request().Method, route, strconv.Itoa(c.Response().Status), time.Since(start).Seconds())
            return nil
        }
    }
}
