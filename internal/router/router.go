// Package router wires handlers, guards and rate-limit groups onto Echo.
package router

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/config"
    "github.com/iliyamo/matrimony-api/internal/handler"
    "github.com/iliyamo/matrimony-api/internal/metrics"
    "github.com/iliyamo/matrimony-api/internal/middleware"
    "github.com/iliyamo/matrimony-api/internal/model"
)

// Deps is everything the routes need.  Cache may be nil.
type Deps struct {
    Log        *zap.Logger
    Metrics    *metrics.Metrics
    Tokens     middleware.AccessVerifier
    Limiter    middleware.Limiter
    RateLimit  config.RateLimitConfig
    Cache      *middleware.ResponseCache
    TrustProxy bool

    Health      echo.HandlerFunc
    Auth        *handler.AuthHandler
    Connections *handler.ConnectionHandler
    Profiles    *handler.ProfileHandler
    Admin       *handler.AdminHandler
}

// guards are the per-route middleware built once from Deps.
type guards struct {
    login, api, auth echo.MiddlewareFunc // rate-limit groups
    authn            echo.MiddlewareFunc
    anyRole          echo.MiddlewareFunc
    members          echo.MiddlewareFunc
    admins           echo.MiddlewareFunc
    superAdmin       echo.MiddlewareFunc
}

func newGuards(d Deps) guards {
    limit := func(rule config.RateLimitRule) echo.MiddlewareFunc {
        if !d.RateLimit.Enabled || d.Limiter == nil {
            return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
        }
        return middleware.RateLimit(d.RateLimit.Prefix, rule, d.Limiter, d.Log, d.Metrics)
    }
    allRoles := append(append([]model.Role{}, model.MemberRoles...), model.AdminRoles...)
    return guards{
        login:      limit(d.RateLimit.Login),
        api:        limit(d.RateLimit.API),
        auth:       limit(d.RateLimit.Auth),
        authn:      middleware.JWTAuth(d.Tokens, d.Log, d.Metrics),
        anyRole:    middleware.RequireRole(d.Log, d.Metrics, allRoles...),
        members:    middleware.RequireRole(d.Log, d.Metrics, model.MemberRoles...),
        admins:     middleware.RequireRole(d.Log, d.Metrics, model.AdminRoles...),
        superAdmin: middleware.RequireRole(d.Log, d.Metrics, model.RoleSuperAdmin),
    }
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
    if d.Log == nil {
        d.Log = zap.NewNop()
    }
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.HTTPErrorHandler = handler.HTTPErrorHandler(d.Log)
    if d.TrustProxy {
        e.IPExtractor = echo.ExtractIPFromXFFHeader()
    } else {
        e.IPExtractor = echo.ExtractIPDirect()
    }

    e.Use(middleware.RequestID())
    e.Use(middleware.Metrics(d.Metrics))
    e.Use(middleware.RequestLogger(d.Log))
    e.Use(echomw.Recover())
    e.Use(echomw.BodyLimit("1M"))

    g := newGuards(d)
    RegisterRoutes(e, d)
    RegisterAuth(e, d.Auth, g)
    RegisterConnections(e, d.Connections, g)
    RegisterProfiles(e, d.Profiles, d.Cache, g)
    RegisterAdmin(e, d.Admin, g)
    return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
    if d.Health != nil {
        e.GET("/health", d.Health)
    }
    e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
}
