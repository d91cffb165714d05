package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/matrimony-api/internal/handler"
    "github.com/iliyamo/matrimony-api/internal/middleware"
)

// RegisterConnections registers the connection-request endpoints.  Only
// member roles take part in connections.
func RegisterConnections(e *echo.Echo, h *handler.ConnectionHandler, g guards) {
    if h == nil {
        return
    }
    r := e.Group("/connections", g.api, g.authn, g.members)
    r.GET("", h.List)
    r.POST("/send", h.Send)
    r.PUT("/:id/accept", h.Accept)
    r.PUT("/:id/reject", h.Reject)
}

// RegisterProfiles registers profile views (any signed-in role, cached) and
// self-service edits (members).
func RegisterProfiles(e *echo.Echo, h *handler.ProfileHandler, cache *middleware.ResponseCache, g guards) {
    if h == nil {
        return
    }
    view := []echo.MiddlewareFunc{g.api, g.authn, g.anyRole}
    if cache != nil {
        view = append(view, cache.Middleware())
    }
    e.GET("/profiles/:id", h.Get, view...)
    e.PUT("/profile", h.Update, g.api, g.authn, g.members)
}
