package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/matrimony-api/internal/handler"
)

// RegisterAdmin registers staff endpoints.  Creating staff accounts needs
// super-admin; changing account status needs any admin role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, g guards) {
    if h == nil {
        return
    }
    r := e.Group("/admin", g.api, g.authn)
    r.POST("/admins", h.AddAdmin, g.superAdmin)
    r.PUT("/users/:id/status", h.SetUserStatus, g.admins)
}
