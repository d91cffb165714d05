package handler

import (
    "context"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/middleware"
    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/service"
)

// AdminHandler serves staff-only endpoints.  Role checks happen in the
// route guards.
type AdminHandler struct {
    Auth  *service.AuthService
    Cache CacheInvalidator // may be nil
    Log   *zap.Logger
}

func NewAdminHandler(a *service.AuthService, cache CacheInvalidator, log *zap.Logger) *AdminHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AdminHandler{Auth: a, Cache: cache, Log: log}
}

type addAdminReq struct {
    Email     string `json:"email"`
    Password  string `json:"password"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Role      string `json:"role"` // admin | super-admin
}

type statusReq struct {
    Status string `json:"status"`
}

// AddAdmin: POST /admin/admins (super-admin)
func (h *AdminHandler) AddAdmin(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    var req addAdminReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Auth.AddAdmin(ctx, id.UserID, service.AddAdminInput{
        Email: req.Email, Password: req.Password,
        FirstName: req.FirstName, LastName: req.LastName, Role: req.Role,
    }, origin(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.Created(c, "admin created", echo.Map{"user_id": u.ID, "user": toUserPart(u)})
}

// SetUserStatus: PUT /admin/users/:id/status (admin, super-admin)
func (h *AdminHandler) SetUserStatus(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    target, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || target == 0 {
        return writeError(c, h.Log, &service.ValidationError{Field: "id", Message: "must be a positive integer"})
    }
    var req statusReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Auth.SetUserStatus(ctx, id.Role, target, req.Status)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if h.Cache != nil {
        h.Cache.Invalidate(ctx, profilePath(target))
    }
    return response.OK(c, "status updated", toUserPart(u))
}
