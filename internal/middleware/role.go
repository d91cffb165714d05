package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/metrics"
    "github.com/iliyamo/matrimony-api/internal/model"
    "github.com/iliyamo/matrimony-api/internal/response"
)

// RequireRole lets the request through only when the identity stored by
// JWTAuth has one of roles.  A role mismatch is 403 InsufficientPermissions,
// which clients can tell apart from 403 InvalidToken.
func RequireRole(log *zap.Logger, m *metrics.Metrics, roles ...model.Role) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := CurrentIdentity(c)
            if !ok {
                m.AuthzDenied("missing_identity")
                return response.Fail(c, http.StatusUnauthorized, response.CodeUnauthenticated, "authentication required")
            }
            if !allowed[id.Role] {
                m.AuthzDenied("insufficient_permissions")
                log.Info("role not allowed",
                    zap.Uint64("user_id", id.UserID),
                    zap.Stringer("role", id.Role),
                    zap.String("path", c.Path()))
                return response.Fail(c, http.StatusForbidden, response.CodeInsufficientPermissions, "insufficient permissions")
            }
            return next(c)
        }
    }
}
