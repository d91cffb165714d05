package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/matrimony-api/internal/model"
)

// identityKey is where JWTAuth stores the caller's Identity.
const identityKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
    UserID uint64
    Role   model.Role
}

// CurrentIdentity returns the identity set by JWTAuth.  ok is false on
// routes that are not protected.
func CurrentIdentity(c echo.Context) (Identity, bool) {
    id, ok := c.Get(identityKey).(Identity)
    return id, ok && id.UserID != 0
}

// userID returns the caller id for logs, or "guest".
func userID(c echo.Context) string {
    if id, ok := CurrentIdentity(c); ok {
        return strconv.FormatUint(id.UserID, 10)
    }
    return "guest"
}
