package middleware

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/metrics"
    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/utils"
)

// AccessVerifier checks access tokens; *utils.TokenManager satisfies it.
type AccessVerifier interface {
    VerifyAccess(raw string) (*utils.Claims, error)
}

// JWTAuth validates the `Authorization: Bearer <token>` header.
//
//   no bearer token      -> 401 Unauthenticated
//   token fails to verify -> 403 InvalidToken
//   valid                -> Identity stored on the context
func JWTAuth(tokens AccessVerifier, log *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                m.AuthzDenied("missing_token")
                return response.Fail(c, http.StatusUnauthorized, response.CodeUnauthenticated, "authentication required")
            }
            claims, err := tokens.VerifyAccess(raw)
            if err != nil {
                reason := "invalid_token"
                if errors.Is(err, utils.ErrTokenExpired) {
                    reason = "expired_token"
                }
                m.AuthzDenied(reason)
                log.Info("access token rejected",
                    zap.String("reason", reason),
                    zap.String("ip", c.RealIP()),
                    zap.String("path", c.Path()))
                return response.Fail(c, http.StatusForbidden, response.CodeInvalidToken, "invalid token")
            }
            c.Set(identityKey, Identity{UserID: claims.UserID, Role: claims.Role})
            return next(c)
        }
    }
}

func bearer(header string) (string, bool) {
    scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
    if !found || !strings.EqualFold(scheme, "Bearer") {
        return "", false
    }
    token = strings.TrimSpace(token)
    return token, token != ""
}
