package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/matrimony-api/internal/handler"
)

// RegisterAuth registers /auth.  Sign-in endpoints sit behind the login
// limiter, token and registration endpoints behind the auth limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g guards) {
    if a == nil {
        return
    }
    r := e.Group("/auth")
    r.POST("/register", a.Register, g.auth)
    r.POST("/login", a.Login, g.login)
    r.POST("/refresh-token", a.Refresh, g.auth)
    r.POST("/logout", a.Logout, g.api)
    r.POST("/mobile/request-code", a.RequestMobileCode, g.auth)
    r.POST("/mobile/verify-code", a.VerifyMobileCode, g.login)

    r.GET("/me", a.Me, g.api, g.authn, g.anyRole)
    r.PUT("/password", a.ChangePassword, g.auth, g.authn, g.anyRole)
}
