package handler

import (
    "context"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/middleware"
    "github.com/iliyamo/matrimony-api/internal/model"
    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/service"
)

// requestTimeout bounds the store work of one request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Auth *service.AuthService
    Log  *zap.Logger
}

func NewAuthHandler(a *service.AuthService, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Auth: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Email     string `json:"email"`
    Password  string `json:"password"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Mobile    string `json:"mobile"`
    Role      string `json:"role"` // user | parent | broker
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// refreshReq accepts both spellings of the token field.
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
    Camel        string `json:"refreshToken"`
}

func (r refreshReq) token() string {
    if t := strings.TrimSpace(r.RefreshToken); t != "" {
        return t
    }
    return strings.TrimSpace(r.Camel)
}

type mobileCodeReq struct {
    Mobile string `json:"mobile"`
}
type mobileVerifyReq struct {
    Mobile string `json:"mobile"`
    Code   string `json:"code"`
}
type passwordReq struct {
    CurrentPassword string `json:"current_password"`
    NewPassword     string `json:"new_password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID        uint64           `json:"id"`
    Email     string           `json:"email"`
    Role      model.Role       `json:"role"`
    Status    model.UserStatus `json:"status"`
    FirstName string           `json:"first_name"`
    LastName  string           `json:"last_name"`
    Mobile    string           `json:"mobile,omitempty"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

func toUserPart(u *model.User) userPart {
    return userPart{
        ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status,
        FirstName: u.FirstName, LastName: u.LastName, Mobile: u.Mobile,
    }
}

func toAuthResp(r *service.AuthResult) authResp {
    return authResp{
        User:    toUserPart(r.User),
        Access:  tokenPart{Token: r.Tokens.AccessToken, Expires: r.Tokens.AccessExpiresAt},
        Refresh: tokenPart{Token: r.Tokens.RefreshToken, Expires: r.Tokens.RefreshExpiresAt},
    }
}

func origin(c echo.Context) model.Origin {
    return model.Origin{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

// Register: POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Auth.Register(ctx, service.RegisterInput{
        Email: req.Email, Password: req.Password,
        FirstName: req.FirstName, LastName: req.LastName,
        Mobile: req.Mobile, Role: req.Role,
    }, origin(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.Created(c, "registration successful", echo.Map{"user_id": u.ID, "user": toUserPart(u)})
}

// Login: POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Auth.Login(ctx, req.Email, req.Password, origin(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "login successful", toAuthResp(res))
}

// Refresh: POST /auth/refresh-token.  The presented token is revoked and a
// new pair returned.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Auth.Refresh(ctx, req.token())
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "token refreshed", toAuthResp(res))
}

// Logout: POST /auth/logout.  Succeeds for unknown or revoked tokens too.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Auth.Logout(ctx, req.token()); err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "logged out", nil)
}

// RequestMobileCode: POST /auth/mobile/request-code
func (h *AuthHandler) RequestMobileCode(c echo.Context) error {
    var req mobileCodeReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Auth.RequestMobileLoginCode(ctx, req.Mobile)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    data := echo.Map{"expires_at": res.ExpiresAt}
    if res.Code != "" {
        data["code"] = res.Code
    }
    return response.OK(c, "login code sent", data)
}

// VerifyMobileCode: POST /auth/mobile/verify-code
func (h *AuthHandler) VerifyMobileCode(c echo.Context) error {
    var req mobileVerifyReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    res, err := h.Auth.VerifyMobileLoginCode(ctx, req.Mobile, req.Code, origin(c))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "login successful", toAuthResp(res))
}

// Me: GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    u, err := h.Auth.Me(ctx, id.UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "", toUserPart(u))
}

// ChangePassword: PUT /auth/password.  All refresh tokens of the user are
// revoked on success.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    var req passwordReq
    if err := c.Bind(&req); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Auth.ChangePassword(ctx, id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "password changed", nil)
}
