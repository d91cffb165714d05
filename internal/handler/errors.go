package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/service"
)

type errorMapping struct {
    err     error
    status  int
    code    string
    message string // empty means err.Error()
}

// errorTable maps domain errors to what the client sees.  Order matters
// only where one error wraps another.
var errorTable = []errorMapping{
    {service.ErrInvalidCredentials, http.StatusUnauthorized, response.CodeInvalidCredentials, "invalid email or password"},
    {service.ErrInvalidCode, http.StatusUnauthorized, response.CodeInvalidCode, ""},
    {service.ErrUnauthenticated, http.StatusUnauthorized, response.CodeUnauthenticated, ""},
    {service.ErrInvalidToken, http.StatusForbidden, response.CodeInvalidToken, "invalid token"},
    {service.ErrInsufficientPermissions, http.StatusForbidden, response.CodeInsufficientPermissions, "insufficient permissions"},
    {service.ErrAccountBlocked, http.StatusForbidden, response.CodeAccountBlocked, ""},
    {service.ErrDuplicateEmail, http.StatusBadRequest, response.CodeDuplicateEmail, ""},
    {service.ErrDuplicateConnection, http.StatusBadRequest, response.CodeDuplicateConnection, ""},
    {service.ErrSelfConnection, http.StatusBadRequest, response.CodeSelfConnection, ""},
    {service.ErrNotRegistered, http.StatusNotFound, response.CodeNotRegistered, ""},
    {service.ErrUserNotFound, http.StatusNotFound, response.CodeNotFound, ""},
    {service.ErrConnectionNotFound, http.StatusNotFound, response.CodeNotFound, ""},
    {service.ErrProfileNotFound, http.StatusNotFound, response.CodeNotFound, ""},
}

// writeError turns err into an envelope.  Unknown errors become a generic
// 500 and are logged with the request id; nothing internal reaches the body.
func writeError(c echo.Context, log *zap.Logger, err error) error {
    var ve *service.ValidationError
    if errors.As(err, &ve) {
        return response.Fail(c, http.StatusBadRequest, response.CodeValidation, ve.Error())
    }
    for _, m := range errorTable {
        if errors.Is(err, m.err) {
            msg := m.message
            if msg == "" {
                msg = m.err.Error()
            }
            return response.Fail(c, m.status, m.code, msg)
        }
    }
    var he *echo.HTTPError
    if errors.As(err, &he) {
        return writeHTTPError(c, he)
    }
    log.Error("request failed",
        zap.String("request_id", requestID(c)),
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err))
    return response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "internal server error")
}

func writeHTTPError(c echo.Context, he *echo.HTTPError) error {
    switch he.Code {
    case http.StatusNotFound:
        return response.Fail(c, he.Code, response.CodeNotFound, "resource not found")
    case http.StatusMethodNotAllowed:
        return response.Fail(c, he.Code, response.CodeMethodNotAllowed, "method not allowed")
    case http.StatusUnauthorized:
        return response.Fail(c, he.Code, response.CodeUnauthenticated, "authentication required")
    case http.StatusTooManyRequests:
        return response.Fail(c, he.Code, response.CodeRateLimited, "too many requests")
    }
    if he.Code >= 400 && he.Code < 500 {
        return response.Fail(c, he.Code, response.CodeValidation, "invalid request")
    }
    return response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "internal server error")
}

// HTTPErrorHandler replaces Echo's default so router 404/405s, bind errors
// and recovered panics use the same envelope.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        if werr := writeError(c, log, err); werr != nil {
            log.Warn("error response not written", zap.Error(werr))
        }
    }
}

func requestID(c echo.Context) string {
    if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
        return id
    }
    return c.Request().Header.Get(echo.HeaderXRequestID)
}

func invalidBody() error {
    return &service.ValidationError{Message: "invalid request body"}
}
