// Package response writes the uniform JSON envelope every endpoint uses:
// {success, message?, data?, error?}.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Stable error codes carried in the "error" field.
const (
	CodeValidation              = "ValidationError"
	CodeInvalidCredentials      = "InvalidCredentials"
	CodeUnauthenticated         = "Unauthenticated"
	CodeInvalidToken            = "InvalidToken"
	CodeInsufficientPermissions = "InsufficientPermissions"
	CodeAccountBlocked          = "AccountBlocked"
	CodeDuplicateEmail          = "DuplicateEmail"
	CodeDuplicateConnection     = "DuplicateConnection"
	CodeSelfConnection          = "SelfConnection"
	CodeNotRegistered           = "NotRegistered"
	CodeInvalidCode             = "InvalidCode"
	CodeNotFound                = "NotFound"
	CodeMethodNotAllowed        = "MethodNotAllowed"
	CodeRateLimited             = "RateLimited"
	CodeInternal                = "InternalError"
	CodeUnavailable             = "ServiceUnavailable"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with a stable code and a client-safe message.
func Fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Error: code})
}
