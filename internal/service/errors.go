package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/matrimony-api/internal/utils"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike, so responses never reveal which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrNotRegistered      = errors.New("mobile number is not registered")
	ErrInvalidCode        = errors.New("invalid or expired login code")
	ErrUserNotFound       = errors.New("user not found")

	// ErrInvalidToken means a token failed verification.  It is the same
	// value utils.TokenManager returns.
	ErrInvalidToken = utils.ErrInvalidToken
	// ErrUnauthenticated means no credentials were presented at all.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInsufficientPermissions means the caller is authenticated but its
	// role may not perform the action.  It stays distinct from
	// ErrInvalidToken even though both surface as 403.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	ErrSelfConnection      = errors.New("cannot send a connection request to yourself")
	ErrDuplicateConnection = errors.New("a connection already exists between these users")
	ErrConnectionNotFound  = errors.New("no pending connection request found")

	ErrProfileNotFound = errors.New("profile not found")
)

// ErrValidation is matched (errors.Is) by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes malformed input in a message safe to show
// to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
