// Package service holds the business rules: authentication flows, the
// connection-request state machine and profile editing.  Services depend on
// the small store interfaces below; the MySQL repositories and the
// in-memory store both satisfy them.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/matrimony-api/internal/model"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByMobile(ctx context.Context, mobile10 string) (*model.User, error)
	GetByMobileAndCode(ctx context.Context, mobile10, code string, now time.Time) (*model.User, error)
	SetLoginCode(ctx context.Context, id uint64, code string, expiresAt time.Time) error
	ConsumeLoginCode(ctx context.Context, id uint64, code string) (bool, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error
}

// TokenStore keeps refresh-token hashes for revocation.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// ConnectionStore persists connection requests.
type ConnectionStore interface {
	ExistsBetween(ctx context.Context, a, b uint64) (bool, error)
	Create(ctx context.Context, senderID, receiverID uint64) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*model.Connection, error)
	TransitionFromPending(ctx context.Context, id, receiverID uint64, to model.ConnectionStatus) error
	ListForUser(ctx context.Context, userID uint64, status model.ConnectionStatus) ([]model.Connection, error)
}

// ProfileStore reads and edits public profiles.
type ProfileStore interface {
	Get(ctx context.Context, userID uint64) (*model.Profile, error)
	Update(ctx context.Context, userID uint64, changes map[string]interface{}) error
}

// ActivityRecorder receives audit records of auth events.
type ActivityRecorder interface {
	Record(ctx context.Context, a model.Activity) error
}

// SMSSender delivers login codes out of band.
type SMSSender interface {
	SendLoginCode(ctx context.Context, mobile, code string) error
}

// MultiRecorder fans one activity out to several recorders and returns the
// first error after trying all of them.
type MultiRecorder []ActivityRecorder

func (m MultiRecorder) Record(ctx context.Context, a model.Activity) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}
