package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	q := regexp.QuoteMeta("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=?")
	cols := []string{"user_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, time.Now().Add(time.Hour), nil))
	id, err := repo.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)

	mock.ExpectQuery(q).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, time.Now().Add(time.Hour), time.Now()))
	_, err = repo.ValidateRefresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, time.Now().Add(-time.Minute), nil))
	_, err = repo.ValidateRefresh(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.ValidateRefresh(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeByHashReportsWinner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	q := regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL")

	mock.ExpectExec(q).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.RevokeByHash(context.Background(), "h")
	require.NoError(t, err)
	assert.True(t, won)
	won, err = repo.RevokeByHash(context.Background(), "h")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestRevokeAllForUser(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id=? AND revoked_at IS NULL")).
		WithArgs(uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	assert.NoError(t, NewTokenRepo(db).RevokeAllForUser(context.Background(), 6))
}
