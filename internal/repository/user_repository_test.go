package repository

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/matrimony-api/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func userRow(id uint64, email string, role model.Role, status model.UserStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(strings.Split(userColumns, ",")).
		AddRow(id, email, "$2a$04$hash", role.ID(), string(status), "Alice", "Smith", "9876543210", nil, nil, now, now)
}

func TestUserCreateMapsDuplicateKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	u := &model.User{Email: "a@b.co", PasswordHash: "h", Role: model.RoleUser, Status: model.StatusActive, FirstName: "A"}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("a@b.co", "h", model.RoleUser.ID(), "active", "A", "", "").
		WillReturnResult(sqlmock.NewResult(17, 1))
	id, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), id)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	_, err = repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("a@b.co").
		WillReturnRows(userRow(3, "a@b.co", model.RoleBroker, model.StatusActive))
	u, err := repo.GetByEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, model.RoleBroker, u.Role)
	assert.Nil(t, u.LoginCode)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("nobody@b.co").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByEmail(context.Background(), "nobody@b.co")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRejectsUnknownRoleID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(4)).
		WillReturnRows(userRow(4, "x@y.z", model.Role(9), model.StatusActive))
	_, err := NewUserRepo(db).GetByID(context.Background(), 4)
	assert.Error(t, err)
}

func TestConsumeLoginCodeIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	q := regexp.QuoteMeta("UPDATE users SET login_code=NULL, login_code_expires_at=NULL WHERE id=? AND login_code=?")

	mock.ExpectExec(q).WithArgs(uint64(5), "ABC123").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.ConsumeLoginCode(context.Background(), 5, "ABC123")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(q).WithArgs(uint64(5), "ABC123").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.ConsumeLoginCode(context.Background(), 5, "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateStatusUnchangedValue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=? WHERE id=?")).
		WithArgs("blocked", uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(8)).
		WillReturnRows(userRow(8, "b@b.co", model.RoleUser, model.StatusBlocked))
	require.NoError(t, repo.UpdateStatus(context.Background(), 8, model.StatusBlocked))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=? WHERE id=?")).
		WithArgs("blocked", uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 99, model.StatusBlocked), ErrNotFound)
}

func TestListLegacyPasswordsFilters(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, password_hash FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).
			AddRow(1, "$2a$10$alreadyhashed").
			AddRow(2, "hunter2").
			AddRow(3, "$2-not-really"))

	isHashed := func(s string) bool { return s == "$2a$10$alreadyhashed" }
	out, err := NewUserRepo(db).ListLegacyPasswords(context.Background(), isHashed)
	require.NoError(t, err)
	assert.Equal(t, []LegacyPassword{{ID: 2, Stored: "hunter2"}, {ID: 3, Stored: "$2-not-really"}}, out)
}
