package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/matrimony-api/internal/model"
)

func TestProfileUpdateSplitsTables(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET first_name = ? WHERE id = ?")).
		WithArgs("Asha", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (user_id, city, height_cm) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE city = VALUES(city), height_cm = VALUES(height_cm)")).
		WithArgs(uint64(7), "Pune", 170).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), 7, map[string]interface{}{
		"height_cm": 170, "first_name": "Asha", "city": "Pune",
	})
	require.NoError(t, err)
}

func TestProfileUpdateRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_name = ? WHERE id = ?")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), 7, map[string]interface{}{"last_name": "K"})
	assert.EqualError(t, err, "boom")
}

func TestProfileUpdateRefusesUnknownColumn(t *testing.T) {
	db, _ := newMock(t)
	err := NewProfileRepo(db).Update(context.Background(), 7, map[string]interface{}{"password_hash": "x"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestProfileGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepo(db)
	cols := []string{"id", "first_name", "last_name", "gender", "date_of_birth", "religion", "mother_tongue", "city", "occupation", "height_cm", "about", "updated_at"}
	dob := time.Date(1994, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u LEFT JOIN profiles p")).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, "Asha", "K", "female", dob, nil, nil, "Pune", nil, 165, nil, time.Now()))
	p, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, p.Gender)
	assert.Equal(t, "female", *p.Gender)
	assert.Nil(t, p.Religion)
	require.NotNil(t, p.HeightCM)
	assert.Equal(t, 165, *p.HeightCM)
	assert.True(t, p.DateOfBirth.Equal(dob))

	mock.ExpectQuery(regexp.QuoteMeta("FROM users u LEFT JOIN profiles p")).WithArgs(uint64(8)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityRecordTruncatesUserAgent(t *testing.T) {
	db, mock := newMock(t)
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WithArgs(uint64(1), "login", "10.0.0.1", string(long[:255]), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := NewActivityRepo(db).Record(context.Background(), model.Activity{
		ActorID: 1, Action: model.ActionLogin, IP: "10.0.0.1", UserAgent: string(long), CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}
