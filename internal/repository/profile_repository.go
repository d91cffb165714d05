package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/matrimony-api/internal/model"
)

// Columns a profile update may touch.  Names live on users, everything
// else on profiles.  Any other key is refused before SQL is built.
var (
	userProfileColumns = map[string]bool{"first_name": true, "last_name": true}
	profileColumns     = map[string]bool{
		"gender": true, "date_of_birth": true, "religion": true, "mother_tongue": true,
		"city": true, "occupation": true, "height_cm": true, "about": true,
	}
)

// ErrUnknownColumn is returned when an update names a column outside the
// allow list.
var ErrUnknownColumn = errors.New("unknown profile column")

type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// Get returns the public profile of a non-blocked user.
func (r *ProfileRepo) Get(ctx context.Context, userID uint64) (*model.Profile, error) {
	var (
		p          model.Profile
		gender     sql.NullString
		dob        sql.NullTime
		religion   sql.NullString
		tongue     sql.NullString
		city       sql.NullString
		occupation sql.NullString
		height     sql.NullInt64
		about      sql.NullString
		updatedAt  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.first_name, u.last_name,
		       p.gender, p.date_of_birth, p.religion, p.mother_tongue, p.city,
		       p.occupation, p.height_cm, p.about, COALESCE(p.updated_at, u.updated_at)
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = ? AND u.status <> 'blocked'`, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName,
		&gender, &dob, &religion, &tongue, &city, &occupation, &height, &about, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Gender = nullStr(gender)
	p.Religion = nullStr(religion)
	p.MotherTongue = nullStr(tongue)
	p.City = nullStr(city)
	p.Occupation = nullStr(occupation)
	p.About = nullStr(about)
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	if height.Valid {
		h := int(height.Int64)
		p.HeightCM = &h
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}

// Update applies column -> value changes for one user inside a single
// transaction.  Column names must come from the allow list.
func (r *ProfileRepo) Update(ctx context.Context, userID uint64, changes map[string]interface{}) error {
	var userCols, profCols []string
	for col := range changes {
		switch {
		case userProfileColumns[col]:
			userCols = append(userCols, col)
		case profileColumns[col]:
			profCols = append(profCols, col)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
	}
	sort.Strings(userCols)
	sort.Strings(profCols)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if len(userCols) > 0 {
		sets := make([]string, len(userCols))
		args := make([]interface{}, 0, len(userCols)+1)
		for i, c := range userCols {
			sets[i] = c + " = ?"
			args = append(args, changes[c])
		}
		args = append(args, userID)
		if _, err := tx.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return err
		}
	}
	if len(profCols) > 0 {
		cols := append([]string{"user_id"}, profCols...)
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		updates := make([]string, len(profCols))
		args := []interface{}{userID}
		for i, c := range profCols {
			updates[i] = c + " = VALUES(" + c + ")"
			args = append(args, changes[c])
		}
		q := "INSERT INTO profiles (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ") ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
