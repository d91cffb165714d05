package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/matrimony-api/internal/model"
)

const userColumns = "id,email,password_hash,role_id,status,first_name,last_name,mobile,login_code,login_code_expires_at,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user whose password is already hashed and returns its ID.
// A concurrent registration of the same email surfaces as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role_id, status, first_name, last_name, mobile) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Role.ID(), string(u.Status), u.FirstName, u.LastName, u.Mobile)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EmailExists reports whether a user with exactly this email exists.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE email=? LIMIT 1", email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByMobile fetches the user whose stored mobile ends with the given
// 10 digits.
func (r *UserRepo) GetByMobile(ctx context.Context, mobile10 string) (*model.User, error) {
	return r.queryOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE RIGHT(mobile, 10)=? ORDER BY id LIMIT 1", mobile10)
}

// GetByMobileAndCode fetches the user holding an unexpired login code.
func (r *UserRepo) GetByMobileAndCode(ctx context.Context, mobile10, code string, now time.Time) (*model.User, error) {
	return r.queryOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE RIGHT(mobile, 10)=? AND login_code=? AND login_code_expires_at>? ORDER BY id LIMIT 1",
		mobile10, code, now.UTC())
}

// SetLoginCode stores a one-time login code, replacing any previous one.
func (r *UserRepo) SetLoginCode(ctx context.Context, id uint64, code string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_code=?, login_code_expires_at=? WHERE id=?",
		code, expiresAt.UTC(), id)
	return err
}

// ConsumeLoginCode clears the login code only if it still equals code.
// Exactly one of several concurrent callers gets true.
func (r *UserRepo) ConsumeLoginCode(ctx context.Context, id uint64, code string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET login_code=NULL, login_code_expires_at=NULL WHERE id=? AND login_code=?",
		id, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus changes a user's status.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status model.UserStatus) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 affected rows when the value is unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// LegacyPassword is a row whose password_hash column does not hold a
// bcrypt hash.
type LegacyPassword struct {
	ID     uint64
	Stored string
}

// ListLegacyPasswords returns rows for which isHashed reports false.  It
// walks the whole table; it only serves the one-off migration command.
func (r *UserRepo) ListLegacyPasswords(ctx context.Context, isHashed func(string) bool) ([]LegacyPassword, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, password_hash FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LegacyPassword
	for rows.Next() {
		var lp LegacyPassword
		if err := rows.Scan(&lp.ID, &lp.Stored); err != nil {
			return nil, err
		}
		if !isHashed(lp.Stored) {
			out = append(out, lp)
		}
	}
	return out, rows.Err()
}

// ReplaceLegacyPassword swaps the stored value for its hash, only if the row
// still holds the value that was read.
func (r *UserRepo) ReplaceLegacyPassword(ctx context.Context, id uint64, stored, hash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=? AND password_hash=?", hash, id, stored)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Ping verifies the database is reachable; used by the health endpoint.
func (r *UserRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

func (r *UserRepo) queryOne(ctx context.Context, q string, args ...interface{}) (*model.User, error) {
	var (
		u         model.User
		roleID    uint8
		status    string
		code      sql.NullString
		codeExpAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &roleID, &status, &u.FirstName, &u.LastName,
		&u.Mobile, &code, &codeExpAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Role, err = model.RoleFromID(roleID); err != nil {
		return nil, err
	}
	u.Status = model.UserStatus(status)
	if code.Valid {
		u.LoginCode = &code.String
	}
	if codeExpAt.Valid {
		t := codeExpAt.Time
		u.LoginCodeExpiresAt = &t
	}
	return &u, nil
}
