package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/matrimony-api/internal/model"
)

// ConnectionRepo provides data access to the connections table.  It is the
// only writer of connection rows.
type ConnectionRepo struct {
	db *sql.DB
}

// NewConnectionRepo returns a ConnectionRepo bound to the provided database.
func NewConnectionRepo(db *sql.DB) *ConnectionRepo { return &ConnectionRepo{db: db} }

const connectionColumns = "id, sender_id, receiver_id, status, created_at, updated_at"

// ExistsBetween reports whether any connection row links a and b, in
// either direction and in any status.
func (r *ConnectionRepo) ExistsBetween(ctx context.Context, a, b uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM connections
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 LIMIT 1`,
		a, b, b, a).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts a pending connection.  The unordered-pair unique key turns
// a concurrent duplicate (in either direction) into ErrDuplicate.
func (r *ConnectionRepo) Create(ctx context.Context, senderID, receiverID uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO connections (sender_id, receiver_id, status) VALUES (?, ?, ?)`,
		senderID, receiverID, string(model.ConnectionPending))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a single connection.
func (r *ConnectionRepo) GetByID(ctx context.Context, id uint64) (*model.Connection, error) {
	var c model.Connection
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id).
		Scan(&c.ID, &c.SenderID, &c.ReceiverID, &status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Status = model.ConnectionStatus(status)
	return &c, nil
}

// TransitionFromPending moves a pending connection addressed to receiverID
// into status `to` with a single conditional UPDATE.  When two requests race,
// the first writer wins and the second gets ErrNotFound.
func (r *ConnectionRepo) TransitionFromPending(ctx context.Context, id, receiverID uint64, to model.ConnectionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE connections SET status = ?
		 WHERE id = ? AND receiver_id = ? AND status = ?`,
		string(to), id, receiverID, string(model.ConnectionPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns connections where the user is sender or receiver,
// newest first.  An empty status returns every status.
func (r *ConnectionRepo) ListForUser(ctx context.Context, userID uint64, status model.ConnectionStatus) ([]model.Connection, error) {
	q := `SELECT ` + connectionColumns + ` FROM connections WHERE (sender_id = ? OR receiver_id = ?)`
	args := []interface{}{userID, userID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Connection{}
	for rows.Next() {
		var c model.Connection
		var st string
		if err := rows.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &st, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Status = model.ConnectionStatus(st)
		out = append(out, c)
	}
	return out, rows.Err()
}
