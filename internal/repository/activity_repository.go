package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/matrimony-api/internal/model"
)

// ActivityRepo appends audit records to activity_logs.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// Record inserts one activity row.
func (r *ActivityRepo) Record(ctx context.Context, a model.Activity) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activity_logs (actor_id, action, ip, user_agent, created_at) VALUES (?,?,?,?,?)",
		a.ActorID, a.Action, a.IP, truncate(a.UserAgent, 255), a.CreatedAt.UTC())
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
