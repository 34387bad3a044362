package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

type GuestRepo struct {
	pool *pgxpool.Pool
}

func NewGuestRepo(pool *pgxpool.Pool) *GuestRepo {
	return &GuestRepo{pool: pool}
}

func (r *GuestRepo) Get(ctx context.Context, id string) (model.GuestSession, error) {
	var g model.GuestSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, created_at, updated_at FROM guest_sessions WHERE id = $1
	`, id).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return g, mapError(err)
}

// DeleteExpired removes sessions not used since lastSeenBefore. Their tasks
// go with them through the foreign key cascade.
func (r *GuestRepo) DeleteExpired(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
		DELETE FROM guest_sessions WHERE COALESCE(updated_at, created_at) < $1
	`, lastSeenBefore)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
