package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

const taskColumns = `id, title, description, is_completed, created_at, updated_at,
	timer_length, timer_active, timer_start, timer_stop, user_id, guest_id`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, owner model.Owner, in model.NewTask) (model.Task, error) {
	if err := owner.Validate(); err != nil {
		return model.Task{}, err
	}
	if !owner.IsGuest() {
		return insertTask(ctx, r.pool, owner, in)
	}

	var t model.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `UPDATE guest_sessions SET updated_at = now() WHERE id = $1`, owner.GuestID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrorNotFound
		}
		t, err = insertTask(ctx, tx, owner, in)
		return err
	})
	return t, mapError(err)
}

// CreateForNewGuest inserts a guest session and its first task atomically:
// if either insert fails neither row is kept.
func (r *TaskRepo) CreateForNewGuest(ctx context.Context, guestID string, in model.NewTask) (model.GuestSession, model.Task, error) {
	var (
		g model.GuestSession
		t model.Task
	)
	if guestID == "" {
		return g, t, ErrorMissingOwner
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO guest_sessions (id) VALUES ($1)
			RETURNING id, created_at, updated_at
		`, guestID).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return err
		}
		t, err = insertTask(ctx, tx, model.GuestOwner(guestID), in)
		return err
	})
	if err != nil {
		return model.GuestSession{}, model.Task{}, mapError(err)
	}
	return g, t, nil
}

func insertTask(ctx context.Context, q querier, owner model.Owner, in model.NewTask) (model.Task, error) {
	userID, guestID := ownerArgs(owner)
	row := q.QueryRow(ctx, `
		INSERT INTO tasks (title, description, timer_length, user_id, guest_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		in.TitleOrDefault(), in.Description, in.TimerLength, userID, guestID)

	t, err := scanTask(row)
	return t, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id int64, owner model.Owner) (model.Task, error) {
	col, key, err := ownerFilter(owner)
	if err != nil {
		return model.Task{}, err
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE id = $1 AND %s = $2
	`, taskColumns, col), id, key)

	t, err := scanTask(row)
	return t, mapError(err)
}

func (r *TaskRepo) List(ctx context.Context, owner model.Owner) ([]model.Task, error) {
	col, key, err := ownerFilter(owner)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s = $1
		ORDER BY created_at, id
	`, taskColumns, col), key)
	if err != nil {
		return nil, err
	}

	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update applies only the non-nil fields of patch (last write wins).
func (r *TaskRepo) Update(ctx context.Context, id int64, owner model.Owner, patch model.TaskPatch) (model.Task, error) {
	col, key, err := ownerFilter(owner)
	if err != nil {
		return model.Task{}, err
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE tasks
		SET title        = COALESCE($3, title),
		    description  = COALESCE($4, description),
		    is_completed = COALESCE($5, is_completed),
		    timer_length = COALESCE($6, timer_length),
		    updated_at   = now()
		WHERE id = $1 AND %s = $2
		RETURNING %s
	`, col, taskColumns), id, key, patch.Title, patch.Description, patch.IsCompleted, patch.TimerLength)

	t, err := scanTask(row)
	return t, mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64, owner model.Owner) error {
	col, key, err := ownerFilter(owner)
	if err != nil {
		return err
	}

	cmd, err := r.pool.Exec(ctx, fmt.Sprintf("DELETE FROM tasks WHERE id = $1 AND %s = $2", col), id, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) StartTimer(ctx context.Context, id int64, owner model.Owner, start, stop time.Time) (model.Task, error) {
	col, key, err := ownerFilter(owner)
	if err != nil {
		return model.Task{}, err
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE tasks
		SET timer_start = $3, timer_stop = $4, timer_active = TRUE, updated_at = now()
		WHERE id = $1 AND %s = $2
		RETURNING %s
	`, col, taskColumns), id, key, start, stop)

	t, err := scanTask(row)
	return t, mapError(err)
}

func (r *TaskRepo) StopTimer(ctx context.Context, id int64, owner model.Owner) (model.Task, error) {
	col, key, err := ownerFilter(owner)
	if err != nil {
		return model.Task{}, err
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE tasks
		SET timer_active = FALSE, updated_at = now()
		WHERE id = $1 AND %s = $2
		RETURNING %s
	`, col, taskColumns), id, key)

	t, err := scanTask(row)
	return t, mapError(err)
}

// ExpireTimer re-reads the task under a row lock on a dedicated connection and
// deactivates the timer only if it is still running with the expected stop
// instant. It reports whether anything changed.
func (r *TaskRepo) ExpireTimer(ctx context.Context, id int64, expectedStop time.Time) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var expired bool
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		var (
			active bool
			stop   *time.Time
		)
		err := tx.QueryRow(ctx, `
			SELECT timer_active, timer_stop FROM tasks WHERE id = $1 FOR UPDATE
		`, id).Scan(&active, &stop)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !active || stop == nil || !stop.Equal(expectedStop) {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET timer_active = FALSE, updated_at = now() WHERE id = $1
		`, id); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (r *TaskRepo) ListActiveTimers(ctx context.Context) ([]model.ActiveTimer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, timer_stop
		FROM tasks
		WHERE timer_active AND timer_stop IS NOT NULL
		ORDER BY timer_stop
	`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ActiveTimer, error) {
		var at model.ActiveTimer
		err := row.Scan(&at.TaskID, &at.TimerStop)
		return at, err
	})
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt,
		&t.TimerLength, &t.TimerActive, &t.TimerStart, &t.TimerStop, &t.UserID, &t.GuestID,
	)
	return t, err
}

func ownerFilter(owner model.Owner) (string, any, error) {
	if err := owner.Validate(); err != nil {
		return "", nil, err
	}
	col, key := owner.Column()
	return col, key, nil
}

func ownerArgs(owner model.Owner) (*int64, *string) {
	if owner.IsGuest() {
		id := owner.GuestID
		return nil, &id
	}
	id := owner.UserID
	return &id, nil
}
