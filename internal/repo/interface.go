package repo

import (
	"context"
	"time"

	"github.com/BuzzLyutic/task-tracker/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами.
// Every call except ExpireTimer and ListActiveTimers is scoped by owner.
type TaskRepository interface {
	Create(ctx context.Context, owner model.Owner, in model.NewTask) (model.Task, error)
	CreateForNewGuest(ctx context.Context, guestID string, in model.NewTask) (model.GuestSession, model.Task, error)
	Get(ctx context.Context, id int64, owner model.Owner) (model.Task, error)
	List(ctx context.Context, owner model.Owner) ([]model.Task, error)
	Update(ctx context.Context, id int64, owner model.Owner, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id int64, owner model.Owner) error
	StartTimer(ctx context.Context, id int64, owner model.Owner, start, stop time.Time) (model.Task, error)
	StopTimer(ctx context.Context, id int64, owner model.Owner) (model.Task, error)
}

// TimerStore is the scheduler's own data-access path. It is not scoped by
// owner because it only ever acts on ids the scheduler armed itself.
type TimerStore interface {
	ExpireTimer(ctx context.Context, id int64, expectedStop time.Time) (bool, error)
	ListActiveTimers(ctx context.Context) ([]model.ActiveTimer, error)
}

type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
}

type GuestRepository interface {
	Get(ctx context.Context, id string) (model.GuestSession, error)
	DeleteExpired(ctx context.Context, lastSeenBefore time.Time) (int64, error)
}
