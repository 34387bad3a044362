package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/worker"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, owner model.Owner, in model.NewTask) (model.Task, error) {
	args := m.Called(ctx, owner, in)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) CreateForNewGuest(ctx context.Context, guestID string, in model.NewTask) (model.GuestSession, model.Task, error) {
	args := m.Called(ctx, guestID, in)
	return args.Get(0).(model.GuestSession), args.Get(1).(model.Task), args.Error(2)
}

func (m *MockTaskRepository) Get(ctx context.Context, id int64, owner model.Owner) (model.Task, error) {
	args := m.Called(ctx, id, owner)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, owner model.Owner) ([]model.Task, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, id int64, owner model.Owner, patch model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, id, owner, patch)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id int64, owner model.Owner) error {
	args := m.Called(ctx, id, owner)
	return args.Error(0)
}

func (m *MockTaskRepository) StartTimer(ctx context.Context, id int64, owner model.Owner, start, stop time.Time) (model.Task, error) {
	args := m.Called(ctx, id, owner, start, stop)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) StopTimer(ctx context.Context, id int64, owner model.Owner) (model.Task, error) {
	args := m.Called(ctx, id, owner)
	return args.Get(0).(model.Task), args.Error(1)
}

type MockTimerStore struct {
	mock.Mock
}

func (m *MockTimerStore) ExpireTimer(ctx context.Context, id int64, expectedStop time.Time) (bool, error) {
	args := m.Called(ctx, id, expectedStop)
	return args.Bool(0), args.Error(1)
}

func (m *MockTimerStore) ListActiveTimers(ctx context.Context) ([]model.ActiveTimer, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.ActiveTimer), args.Error(1)
}

// fakeScheduler records jobs instead of running them so tests can fire them by hand.
type fakeScheduler struct {
	jobs      map[int64]worker.Job
	at        map[int64]time.Time
	cancelled []int64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[int64]worker.Job{}, at: map[int64]time.Time{}}
}

func (f *fakeScheduler) Schedule(key int64, at time.Time, job worker.Job) {
	f.jobs[key] = job
	f.at[key] = at
}

func (f *fakeScheduler) Cancel(key int64) bool {
	_, ok := f.jobs[key]
	delete(f.jobs, key)
	delete(f.at, key)
	f.cancelled = append(f.cancelled, key)
	return ok
}

type MockGuestTokenIssuer struct {
	mock.Mock
}

func (m *MockGuestTokenIssuer) IssueGuestToken(ctx context.Context, guestID string) (string, error) {
	args := m.Called(ctx, guestID)
	return args.String(0), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, email, passwordHash string) (model.User, error) {
	args := m.Called(ctx, email, passwordHash)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) IssueAccessToken(ctx context.Context, email string, ttl time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, email, ttl)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenManager) VerifyAccessToken(ctx context.Context, token string) (auth.Claims, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.Claims), args.Error(1)
}

func (m *MockTokenManager) Revoke(ctx context.Context, claims auth.Claims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

// plainHasher stands in for bcrypt.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(password, digest string) bool { return digest == "hashed:"+password }
