package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
)

type GuestTokenIssuer interface {
	IssueGuestToken(ctx context.Context, guestID string) (string, error)
}

type TaskService struct {
	repo       repo.TaskRepository
	guests     GuestTokenIssuer
	logger     *zap.Logger
	newGuestID func() string
}

func NewTaskService(repo repo.TaskRepository, guests GuestTokenIssuer, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:       repo,
		guests:     guests,
		logger:     logger,
		newGuestID: uuid.NewString,
	}
}

// CreateResult carries the new task and, for guest callers, a freshly
// signed session token.
type CreateResult struct {
	Task       model.Task
	GuestToken string
}

func (s *TaskService) Create(ctx context.Context, id identity.Identity, in model.NewTask) (CreateResult, error) {
	if err := validateStruct(in); err != nil {
		return CreateResult{}, err
	}

	switch v := id.(type) {
	case identity.AuthenticatedUser:
		t, err := s.repo.Create(ctx, model.UserOwner(v.UserID), in)
		return CreateResult{Task: t}, err
	case identity.GuestOwner:
		return s.createForGuest(ctx, v.GuestID, in)
	case identity.UnresolvedGuest:
		return s.createForNewGuest(ctx, in)
	default:
		return CreateResult{}, fmt.Errorf("unknown identity %T", id)
	}
}

// createForGuest re-signs the guest cookie: creating a task counts as use
// and moves the session expiry forward.
func (s *TaskService) createForGuest(ctx context.Context, guestID string, in model.NewTask) (CreateResult, error) {
	token, err := s.guests.IssueGuestToken(ctx, guestID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("issue guest token: %w", err)
	}

	t, err := s.repo.Create(ctx, model.GuestOwner(guestID), in)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Task: t, GuestToken: token}, nil
}

// createForNewGuest signs the cookie before writing anything so a signing
// failure leaves no orphan session behind.
func (s *TaskService) createForNewGuest(ctx context.Context, in model.NewTask) (CreateResult, error) {
	guestID := s.newGuestID()
	token, err := s.guests.IssueGuestToken(ctx, guestID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("issue guest token: %w", err)
	}

	_, t, err := s.repo.CreateForNewGuest(ctx, guestID, in)
	if err != nil {
		return CreateResult{}, err
	}

	s.logger.Info("guest session created", zap.String("guest_id", guestID), zap.Int64("task_id", t.ID))
	return CreateResult{Task: t, GuestToken: token}, nil
}

// List returns an empty list for a caller without a session and writes nothing.
func (s *TaskService) List(ctx context.Context, id identity.Identity) ([]model.Task, error) {
	owner, ok := identity.Owner(id)
	if !ok {
		return []model.Task{}, nil
	}
	tasks, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id identity.Identity, taskID int64) (model.Task, error) {
	owner, err := ownerOf(id)
	if err != nil {
		return model.Task{}, err
	}
	return s.repo.Get(ctx, taskID, owner)
}

func (s *TaskService) Update(ctx context.Context, id identity.Identity, taskID int64, patch model.TaskPatch) (model.Task, error) {
	owner, err := ownerOf(id)
	if err != nil {
		return model.Task{}, err
	}
	if err := validateStruct(patch); err != nil {
		return model.Task{}, err
	}
	return s.repo.Update(ctx, taskID, owner, patch)
}

func (s *TaskService) Delete(ctx context.Context, id identity.Identity, taskID int64) error {
	owner, err := ownerOf(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, taskID, owner)
}
