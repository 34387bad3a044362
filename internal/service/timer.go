package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/model"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/internal/worker"
)

type Scheduler interface {
	Schedule(key int64, at time.Time, job worker.Job)
	Cancel(key int64) bool
}

// TimerService moves a task's timer between idle and running and arms the
// job that deactivates it when it runs out.
type TimerService struct {
	tasks     repo.TaskRepository
	store     repo.TimerStore
	scheduler Scheduler
	logger    *zap.Logger
	now       func() time.Time
}

func NewTimerService(tasks repo.TaskRepository, store repo.TimerStore, scheduler Scheduler, logger *zap.Logger) *TimerService {
	return &TimerService{
		tasks:     tasks,
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Start (re)starts the timer. Starting a running timer replaces its job.
func (s *TimerService) Start(ctx context.Context, id identity.Identity, taskID int64) (model.Task, error) {
	owner, err := ownerOf(id)
	if err != nil {
		return model.Task{}, err
	}

	t, err := s.tasks.Get(ctx, taskID, owner)
	if err != nil {
		return model.Task{}, err
	}
	if t.TimerLength == nil || *t.TimerLength <= 0 {
		return model.Task{}, ErrInvalidTimerConfig
	}

	// Postgres keeps microseconds; the guard compares against the stored value.
	start := s.now().UTC().Truncate(time.Microsecond)
	stop := start.Add(time.Duration(*t.TimerLength) * time.Second)

	t, err = s.tasks.StartTimer(ctx, taskID, owner, start, stop)
	if err != nil {
		return model.Task{}, err
	}
	if t.TimerStop != nil {
		stop = *t.TimerStop
	}

	s.arm(t.ID, stop)
	return t, nil
}

func (s *TimerService) Stop(ctx context.Context, id identity.Identity, taskID int64) (model.Task, error) {
	owner, err := ownerOf(id)
	if err != nil {
		return model.Task{}, err
	}

	t, err := s.tasks.StopTimer(ctx, taskID, owner)
	if err != nil {
		return model.Task{}, err
	}
	s.scheduler.Cancel(t.ID)
	return t, nil
}

// Rearm schedules every timer still marked active, typically after a
// restart. Timers already past their stop instant fire right away.
func (s *TimerService) Rearm(ctx context.Context) (int, error) {
	timers, err := s.store.ListActiveTimers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active timers: %w", err)
	}
	for _, at := range timers {
		s.arm(at.TaskID, at.TimerStop)
	}
	if len(timers) > 0 {
		s.logger.Info("Active timers re-armed", zap.Int("count", len(timers)))
	}
	return len(timers), nil
}

func (s *TimerService) arm(taskID int64, stop time.Time) {
	s.scheduler.Schedule(taskID, stop, s.expireJob(taskID, stop))
}

func (s *TimerService) expireJob(taskID int64, stop time.Time) worker.Job {
	return func(ctx context.Context) error {
		expired, err := s.store.ExpireTimer(ctx, taskID, stop)
		if err != nil {
			return fmt.Errorf("expire timer of task %d: %w", taskID, err)
		}
		if expired {
			s.logger.Info("timer expired", zap.Int64("task_id", taskID))
		} else {
			s.logger.Debug("stale timer job skipped", zap.Int64("task_id", taskID), zap.Time("timer_stop", stop))
		}
		return nil
	}
}
