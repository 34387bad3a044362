package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/internal/auth"
	"github.com/BuzzLyutic/task-tracker/internal/config"
	"github.com/BuzzLyutic/task-tracker/internal/countdown"
	"github.com/BuzzLyutic/task-tracker/internal/handler"
	"github.com/BuzzLyutic/task-tracker/internal/identity"
	"github.com/BuzzLyutic/task-tracker/internal/repo"
	"github.com/BuzzLyutic/task-tracker/internal/service"
	"github.com/BuzzLyutic/task-tracker/internal/worker"
)

// App owns the process-wide pieces: the timer scheduler, the guest sweeper
// and the countdown registry.
type App struct {
	Handler   http.Handler
	Scheduler *worker.Scheduler
	Sweeper   *worker.Sweeper
	Registry  *countdown.Registry
	Timers    *service.TimerService

	logger *zap.Logger
}

// New wires repositories, services and handlers. rdb may be nil.
func New(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) (*App, error) {
	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if rdb != nil {
		revoker = auth.NewRedisRevoker(rdb)
	}

	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret:    cfg.Auth.JWTSecret,
		AccessTTL: cfg.Auth.AccessTokenTTL,
		GuestTTL:  cfg.Guest.SessionTTL,
	}, revoker, logger.Named("tokens"))
	if err != nil {
		return nil, fmt.Errorf("init tokens: %w", err)
	}

	taskRepo := repo.NewTaskRepo(pool)
	userRepo := repo.NewUserRepo(pool)
	guestRepo := repo.NewGuestRepo(pool)

	cookies := identity.DefaultCookies()
	cookies.MaxAge = cfg.Guest.SessionTTL

	scheduler := worker.NewScheduler(logger.Named("scheduler"), cfg.Timer.Workers, cfg.Timer.JobTimeout)
	sweeper := worker.NewSweeper(guestRepo, cfg.Guest.SessionTTL, cfg.Guest.SweepInterval, logger.Named("sweeper"))
	registry := countdown.NewRegistry()

	resolver := identity.NewResolver(tokens, userRepo, guestRepo, cookies, cfg.Guest.SessionTTL, logger.Named("identity"))
	authService := service.NewAuthService(userRepo, auth.NewHasher(cfg.Auth.BcryptCost), tokens, logger)
	taskService := service.NewTaskService(taskRepo, tokens, logger)
	timerService := service.NewTimerService(taskRepo, taskRepo, scheduler, logger)

	router := NewRouter(Deps{
		Resolver:  resolver,
		Tasks:     handler.NewTaskHandler(taskService, timerService, cookies, logger),
		Auth:      handler.NewAuthHandler(authService, cookies, logger),
		Countdown: countdown.NewHandler(registry, cfg.Countdown.Tick, logger.Named("countdown")),
		Logger:    logger,
	})

	return &App{
		Handler:   router,
		Scheduler: scheduler,
		Sweeper:   sweeper,
		Registry:  registry,
		Timers:    timerService,
		logger:    logger,
	}, nil
}

// Start runs the background workers and re-arms timers left active by a
// previous process.
func (a *App) Start(ctx context.Context) error {
	a.Scheduler.Start(ctx)
	a.Sweeper.Start(ctx)

	if _, err := a.Timers.Rearm(ctx); err != nil {
		return err
	}
	return nil
}

func (a *App) Stop() {
	a.Sweeper.Stop()
	a.Scheduler.Stop()
}
