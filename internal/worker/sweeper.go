package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type GuestPurger interface {
	DeleteExpired(ctx context.Context, lastSeenBefore time.Time) (int64, error)
}

// Sweeper periodically deletes guest sessions idle for longer than ttl.
type Sweeper struct {
	guests   GuestPurger
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSweeper(guests GuestPurger, ttl, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		guests:   guests,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting guest sweeper", zap.Duration("ttl", s.ttl), zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.logger.Info("Guest sweeper stopped")
	})
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("guest sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one deletion pass and returns how many sessions were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.guests.DeleteExpired(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Expired guest sessions removed", zap.Int64("count", n))
	}
	return n, nil
}
