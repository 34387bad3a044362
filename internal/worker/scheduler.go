package worker

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a deferred unit of work. A returned error is logged.
type Job func(ctx context.Context) error

// Scheduler runs jobs at a given instant. There is at most one pending job
// per key: scheduling a key again replaces the earlier job.
type Scheduler struct {
	logger     *zap.Logger
	workers    int
	jobTimeout time.Duration
	now        func() time.Time

	mu    sync.Mutex
	queue jobQueue
	byKey map[int64]*entry

	wake     chan struct{}
	ready    chan *entry
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(logger *zap.Logger, workers int, jobTimeout time.Duration) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &Scheduler{
		logger:     logger,
		workers:    workers,
		jobTimeout: jobTimeout,
		now:        time.Now,
		byKey:      make(map[int64]*entry),
		wake:       make(chan struct{}, 1),
		ready:      make(chan *entry),
		stop:       make(chan struct{}),
	}
}

// Start launches the dispatcher and the workers. Jobs run with contexts
// derived from ctx, never from the request that scheduled them.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting timer scheduler", zap.Int("workers", s.workers))

	s.wg.Add(1)
	go s.dispatch(ctx)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
}

// Stop halts dispatching and waits for running jobs. Pending jobs are dropped.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping timer scheduler...", zap.Int("pending", s.Pending()))
		close(s.stop)
		s.wg.Wait()
		s.logger.Info("Timer scheduler stopped")
	})
}

func (s *Scheduler) Schedule(key int64, at time.Time, job Job) {
	s.mu.Lock()
	if old, ok := s.byKey[key]; ok {
		heap.Remove(&s.queue, old.index)
	}
	e := &entry{key: key, at: at, job: job}
	heap.Push(&s.queue, e)
	s.byKey[key] = e
	s.mu.Unlock()

	s.notify()
}

// Cancel removes the pending job for key. It reports whether one existed.
// A job already handed to a worker is not interrupted.
func (s *Scheduler) Cancel(key int64) bool {
	s.mu.Lock()
	e, ok := s.byKey[key]
	if ok {
		heap.Remove(&s.queue, e.index)
		delete(s.byKey, key)
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next pops the earliest job if it is due, otherwise it returns how long to
// wait. A negative wait means the queue is empty.
func (s *Scheduler) next() (*entry, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil, -1
	}
	head := s.queue[0]
	if d := head.at.Sub(s.now()); d > 0 {
		return nil, d
	}
	heap.Pop(&s.queue)
	delete(s.byKey, head.key)
	return head, 0
}

func (s *Scheduler) dispatch(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		due, wait := s.next()
		if due != nil {
			select {
			case s.ready <- due:
				continue
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}

		var fire <-chan time.Time
		if wait > 0 {
			timer.Reset(wait)
			fire = timer.C
		}

		select {
		case <-fire:
		case <-s.wake:
			if !timer.Stop() && fire != nil {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case e := <-s.ready:
			s.run(ctx, id, e)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, workerID int, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer job panicked",
				zap.Int("worker", workerID),
				zap.Int64("key", e.key),
				zap.Any("panic", r),
			)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	if err := e.job(jobCtx); err != nil {
		s.logger.Error("timer job failed",
			zap.Int("worker", workerID),
			zap.Int64("key", e.key),
			zap.Error(err),
		)
	}
}

type entry struct {
	key   int64
	at    time.Time
	job   Job
	index int
}

// jobQueue is a min-heap on fire time.
type jobQueue []*entry

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
