package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs one recurring job per location key.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	timeout   time.Duration

	mu   sync.Mutex
	jobs map[string]*gocron.Job
}

// New creates a Scheduler. timeout bounds each job run.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger.With("component", "scheduler"),
		timeout:   timeout,
		jobs:      make(map[string]*gocron.Job),
	}
}

// Schedule registers job to run every interval under key. The first run
// happens one interval from now. Scheduling an existing key is a no-op.
func (s *Scheduler) Schedule(key string, every time.Duration, job func(ctx context.Context) error) error {
	if every <= 0 {
		return fmt.Errorf("scheduler: invalid interval %v for %s", every, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[key]; ok {
		return nil
	}

	j, err := s.scheduler.Every(every).SingletonMode().WaitForSchedule().Tag(key).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := job(ctx); err != nil {
			s.logger.Warn("scheduled refresh failed", "key", key, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: schedule %s: %w", key, err)
	}

	s.jobs[key] = j
	s.logger.Info("polling scheduled", "key", key, "interval", every)
	return nil
}

// Scheduled reports whether a job is registered under key.
func (s *Scheduler) Scheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

// Start starts the underlying scheduler without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
