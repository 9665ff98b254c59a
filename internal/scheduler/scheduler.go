package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is a unit of background work.
type Job func(ctx context.Context) error

// Scheduler manages the periodic background jobs: progress flushing and
// source syncing.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Every registers job to run every interval. A non-positive interval
// disables the job and is not an error.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		s.logger.Info("job disabled", "job", name)
		return nil
	}
	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.run, name, job)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", "job", name, "interval", interval)
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	if err := job(s.ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("job finished", "job", name, "duration", time.Since(start))
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Start runs the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs and cancels running ones.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
