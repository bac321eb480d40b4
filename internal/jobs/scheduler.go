package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"temanagement/api/internal/queue"
)

type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

// Scheduler enqueues periodic maintenance tasks for the worker.
type Scheduler struct {
	cron        *cron.Cron
	queue       TaskEnqueuer
	cleanupSpec string
	log         zerolog.Logger
}

func NewScheduler(queue TaskEnqueuer, cleanupSpec string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:        c,
		queue:       queue,
		cleanupSpec: cleanupSpec,
		log:         log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cleanupSpec, s.enqueueCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("cleanup", s.cleanupSpec).Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, queue.CleanupTask()); err != nil {
		s.log.Error().Err(err).Msg("enqueue cleanup failed")
	}
}
