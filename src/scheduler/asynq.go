package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/jobs"
)

const queue = "default"

// AsynqScheduler keeps jobs in Redis, so they survive a restart.
type AsynqScheduler struct {
	opt       asynq.RedisConnOpt
	client    *asynq.Client
	inspector *asynq.Inspector
	cron      *asynq.Scheduler
	server    *asynq.Server
	logger    *slog.Logger
}

var _ Scheduler = (*AsynqScheduler)(nil)

func NewAsynqScheduler(opt asynq.RedisConnOpt, loc *time.Location, logger *slog.Logger) *AsynqScheduler {
	return &AsynqScheduler{
		opt:       opt,
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		cron:      asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc, LogLevel: asynq.WarnLevel}),
		logger:    logger,
	}
}

// ScheduleOnce replaces any task already queued under key.
func (s *AsynqScheduler) ScheduleOnce(ctx context.Context, key string, delay time.Duration, j jobs.Job) error {
	task, err := jobs.NewTask(j)
	if err != nil {
		return err
	}
	if err := s.Cancel(ctx, key); err != nil {
		s.logger.Warn("⚠️ failed to delete old task, enqueueing anyway", "key", key, "error", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.TaskID(key), asynq.Queue(queue))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", key, err)
	}
	s.logger.Info("✅ task scheduled", "key", key, "run_at", info.NextProcessAt.Format(time.RFC3339))
	return nil
}

func (s *AsynqScheduler) Cancel(_ context.Context, key string) error {
	err := s.inspector.DeleteTask(queue, key)
	if err == nil {
		s.logger.Info("🗑️ deleted task", "key", key)
		return nil
	}
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("delete task %s: %w", key, err)
}

func (s *AsynqScheduler) ScheduleRepeating(interval time.Duration, j jobs.Job) error {
	task, err := jobs.NewTask(j)
	if err != nil {
		return err
	}
	id, err := s.cron.Register("@every "+interval.String(), task, asynq.Queue(queue))
	if err != nil {
		return fmt.Errorf("register %s: %w", j.Type, err)
	}
	s.logger.Info("✅ repeating task registered", "type", j.Type, "every", interval, "entry", id)
	return nil
}

func (s *AsynqScheduler) Start(h jobs.Handler) error {
	s.server = asynq.NewServer(s.opt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{queue: 1},
		LogLevel:    asynq.WarnLevel,
	})
	if err := s.server.Start(jobs.NewServeMux(h, s.logger)); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	if err := s.cron.Start(); err != nil {
		s.server.Shutdown()
		return fmt.Errorf("start asynq scheduler: %w", err)
	}
	s.logger.Info("✅ Asynq worker started")
	return nil
}

func (s *AsynqScheduler) Shutdown() {
	s.cron.Shutdown()
	if s.server != nil {
		s.server.Shutdown()
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn("⚠️ close asynq client", "error", err)
	}
	if err := s.inspector.Close(); err != nil {
		s.logger.Warn("⚠️ close asynq inspector", "error", err)
	}
}
