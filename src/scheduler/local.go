package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/jobs"
)

// LocalScheduler runs jobs in-process. Pending one-shot jobs are lost on
// restart; the sweep picks up overdue surveys afterwards.
type LocalScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending []pendingJob
	handler jobs.Handler
	cron    *cron.Cron
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// pendingJob is a one-shot job scheduled before Start.
type pendingJob struct {
	key   string
	runAt time.Time
	job   jobs.Job
}

var _ Scheduler = (*LocalScheduler)(nil)

func NewLocalScheduler(loc *time.Location, logger *slog.Logger) *LocalScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalScheduler{
		timers: make(map[string]*time.Timer),
		cron:   cron.New(cron.WithLocation(loc)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (s *LocalScheduler) ScheduleOnce(_ context.Context, key string, delay time.Duration, j jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	s.dropPending(key)

	if s.handler == nil {
		s.pending = append(s.pending, pendingJob{key: key, runAt: time.Now().Add(delay), job: j})
		return nil
	}
	s.arm(key, delay, j)
	return nil
}

// arm must be called with mu held and a handler set.
func (s *LocalScheduler) arm(key string, delay time.Duration, j jobs.Job) {
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		s.run(j)
	})
	s.timers[key] = t
	s.logger.Info("✅ task scheduled", "key", key, "run_at", time.Now().Add(delay).Format(time.RFC3339))
}

func (s *LocalScheduler) dropPending(key string) {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.key != key {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

func (s *LocalScheduler) Cancel(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
		s.logger.Info("🗑️ deleted task", "key", key)
	}
	s.dropPending(key)
	return nil
}

func (s *LocalScheduler) ScheduleRepeating(interval time.Duration, j jobs.Job) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}
	id, err := s.cron.AddFunc("@every "+interval.String(), func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("register %s: %w", j.Type, err)
	}
	s.logger.Info("✅ repeating task registered", "type", j.Type, "every", interval, "entry", int(id))
	return nil
}

func (s *LocalScheduler) Start(h jobs.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.handler = h
	now := time.Now()
	for _, p := range s.pending {
		s.arm(p.key, max(p.runAt.Sub(now), 0), p.job)
	}
	s.pending = nil
	s.cron.Start()
	s.logger.Info("✅ local scheduler started")
	return nil
}

func (s *LocalScheduler) run(j jobs.Job) {
	s.mu.Lock()
	h := s.handler
	if s.ctx.Err() != nil || h == nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if err := h.HandleJob(s.ctx, j); err != nil {
		s.logger.Error("❌ job failed", "type", j.Type, "survey_id", j.SurveyID, "error", err)
	}
}

// Shutdown stops all timers and waits for running jobs.
func (s *LocalScheduler) Shutdown() {
	s.mu.Lock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	s.pending = nil
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Scheduled reports whether key has a pending one-shot job.
func (s *LocalScheduler) Scheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[key]; ok {
		return true
	}
	for _, p := range s.pending {
		if p.key == key {
			return true
		}
	}
	return false
}
