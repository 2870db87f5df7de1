// Package testutil holds shared fixtures for service tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/jobs"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/scheduler"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
)

// T0 is the default start of a test clock: a Sunday evening meeting.
var T0 = time.Date(2025, 3, 9, 19, 0, 0, 0, time.UTC)

// Logger discards everything.
func Logger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// NewStore opens a migrated SQLite store in t.TempDir.
func NewStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "survey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Approve queues and approves each user.
func Approve(t *testing.T, s store.Store, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		_, err := s.RequestAccess(ctx, models.User{UserID: id, FirstName: "user", Since: T0})
		require.NoError(t, err)
		_, err = s.ApprovePending(ctx, id, T0)
		require.NoError(t, err)
	}
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(at time.Time) *Clock { return &Clock{now: at} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Scheduled is one recorded ScheduleOnce call.
type Scheduled struct {
	Key   string
	Delay time.Duration
	Job   jobs.Job
}

// Scheduler records calls instead of running jobs. Tests fire jobs by hand.
type Scheduler struct {
	mu        sync.Mutex
	once      map[string]Scheduled
	cancelled []string
	repeating []jobs.Job
	handler   jobs.Handler
	// FailSchedule makes ScheduleOnce return an error.
	FailSchedule error
}

var _ scheduler.Scheduler = (*Scheduler)(nil)

func NewScheduler() *Scheduler { return &Scheduler{once: make(map[string]Scheduled)} }

func (s *Scheduler) ScheduleOnce(_ context.Context, key string, delay time.Duration, j jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSchedule != nil {
		return s.FailSchedule
	}
	s.once[key] = Scheduled{Key: key, Delay: delay, Job: j}
	return nil
}

func (s *Scheduler) Cancel(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.once, key)
	s.cancelled = append(s.cancelled, key)
	return nil
}

func (s *Scheduler) ScheduleRepeating(_ time.Duration, j jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeating = append(s.repeating, j)
	return nil
}

func (s *Scheduler) Start(h jobs.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
	return nil
}

func (s *Scheduler) Shutdown() {}

// Get returns the pending job registered under key.
func (s *Scheduler) Get(key string) (Scheduled, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.once[key]
	return sc, ok
}

// Cancelled returns the cancelled keys in call order.
func (s *Scheduler) Cancelled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancelled...)
}

// Fire removes the job under key and runs it with the started handler.
func (s *Scheduler) Fire(ctx context.Context, key string) error {
	s.mu.Lock()
	sc, ok := s.once[key]
	delete(s.once, key)
	h := s.handler
	s.mu.Unlock()
	if !ok || h == nil {
		return nil
	}
	return h.HandleJob(ctx, sc.Job)
}

// Timer measures how long a test section takes.
type Timer struct {
	start time.Time
	name  string
}

func NewTimer(name string) *Timer { return &Timer{start: time.Now(), name: name} }

// AssertUnder fails t if more than max elapsed since the timer started.
func (tm *Timer) AssertUnder(t *testing.T, max time.Duration) {
	t.Helper()
	d := time.Since(tm.start)
	if d > max {
		t.Errorf("❌ %s took %v, expected less than %v", tm.name, d, max)
		return
	}
	t.Logf("✅ %s took %v (under %v)", tm.name, d, max)
}
