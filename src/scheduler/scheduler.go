// Package scheduler runs the deferred reminder and close jobs of a survey
// and the periodic sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/jobs"
)

// Scheduler defers jobs by key. Cancelling a key that is not scheduled (or
// already ran) is not an error.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, key string, delay time.Duration, j jobs.Job) error
	Cancel(ctx context.Context, key string) error
	ScheduleRepeating(interval time.Duration, j jobs.Job) error
	// Start begins executing due jobs with h.
	Start(h jobs.Handler) error
	Shutdown()
}
