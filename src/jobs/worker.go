package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Handler executes jobs. The survey manager implements it.
type Handler interface {
	HandleJob(ctx context.Context, j Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, j Job) error

func (f HandlerFunc) HandleJob(ctx context.Context, j Job) error { return f(ctx, j) }

// NewServeMux routes every survey job type to h.
func NewServeMux(h Handler, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	handle := func(ctx context.Context, t *asynq.Task) error {
		j, err := FromTask(t)
		if err != nil {
			logger.Error("❌ payload decode error", "type", t.Type(), "error", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		logger.Debug("🎯 start task handler", "type", j.Type, "survey_id", j.SurveyID)
		return h.HandleJob(ctx, j)
	}
	for _, typ := range []string{TypeReminder, TypeClose, TypeSweep} {
		mux.HandleFunc(typ, handle)
	}
	return mux
}
