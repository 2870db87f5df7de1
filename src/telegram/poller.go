package telegram

import (
	"context"
	"log/slog"
	"time"
)

// UpdateHandler processes one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u Update)
}

type UpdateHandlerFunc func(ctx context.Context, u Update)

func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, u Update) { f(ctx, u) }

type updateSource interface {
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error)
}

// Poller feeds getUpdates results to a handler, one update at a time, until
// its context is cancelled.
type Poller struct {
	src     updateSource
	handler UpdateHandler
	wait    time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

func NewPoller(c *Client, h UpdateHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		src:     c,
		handler: h,
		wait:    30 * time.Second,
		backoff: 3 * time.Second,
		logger:  logger.With("component", "poller"),
	}
}

// Run blocks until ctx is done. Fetch errors are logged and retried after a
// short pause.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	p.logger.Info("✅ polling for updates")
	for {
		updates, err := p.src.GetUpdates(ctx, offset, p.wait)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			p.logger.Warn("⚠️ getUpdates failed", "error", err)
			if !sleep(ctx, p.backoff) {
				return nil
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, u)
		}
	}
}
