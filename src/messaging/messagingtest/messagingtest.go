// Package messagingtest provides a recording Messenger for tests.
package messagingtest

import (
	"context"
	"errors"
	"sync"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
)

// ErrBlocked is returned for chats registered with Fail.
var ErrBlocked = errors.New("bot was blocked by the user")

// Sent is one recorded delivery.
type Sent struct {
	ChatID int64
	Msg    messaging.Message
}

// Recorder records every successful Send.
type Recorder struct {
	mu     sync.Mutex
	sent   []Sent
	failed map[int64]bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{failed: make(map[int64]bool)}
}

// Fail makes every delivery to chatID fail with ErrBlocked.
func (r *Recorder) Fail(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[chatID] = true
}

func (r *Recorder) Send(ctx context.Context, chatID int64, msg messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed[chatID] {
		return ErrBlocked
	}
	r.sent = append(r.sent, Sent{ChatID: chatID, Msg: msg})
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// To returns the messages delivered to chatID.
func (r *Recorder) To(chatID int64) []messaging.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []messaging.Message
	for _, s := range r.sent {
		if s.ChatID == chatID {
			out = append(out, s.Msg)
		}
	}
	return out
}

// Reset forgets recorded deliveries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
