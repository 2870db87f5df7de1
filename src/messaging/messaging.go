// Package messaging defines the outbound side of the messaging gateway.
package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// Button is an inline choice. Data is returned verbatim when pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Message is a prompt sent to one chat.
type Message struct {
	Text     string
	Markdown bool
	Keyboard [][]Button
}

// Messenger delivers messages to a chat identified by its Telegram id.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

// BroadcastResult counts per-recipient outcomes of a fan-out.
type BroadcastResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Deliver sends msg to one chat with a bounded timeout. Failures are wrapped
// in models.DeliveryError.
func Deliver(ctx context.Context, m Messenger, chatID int64, msg Message, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := m.Send(ctx, chatID, msg); err != nil {
		return &models.DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// Broadcast delivers msg to every chat in ids except skip. A failure for one
// recipient never stops delivery to the others.
func Broadcast(ctx context.Context, m Messenger, ids []int64, skip int64, msg Message, timeout time.Duration, logger *slog.Logger) BroadcastResult {
	var res BroadcastResult
	for _, id := range ids {
		if id == skip {
			continue
		}
		if err := Deliver(ctx, m, id, msg, timeout); err != nil {
			res.Failed++
			logger.Warn("⚠️ delivery failed", "chat_id", id, "error", err)
			continue
		}
		res.Sent++
	}
	return res
}
