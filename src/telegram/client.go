// Package telegram is a small Telegram Bot API client built on fiber's HTTP
// agent. It covers what the bot needs: messages with inline keyboards,
// callback answers, long polling and webhook registration.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	DefaultTimeout = 10 * time.Second
)

// Config configures a Client. Token is required.
type Config struct {
	Token   string
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client calls the Bot API. It implements messaging.Messenger.
type Client struct {
	token    string
	baseURL  string
	timeout  time.Duration
	scrubber *strings.Replacer
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) bool
}

var _ messaging.Messenger = (*Client)(nil)

func New(cfg Config) *Client {
	c := &Client{
		token:   cfg.Token,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		sleep:   sleep,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "telegram")
	c.scrubber = strings.NewReplacer(c.token, "[REDACTED]")
	return c
}

// APIError is a response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call posts args to method and decodes the result into out (if non-nil).
// A 429 answer is retried once after retry_after.
func (c *Client) call(ctx context.Context, method string, args, out any, extra time.Duration) error {
	err := c.do(ctx, method, args, out, extra)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != fiber.StatusTooManyRequests {
		return err
	}
	c.logger.Warn("⚠️ rate limited, waiting", "method", method, "wait", apiErr.RetryAfter)
	if !c.sleep(ctx, apiErr.RetryAfter) {
		return ctx.Err()
	}
	return c.do(ctx, method, args, out, extra)
}

func (c *Client) do(ctx context.Context, method string, args, out any, extra time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout + extra
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	a := fiber.Post(c.baseURL + "/bot" + c.token + "/" + method)
	a.JSON(args).Timeout(timeout)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("telegram %s: %s", method, c.scrubber.Replace(errors.Join(errs...).Error()))
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("telegram %s: status %d: decode response: %w", method, code, err)
	}
	if !resp.OK {
		if resp.ErrorCode == 0 {
			resp.ErrorCode = code
		}
		return &APIError{
			Method:      method,
			Code:        resp.ErrorCode,
			Description: resp.Description,
			RetryAfter:  time.Duration(resp.Parameters.RetryAfter) * time.Second,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type replyMarkup struct {
	InlineKeyboard [][]messaging.Button `json:"inline_keyboard"`
}

type sendMessage struct {
	ChatID      int64        `json:"chat_id"`
	MessageID   int64        `json:"message_id,omitempty"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

func newSendMessage(chatID int64, msg messaging.Message) sendMessage {
	m := sendMessage{ChatID: chatID, Text: msg.Text}
	if msg.Markdown {
		m.ParseMode = "Markdown"
	}
	if len(msg.Keyboard) > 0 {
		m.ReplyMarkup = &replyMarkup{InlineKeyboard: msg.Keyboard}
	}
	return m
}

// Send delivers msg with sendMessage.
func (c *Client) Send(ctx context.Context, chatID int64, msg messaging.Message) error {
	return c.call(ctx, "sendMessage", newSendMessage(chatID, msg), nil, 0)
}

// EditMessageText replaces the text and keyboard of an earlier message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, msg messaging.Message) error {
	m := newSendMessage(chatID, msg)
	m.MessageID = messageID
	return c.call(ctx, "editMessageText", m, nil, 0)
}

// AnswerCallbackQuery stops the button spinner, optionally with a toast.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": queryID,
		"text":              text,
	}, nil, 0)
}

// GetUpdates long-polls for updates with id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	args := map[string]any{
		"offset":          offset,
		"timeout":         int(wait.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", args, &updates, wait); err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers url. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	return c.call(ctx, "setWebhook", map[string]any{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"message", "callback_query"},
	}, nil, 0)
}

// DeleteWebhook switches the bot back to getUpdates.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{}, nil, 0)
}
