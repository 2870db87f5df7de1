package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/testutil"
)

const testToken = "123456:secret-token"

type call struct {
	Path string
	Body map[string]any
}

// fakeAPI answers Bot API calls with canned bodies, in order.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	replies []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.calls = append(f.calls, call{Path: r.URL.Path, Body: body})
	reply := `{"ok":true,"result":true}`
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(reply, `"error_code":429`) {
		w.WriteHeader(http.StatusTooManyRequests)
	}
	_, _ = io.WriteString(w, reply)
}

func (f *fakeAPI) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestClient(t *testing.T, replies ...string) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{replies: replies}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := New(Config{Token: testToken, BaseURL: srv.URL, Timeout: 2 * time.Second, Logger: testutil.Logger()})
	return c, api
}

func TestSendMessage(t *testing.T) {
	c, api := newTestClient(t)
	msg := messaging.Message{
		Text:     "*hi*",
		Markdown: true,
		Keyboard: [][]messaging.Button{{{Text: "Rate", Data: "rate_1"}}},
	}
	require.NoError(t, c.Send(context.Background(), 42, msg))

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "/bot"+testToken+"/sendMessage", calls[0].Path)
	assert.EqualValues(t, 42, calls[0].Body["chat_id"])
	assert.Equal(t, "Markdown", calls[0].Body["parse_mode"])
	kb := calls[0].Body["reply_markup"].(map[string]any)["inline_keyboard"].([]any)
	btn := kb[0].([]any)[0].(map[string]any)
	assert.Equal(t, "rate_1", btn["callback_data"])
}

func TestPlainMessageOmitsParseMode(t *testing.T) {
	c, api := newTestClient(t)
	require.NoError(t, c.Send(context.Background(), 1, messaging.Message{Text: "a_b"}))
	_, ok := api.recorded()[0].Body["parse_mode"]
	assert.False(t, ok)
	_, ok = api.recorded()[0].Body["reply_markup"]
	assert.False(t, ok)
}

func TestRetryOnceWhenRateLimited(t *testing.T) {
	limited := `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`
	c, api := newTestClient(t, limited)
	var waited time.Duration
	c.sleep = func(_ context.Context, d time.Duration) bool { waited = d; return true }

	require.NoError(t, c.Send(context.Background(), 1, messaging.Message{Text: "x"}))
	assert.Equal(t, 3*time.Second, waited)
	assert.Len(t, api.recorded(), 2)
}

func TestRateLimitedTwiceFails(t *testing.T) {
	limited := `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":1}}`
	c, api := newTestClient(t, limited, limited)
	c.sleep = func(context.Context, time.Duration) bool { return true }

	err := c.Send(context.Background(), 1, messaging.Message{Text: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Code)
	assert.Len(t, api.recorded(), 2)
}

func TestAPIErrorIsNotRetried(t *testing.T) {
	c, api := newTestClient(t, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	err := c.Send(context.Background(), 1, messaging.Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.Len(t, api.recorded(), 1)
}

func TestTransportErrorHidesToken(t *testing.T) {
	c := New(Config{Token: testToken, BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Logger: testutil.Logger()})
	err := c.Send(context.Background(), 1, messaging.Message{Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestGetUpdates(t *testing.T) {
	c, api := newTestClient(t, `{"ok":true,"result":[
		{"update_id":7,"message":{"message_id":1,"from":{"id":5,"first_name":"Ann"},"chat":{"id":5,"type":"private"},"text":"/start"}},
		{"update_id":8,"callback_query":{"id":"q1","from":{"id":5,"first_name":"Ann"},"data":"rate_3"}}
	]}`)

	updates, err := c.GetUpdates(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, "rate_3", updates[1].CallbackQuery.Data)
	assert.EqualValues(t, 7, api.recorded()[0].Body["offset"])
}

func TestWebhookCalls(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.SetWebhook(ctx, "https://bot.example.org/telegram/webhook", "s3cret"))
	require.NoError(t, c.DeleteWebhook(ctx))
	require.NoError(t, c.AnswerCallbackQuery(ctx, "q1", ""))
	require.NoError(t, c.EditMessageText(ctx, 5, 9, messaging.Message{Text: "done"}))

	calls := api.recorded()
	require.Len(t, calls, 4)
	assert.Equal(t, "s3cret", calls[0].Body["secret_token"])
	assert.True(t, strings.HasSuffix(calls[1].Path, "/deleteWebhook"))
	assert.Equal(t, "q1", calls[2].Body["callback_query_id"])
	assert.EqualValues(t, 9, calls[3].Body["message_id"])
}

func TestMessageCommand(t *testing.T) {
	m := &Message{Text: "/Stats@youth_bot  12 "}
	cmd, args, ok := m.Command()
	require.True(t, ok)
	assert.Equal(t, "/stats", cmd)
	assert.Equal(t, "12", args)

	_, _, ok = (&Message{Text: "great meeting"}).Command()
	assert.False(t, ok)
}

type fakeSource struct {
	mu      sync.Mutex
	batches [][]Update
	offsets []int64
	cancel  context.CancelFunc
}

func (f *fakeSource) GetUpdates(_ context.Context, offset int64, _ time.Duration) ([]Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if len(f.batches) == 0 {
		f.cancel()
		return nil, context.Canceled
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func TestPollerAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &fakeSource{
		batches: [][]Update{{{UpdateID: 10}, {UpdateID: 11}}, {{UpdateID: 12}}},
		cancel:  cancel,
	}
	var seen []int64
	p := &Poller{
		src:     src,
		handler: UpdateHandlerFunc(func(_ context.Context, u Update) { seen = append(seen, u.UpdateID) }),
		backoff: time.Millisecond,
		logger:  testutil.Logger(),
	}

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, []int64{10, 11, 12}, seen)
	assert.Equal(t, []int64{0, 12, 13}, src.offsets)
}
