// Package bot routes Telegram updates to the access, survey, response and
// report services and sends their replies back.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/config"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/access"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/prompts"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/reports"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/responses"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/surveys"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/telegram"
)

// API is the part of the Bot API the dispatcher talks to.
type API interface {
	messaging.Messenger
	EditMessageText(ctx context.Context, chatID, messageID int64, msg messaging.Message) error
	AnswerCallbackQuery(ctx context.Context, queryID, text string) error
}

type Deps struct {
	API       API
	Access    *access.Service
	Surveys   *surveys.Manager
	Responses *responses.Collector
	Reports   *reports.Service
	Config    *config.Config
	Logger    *slog.Logger
}

// handleTimeout bounds one update, including a survey broadcast.
const handleTimeout = 2 * time.Minute

type command func(ctx context.Context, from telegram.User, args string) ([]messaging.Message, error)

type Bot struct {
	api       API
	access    *access.Service
	surveys   *surveys.Manager
	responses *responses.Collector
	reports   *reports.Service
	cfg       *config.Config
	logger    *slog.Logger
	commands  map[string]command
}

var _ telegram.UpdateHandler = (*Bot)(nil)

func New(d Deps) *Bot {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	b := &Bot{
		api:       d.API,
		access:    d.Access,
		surveys:   d.Surveys,
		responses: d.Responses,
		reports:   d.Reports,
		cfg:       d.Config,
		logger:    d.Logger.With("component", "bot"),
	}
	b.commands = map[string]command{
		"/start":        b.start,
		"/help":         b.help,
		"/pending":      b.admin(b.pending),
		"/start_survey": b.admin(b.startSurvey),
		"/close_survey": b.admin(b.closeSurvey),
		"/stats":        b.admin(b.stats),
		"/graph":        b.admin(b.graph),
		"/remove":       b.admin(b.remove),
	}
	return b
}

// HandleUpdate processes one update under its own deadline. Every failure
// ends in a reply; nothing is returned to the transport.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()
	log := b.logger.With("update_id", u.UpdateID, "correlation_id", uuid.NewString())

	switch {
	case u.CallbackQuery != nil:
		b.onCallback(ctx, log, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		b.onMessage(ctx, log, u.Message)
	}
}

func (b *Bot) onMessage(ctx context.Context, log *slog.Logger, m *telegram.Message) {
	from := *m.From
	var (
		replies []messaging.Message
		err     error
	)
	cmd, args, isCommand := m.Command()
	if isCommand {
		h, ok := b.commands[cmd]
		if !ok {
			h = b.help
		}
		replies, err = h(ctx, from, args)
	} else {
		cmd = "feedback_text"
		var r messaging.Message
		r, err = b.responses.SubmitFeedback(ctx, from.ID, m.Text)
		replies = []messaging.Message{r}
	}

	if err != nil {
		b.logFailure(log, cmd, err)
		if len(replies) == 0 {
			replies = []messaging.Message{prompts.ErrorReply(err)}
		}
	}
	for _, r := range replies {
		if err := messaging.Deliver(ctx, b.api, m.Chat.ID, r, b.cfg.DeliveryTimeout); err != nil {
			log.Warn("⚠️ reply failed", "command", cmd, "error", err)
		}
	}
}

func (b *Bot) onCallback(ctx context.Context, log *slog.Logger, q *telegram.CallbackQuery) {
	if err := b.api.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
		log.Warn("⚠️ answer callback failed", "error", err)
	}

	reply, err := b.callback(ctx, q.From.ID, q.Data)
	if err != nil {
		b.logFailure(log, q.Data, err)
	}

	if q.Message != nil {
		err := b.api.EditMessageText(ctx, q.Message.Chat.ID, q.Message.MessageID, reply)
		if err == nil {
			return
		}
		log.Warn("⚠️ edit failed, sending instead", "error", err)
	}
	if err := messaging.Deliver(ctx, b.api, q.From.ID, reply, b.cfg.DeliveryTimeout); err != nil {
		log.Warn("⚠️ reply failed", "error", err)
	}
}

func (b *Bot) callback(ctx context.Context, userID int64, data string) (messaging.Message, error) {
	cb, err := prompts.ParseCallback(data)
	if err != nil {
		return prompts.ErrorReply(err), err
	}

	switch cb.Action {
	case prompts.ActApprove, prompts.ActReject:
		if err := b.access.RequireAdmin(userID); err != nil {
			return prompts.ErrorReply(err), err
		}
		if cb.Action == prompts.ActApprove {
			if _, err := b.access.Approve(ctx, cb.N); err != nil {
				return prompts.ErrorReply(err), err
			}
			return prompts.ApprovedAdmin(cb.N), nil
		}
		if err := b.access.Reject(ctx, cb.N); err != nil {
			return prompts.ErrorReply(err), err
		}
		return prompts.RejectedAdmin(cb.N), nil
	case prompts.ActRate:
		return b.responses.Begin(ctx, userID, cb.N, responses.EntryRate)
	case prompts.ActAbsent:
		return b.responses.Begin(ctx, userID, cb.N, responses.EntryAbsent)
	case prompts.ActFeedback:
		return b.responses.ChooseFeedback(ctx, userID, cb.Yes)
	}
	if dim, ok := cb.Dimension(); ok {
		return b.responses.Score(ctx, userID, dim, int(cb.N))
	}
	return prompts.ErrorReply(models.ErrInvalidID), models.ErrInvalidID
}

// logFailure keeps user mistakes at info level and everything else as errors.
func (b *Bot) logFailure(log *slog.Logger, action string, err error) {
	switch models.KindOf(err) {
	case models.KindValidation, models.KindStateConflict, models.KindNotFound, models.KindNotAuthorized:
		log.Info("request refused", "action", action, "reason", err.Error())
	default:
		log.Error("❌ request failed", "action", action, "error", err)
	}
}

func one(m messaging.Message) []messaging.Message { return []messaging.Message{m} }

func (b *Bot) admin(next command) command {
	return func(ctx context.Context, from telegram.User, args string) ([]messaging.Message, error) {
		if err := b.access.RequireAdmin(from.ID); err != nil {
			return nil, err
		}
		return next(ctx, from, args)
	}
}

func (b *Bot) start(ctx context.Context, from telegram.User, _ string) ([]messaging.Message, error) {
	if from.ID == b.access.AdminID() {
		return one(prompts.Help(true)), nil
	}
	status, err := b.access.RequestAccess(ctx, from.Profile())
	if err != nil {
		return nil, err
	}
	switch status {
	case models.AccessAlreadyApproved:
		return one(prompts.Welcome(from.FirstName)), nil
	case models.AccessAlreadyPending:
		return one(prompts.RequestPending()), nil
	}
	return one(prompts.RequestSent()), nil
}

func (b *Bot) help(_ context.Context, from telegram.User, _ string) ([]messaging.Message, error) {
	return one(prompts.Help(from.ID == b.access.AdminID())), nil
}

func (b *Bot) pending(ctx context.Context, _ telegram.User, _ string) ([]messaging.Message, error) {
	users, err := b.access.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return one(prompts.NoPending()), nil
	}
	out := make([]messaging.Message, 0, len(users))
	for _, u := range users {
		out = append(out, prompts.PendingEntry(u, b.cfg.Location))
	}
	return out, nil
}

func (b *Bot) startSurvey(ctx context.Context, _ telegram.User, _ string) ([]messaging.Message, error) {
	sv, res, err := b.surveys.Start(ctx)
	if err != nil {
		return nil, err
	}
	return one(prompts.SurveyStarted(sv, res, b.cfg.DeadlineHours, b.cfg.ReminderLeadHours, b.cfg.Location)), nil
}

func (b *Bot) closeSurvey(ctx context.Context, _ telegram.User, _ string) ([]messaging.Message, error) {
	sv, err := b.surveys.CloseActive(ctx)
	if err != nil {
		return nil, err
	}
	return one(prompts.SurveyClosedManual(sv.ID)), nil
}

func (b *Bot) stats(ctx context.Context, _ telegram.User, args string) ([]messaging.Message, error) {
	var id int64
	if args == "" {
		sv, err := b.surveys.Active(ctx)
		if err != nil {
			if models.KindOf(err) == models.KindStateConflict {
				return one(prompts.StatsUsage()), nil
			}
			return nil, err
		}
		id = sv.ID
	} else {
		n, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			return nil, models.ErrInvalidID
		}
		id = n
	}
	st, err := b.reports.StatsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return one(prompts.Stats(st)), nil
}

func (b *Bot) graph(ctx context.Context, _ telegram.User, args string) ([]messaging.Message, error) {
	days, ok := prompts.PeriodDays(args)
	if !ok {
		return one(prompts.GraphUsage()), nil
	}
	var (
		rows []models.PeriodStat
		err  error
	)
	if days == 0 {
		rows, err = b.reports.StatsForAllTime(ctx)
	} else {
		rows, err = b.reports.StatsForPeriod(ctx, days)
	}
	if err != nil {
		return nil, err
	}
	return one(prompts.Trend(args, rows, b.cfg.Location)), nil
}

func (b *Bot) remove(ctx context.Context, _ telegram.User, args string) ([]messaging.Message, error) {
	if args == "" {
		return one(prompts.RemoveUsage()), nil
	}
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	ok, err := b.access.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	return one(prompts.Removed(id, ok)), nil
}
