// Package responses walks a user through the rating questions and stores
// the finished answer anonymously.
package responses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/prompts"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
)

// Entry is the button that opens the flow.
type Entry string

const (
	EntryRate   Entry = "rate"
	EntryAbsent Entry = "absent"
)

// Collector drives the rating flow. Every method returns the reply to show
// the user, also when it returns an error.
type Collector struct {
	store    store.Store
	drafts   DraftStore
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

func NewCollector(st store.Store, drafts DraftStore, now func() time.Time, logger *slog.Logger) *Collector {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		store:    st,
		drafts:   drafts,
		validate: validator.New(),
		now:      now,
		logger:   logger.With("component", "responses"),
	}
}

func fail(err error) (messaging.Message, error) { return prompts.ErrorReply(err), err }

// Begin handles the rate and absent buttons of an invitation.
func (c *Collector) Begin(ctx context.Context, userID, surveyID int64, entry Entry) (messaging.Message, error) {
	approved, err := c.store.IsApproved(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if !approved {
		return fail(models.ErrNotAuthorized)
	}

	sv, err := c.store.GetSurvey(ctx, surveyID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !sv.Active) {
		return fail(models.ErrNoActiveSurvey)
	}
	if err != nil {
		return fail(err)
	}

	tr, err := c.store.GetTracker(ctx, surveyID, userID)
	switch {
	case err == nil && tr.HasResponded:
		return fail(models.ErrAlreadyResponded)
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return fail(err)
	}

	switch entry {
	case EntryAbsent:
		if err := c.store.SaveResponse(ctx, userID, models.AbsentRating(surveyID, c.now().UTC()), nil); err != nil {
			return fail(err)
		}
		c.dropDraft(ctx, userID)
		c.logger.Info("absence recorded", "survey_id", surveyID)
		return prompts.ThanksAbsent(), nil
	case EntryRate:
		d := Draft{
			ID:        uuid.NewString(),
			UserID:    userID,
			SurveyID:  surveyID,
			Step:      StepInterest,
			UpdatedAt: c.now().UTC(),
		}
		if err := c.drafts.Put(ctx, d); err != nil {
			return fail(err)
		}
		return prompts.ScoreQuestion(models.DimInterest), nil
	}
	return fail(fmt.Errorf("unknown entry %q", entry))
}

// Score records one answer and asks the next question.
func (c *Collector) Score(ctx context.Context, userID int64, dim models.Dimension, value int) (messaging.Message, error) {
	if !models.ValidScore(value) {
		return fail(models.ErrInvalidScore)
	}
	d, err := c.draft(ctx, userID)
	if err != nil {
		return fail(err)
	}
	want, ok := stepFor[dim]
	if !ok || d.Step != want {
		return fail(models.ErrInvalidStep)
	}

	var next messaging.Message
	switch dim {
	case models.DimInterest:
		d.Interest, d.Step = value, StepRelevance
		next = prompts.ScoreQuestion(models.DimRelevance)
	case models.DimRelevance:
		d.Relevance, d.Step = value, StepSpiritual
		next = prompts.ScoreQuestion(models.DimSpiritual)
	case models.DimSpiritual:
		d.Spiritual, d.Step = value, StepFeedbackChoice
		next = prompts.FeedbackChoice()
	}
	d.UpdatedAt = c.now().UTC()
	if err := c.drafts.Put(ctx, d); err != nil {
		return fail(err)
	}
	return next, nil
}

// ChooseFeedback handles the "leave feedback" and "skip" buttons.
func (c *Collector) ChooseFeedback(ctx context.Context, userID int64, write bool) (messaging.Message, error) {
	d, err := c.draft(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if d.Step != StepFeedbackChoice && d.Step != StepFeedbackText {
		return fail(models.ErrInvalidStep)
	}
	if !write {
		return c.finalize(ctx, d, nil)
	}
	d.Step = StepFeedbackText
	d.UpdatedAt = c.now().UTC()
	if err := c.drafts.Put(ctx, d); err != nil {
		return fail(err)
	}
	return prompts.FeedbackAsk(), nil
}

// SubmitFeedback handles free text. Without a draft waiting for text it
// returns models.ErrNoDraft and stores nothing.
func (c *Collector) SubmitFeedback(ctx context.Context, userID int64, text string) (messaging.Message, error) {
	d, err := c.draft(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if d.Step != StepFeedbackText {
		return fail(models.ErrNoDraft)
	}
	text = strings.TrimSpace(text)
	if err := c.validate.Var(text, fmt.Sprintf("required,max=%d", prompts.MaxFeedbackLen)); err != nil {
		return fail(models.ErrInvalidFeedback)
	}
	return c.finalize(ctx, d, &text)
}

func (c *Collector) draft(ctx context.Context, userID int64) (Draft, error) {
	d, ok, err := c.drafts.Get(ctx, userID)
	if err != nil {
		return Draft{}, err
	}
	if !ok {
		return Draft{}, models.ErrNoDraft
	}
	return d, nil
}

// finalize writes the rating, optional feedback and tracker flag together.
// On a storage failure the draft stays put so the user can retry.
func (c *Collector) finalize(ctx context.Context, d Draft, text *string) (messaging.Message, error) {
	now := c.now().UTC()
	r := models.Rating{
		SurveyID:        d.SurveyID,
		Interest:        d.Interest,
		Relevance:       d.Relevance,
		SpiritualGrowth: d.Spiritual,
		Attended:        true,
		CreatedAt:       now,
	}
	var fb *models.Feedback
	if text != nil {
		fb = &models.Feedback{SurveyID: d.SurveyID, Text: *text, CreatedAt: now}
	}

	err := c.store.SaveResponse(ctx, d.UserID, r, fb)
	switch {
	case err == nil:
	case models.KindOf(err) == models.KindPersistence:
		c.logger.Error("❌ failed to save response, draft kept", "draft_id", d.ID, "error", err)
		return prompts.RetrySave(d.Step == StepFeedbackText), err
	default:
		c.dropDraft(ctx, d.UserID)
		return fail(err)
	}

	c.dropDraft(ctx, d.UserID)
	c.logger.Info("✅ response saved", "survey_id", d.SurveyID, "feedback", fb != nil)
	if fb != nil {
		return prompts.ThanksDetailed(), nil
	}
	return prompts.Thanks(), nil
}

func (c *Collector) dropDraft(ctx context.Context, userID int64) {
	if err := c.drafts.Delete(ctx, userID); err != nil {
		c.logger.Warn("⚠️ failed to delete draft", "error", err)
	}
}
