package responses

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/testutil"
)

// flakyStore fails SaveResponse while broken is set.
type flakyStore struct {
	store.Store
	mu     sync.Mutex
	broken bool
}

func (f *flakyStore) setBroken(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = b
}

func (f *flakyStore) SaveResponse(ctx context.Context, userID int64, r models.Rating, fb *models.Feedback) error {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return models.Persistence("sqlite: save response", errors.New("database is locked"))
	}
	return f.Store.SaveResponse(ctx, userID, r, fb)
}

type fixture struct {
	c      *Collector
	store  *flakyStore
	drafts *MemoryDraftStore
	clock  *testutil.Clock
	survey models.Survey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := &flakyStore{Store: testutil.NewStore(t)}
	testutil.Approve(t, st, 1, 2)
	sv, _, err := st.CreateSurvey(context.Background(), testutil.T0, testutil.T0.Add(18*time.Hour))
	require.NoError(t, err)

	clock := testutil.NewClock(testutil.T0.Add(time.Hour))
	drafts := NewMemoryDraftStore(24*time.Hour, clock.Now)
	return &fixture{
		c:      NewCollector(st, drafts, clock.Now, testutil.Logger()),
		store:  st,
		drafts: drafts,
		clock:  clock,
		survey: sv,
	}
}

func (f *fixture) rateThrough(t *testing.T, userID int64, i, r, s int) {
	t.Helper()
	ctx := context.Background()
	msg, err := f.c.Begin(ctx, userID, f.survey.ID, EntryRate)
	require.NoError(t, err)
	assert.Equal(t, "interest_1", msg.Keyboard[0][0].Data)

	msg, err = f.c.Score(ctx, userID, models.DimInterest, i)
	require.NoError(t, err)
	assert.Equal(t, "relevance_1", msg.Keyboard[0][0].Data)

	msg, err = f.c.Score(ctx, userID, models.DimRelevance, r)
	require.NoError(t, err)
	assert.Equal(t, "spiritual_1", msg.Keyboard[0][0].Data)

	msg, err = f.c.Score(ctx, userID, models.DimSpiritual, s)
	require.NoError(t, err)
	assert.Equal(t, "feedback_yes", msg.Keyboard[0][0].Data)
}

func TestRateAndSkipFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rateThrough(t, 1, 4, 3, 5)

	msg, err := f.c.ChooseFeedback(ctx, 1, false)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Thanks")

	ratings, err := f.store.ListRatings(ctx, f.survey.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 4, ratings[0].Interest)
	assert.Equal(t, 3, ratings[0].Relevance)
	assert.Equal(t, 5, ratings[0].SpiritualGrowth)
	assert.True(t, ratings[0].Attended)

	fbs, err := f.store.ListFeedback(ctx, f.survey.ID)
	require.NoError(t, err)
	assert.Empty(t, fbs)

	tr, err := f.store.GetTracker(ctx, f.survey.ID, 1)
	require.NoError(t, err)
	assert.True(t, tr.HasResponded)

	_, ok, _ := f.drafts.Get(ctx, 1)
	assert.False(t, ok, "the draft is discarded")

	_, err = f.c.Begin(ctx, 1, f.survey.ID, EntryRate)
	assert.ErrorIs(t, err, models.ErrAlreadyResponded)
}

func TestRateWithFeedbackText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rateThrough(t, 1, 5, 5, 4)

	msg, err := f.c.ChooseFeedback(ctx, 1, true)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Write your feedback")

	_, err = f.c.SubmitFeedback(ctx, 1, "   ")
	assert.ErrorIs(t, err, models.ErrInvalidFeedback)
	_, err = f.c.SubmitFeedback(ctx, 1, strings.Repeat("я", 4001))
	assert.ErrorIs(t, err, models.ErrInvalidFeedback)

	msg, err = f.c.SubmitFeedback(ctx, 1, "  Loved the worship time.  ")
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "detailed feedback")

	fbs, err := f.store.ListFeedback(ctx, f.survey.ID)
	require.NoError(t, err)
	require.Len(t, fbs, 1)
	assert.Equal(t, "Loved the worship time.", fbs[0].Text)
}

func TestFeedbackAtLimitIsAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rateThrough(t, 1, 1, 1, 1)
	_, err := f.c.ChooseFeedback(ctx, 1, true)
	require.NoError(t, err)

	_, err = f.c.SubmitFeedback(ctx, 1, strings.Repeat("я", 4000))
	require.NoError(t, err)
}

func TestAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.c.Begin(ctx, 2, f.survey.ID, EntryAbsent)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "next youth meeting")

	ratings, err := f.store.ListRatings(ctx, f.survey.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, models.AbsentRating(f.survey.ID, ratings[0].CreatedAt), ratings[0])

	_, err = f.c.Begin(ctx, 2, f.survey.ID, EntryAbsent)
	assert.ErrorIs(t, err, models.ErrAlreadyResponded)
}

func TestBeginRejectsUnapprovedAndClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.c.Begin(ctx, 99, f.survey.ID, EntryRate)
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
	assert.NotEmpty(t, msg.Text)
	_, ok, _ := f.drafts.Get(ctx, 99)
	assert.False(t, ok)

	_, err = f.c.Begin(ctx, 1, f.survey.ID+7, EntryRate)
	assert.ErrorIs(t, err, models.ErrNoActiveSurvey)

	_, err = f.store.CloseSurvey(ctx, f.survey.ID)
	require.NoError(t, err)
	_, err = f.c.Begin(ctx, 1, f.survey.ID, EntryRate)
	assert.ErrorIs(t, err, models.ErrNoActiveSurvey)
}

func TestScoreValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.c.Score(ctx, 1, models.DimInterest, 3)
	assert.ErrorIs(t, err, models.ErrNoDraft)

	_, err = f.c.Begin(ctx, 1, f.survey.ID, EntryRate)
	require.NoError(t, err)

	_, err = f.c.Score(ctx, 1, models.DimInterest, 6)
	assert.ErrorIs(t, err, models.ErrInvalidScore)
	_, err = f.c.Score(ctx, 1, models.DimInterest, 0)
	assert.ErrorIs(t, err, models.ErrInvalidScore)

	_, err = f.c.Score(ctx, 1, models.DimSpiritual, 3)
	assert.ErrorIs(t, err, models.ErrInvalidStep)

	_, err = f.c.ChooseFeedback(ctx, 1, false)
	assert.ErrorIs(t, err, models.ErrInvalidStep, "cannot skip the questions")

	_, err = f.c.Score(ctx, 1, models.DimInterest, 3)
	require.NoError(t, err)
	_, err = f.c.Score(ctx, 1, models.DimInterest, 4)
	assert.ErrorIs(t, err, models.ErrInvalidStep, "a stale button does not overwrite")
}

func TestRateAgainReplacesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.c.Begin(ctx, 1, f.survey.ID, EntryRate)
	require.NoError(t, err)
	_, err = f.c.Score(ctx, 1, models.DimInterest, 2)
	require.NoError(t, err)
	first, _, _ := f.drafts.Get(ctx, 1)

	_, err = f.c.Begin(ctx, 1, f.survey.ID, EntryRate)
	require.NoError(t, err)
	second, ok, _ := f.drafts.Get(ctx, 1)
	require.True(t, ok)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StepInterest, second.Step)
	assert.Zero(t, second.Interest)
}

func TestTextWithoutDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.c.SubmitFeedback(ctx, 1, "hello")
	assert.ErrorIs(t, err, models.ErrNoDraft)
	assert.Contains(t, msg.Text, "start the rating again")

	f.rateThrough(t, 1, 3, 3, 3)
	_, err = f.c.SubmitFeedback(ctx, 1, "too early")
	assert.ErrorIs(t, err, models.ErrNoDraft, "text before choosing to write is ignored")

	ratings, err := f.store.ListRatings(ctx, f.survey.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)
}

func TestExpiredDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.c.Begin(ctx, 1, f.survey.ID, EntryRate)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.c.Score(ctx, 1, models.DimInterest, 3)
	assert.ErrorIs(t, err, models.ErrNoDraft)
}

func TestPersistenceFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rateThrough(t, 1, 4, 4, 4)
	_, err := f.c.ChooseFeedback(ctx, 1, true)
	require.NoError(t, err)

	f.store.setBroken(true)
	msg, err := f.c.SubmitFeedback(ctx, 1, "good")
	assert.Equal(t, models.KindPersistence, models.KindOf(err))
	assert.Contains(t, msg.Text, "send your feedback again")

	d, ok, _ := f.drafts.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, StepFeedbackText, d.Step)
	assert.Equal(t, 4, d.Spiritual)

	f.store.setBroken(false)
	_, err = f.c.SubmitFeedback(ctx, 1, "good")
	require.NoError(t, err)

	ratings, err := f.store.ListRatings(ctx, f.survey.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, 1)
}

func TestSkipRetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rateThrough(t, 1, 2, 2, 2)

	f.store.setBroken(true)
	msg, err := f.c.ChooseFeedback(ctx, 1, false)
	assert.Error(t, err)
	assert.Equal(t, "feedback_no", msg.Keyboard[1][0].Data)

	f.store.setBroken(false)
	_, err = f.c.ChooseFeedback(ctx, 1, false)
	require.NoError(t, err)
}

func TestSurveyClosedMidDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rateThrough(t, 1, 5, 5, 5)

	_, err := f.store.CloseSurvey(ctx, f.survey.ID)
	require.NoError(t, err)

	_, err = f.c.ChooseFeedback(ctx, 1, false)
	assert.ErrorIs(t, err, models.ErrNoActiveSurvey)
	_, ok, _ := f.drafts.Get(ctx, 1)
	assert.False(t, ok)
}
