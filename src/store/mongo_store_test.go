package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// newMongoTestStore connects to MONGO_URI (a replica set) and uses a
// throwaway database that is dropped afterwards.
func newMongoTestStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	name := "survey_test_" + uuid.NewString()[:8]
	s, err := NewMongoStore(ctx, client, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Database(name).Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestMongoSurveyLifecycle(t *testing.T) {
	s := newMongoTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{2, 1} {
		st, err := s.RequestAccess(ctx, models.User{UserID: id, FirstName: "u", Since: t0})
		require.NoError(t, err)
		require.Equal(t, models.AccessQueued, st)
		_, err = s.ApprovePending(ctx, id, t0)
		require.NoError(t, err)
	}
	_, err := s.ApprovePending(ctx, 1, t0)
	assert.ErrorIs(t, err, models.ErrNotFound)

	sv, enrolled, err := s.CreateSurvey(ctx, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, enrolled)

	_, _, err = s.CreateSurvey(ctx, t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, models.ErrAlreadyActive)

	require.NoError(t, s.SaveResponse(ctx, 1, models.Rating{SurveyID: sv.ID, Interest: 5, Relevance: 5, SpiritualGrowth: 5, Attended: true, CreatedAt: t0}, nil))
	assert.ErrorIs(t, s.SaveResponse(ctx, 1, models.AbsentRating(sv.ID, t0), nil), models.ErrAlreadyResponded)
	require.NoError(t, s.SaveResponse(ctx, 2, models.AbsentRating(sv.ID, t0), nil))
	require.NoError(t, s.SaveResponse(ctx, 3, models.Rating{SurveyID: sv.ID, Interest: 1, Relevance: 1, SpiritualGrowth: 1, Attended: true, CreatedAt: t0},
		&models.Feedback{SurveyID: sv.ID, Text: "ok", CreatedAt: t0}))

	st, err := s.SurveyStats(ctx, sv.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, st.AvgInterest, 1e-9)
	assert.Equal(t, 2, st.TotalAttended)
	assert.Equal(t, 1, st.NotAttended)
	assert.Len(t, st.Feedbacks, 1)

	changed, err := s.MarkReminded(ctx, sv.ID, 1)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.MarkReminded(ctx, sv.ID, 1)
	require.NoError(t, err)
	assert.False(t, changed)

	closed, err := s.CloseSurvey(ctx, sv.ID)
	require.NoError(t, err)
	assert.True(t, closed)
	closed, err = s.CloseSurvey(ctx, sv.ID)
	require.NoError(t, err)
	assert.False(t, closed)

	period, err := s.PeriodStats(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, period, 1)
	assert.Equal(t, 2, period[0].AttendedCount)
	assert.Equal(t, 1, period[0].NotAttendedCount)
	assert.InDelta(t, 3.0, period[0].AvgRelevance, 1e-9)

	next, _, err := s.CreateSurvey(ctx, t0.Add(time.Hour), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Greater(t, next.ID, sv.ID)
}

func TestMongoReminderTargetsSkipRemovedUsers(t *testing.T) {
	s := newMongoTestStore(t)
	ctx := context.Background()

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)

	for _, id := range []int64{1, 2} {
		_, err := s.RequestAccess(ctx, models.User{UserID: id, FirstName: "u", Since: t0})
		require.NoError(t, err)
		_, err = s.ApprovePending(ctx, id, t0)
		require.NoError(t, err)
	}
	sv, _, err := s.CreateSurvey(ctx, t0, t0.Add(time.Hour))
	require.NoError(t, err)

	removed, err := s.DeleteApproved(ctx, 2)
	require.NoError(t, err)
	require.True(t, removed)

	targets, err := s.ListReminderTargets(ctx, sv.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, targets)
}
