package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/testutil"
)

func rating(id int64, i, r, s int) models.Rating {
	return models.Rating{SurveyID: id, Interest: i, Relevance: r, SpiritualGrowth: s, Attended: true, CreatedAt: testutil.T0}
}

func TestStatsForRoundsAndExcludesAbsent(t *testing.T) {
	st := testutil.NewStore(t)
	svc := New(st, testutil.NewClock(testutil.T0).Now)
	ctx := context.Background()

	sv, _, err := st.CreateSurvey(ctx, testutil.T0, testutil.T0.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, st.SaveResponse(ctx, 1, rating(sv.ID, 5, 4, 5), nil))
	require.NoError(t, st.SaveResponse(ctx, 2, rating(sv.ID, 4, 4, 4), nil))
	require.NoError(t, st.SaveResponse(ctx, 3, rating(sv.ID, 4, 5, 4), nil))
	require.NoError(t, st.SaveResponse(ctx, 4, models.AbsentRating(sv.ID, testutil.T0), nil))

	stats, err := svc.StatsFor(ctx, sv.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.33, stats.AvgInterest)
	assert.Equal(t, 4.33, stats.AvgRelevance)
	assert.Equal(t, 4.33, stats.AvgSpiritualGrowth)
	assert.Equal(t, 3, stats.TotalAttended)
	assert.Equal(t, 1, stats.NotAttended)

	_, err = svc.StatsFor(ctx, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.StatsFor(ctx, 0)
	assert.ErrorIs(t, err, models.ErrInvalidID)
}

func TestStatsForPeriod(t *testing.T) {
	st := testutil.NewStore(t)
	now := testutil.T0.AddDate(0, 2, 0)
	svc := New(st, func() time.Time { return now })
	ctx := context.Background()

	for _, started := range []time.Time{testutil.T0, now.AddDate(0, 0, -3)} {
		sv, _, err := st.CreateSurvey(ctx, started, started.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, st.SaveResponse(ctx, 1, rating(sv.ID, 2, 3, 4), nil))
		_, err = st.CloseSurvey(ctx, sv.ID)
		require.NoError(t, err)
	}

	month, err := svc.StatsForPeriod(ctx, 30)
	require.NoError(t, err)
	require.Len(t, month, 1)
	assert.Equal(t, int64(2), month[0].SurveyID)

	all, err := svc.StatsForAllTime(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.StatsForPeriod(ctx, 0)
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)
}

func TestExportCSV(t *testing.T) {
	st := testutil.NewStore(t)
	svc := New(st, nil)
	ctx := context.Background()

	sv, _, err := st.CreateSurvey(ctx, testutil.T0, testutil.T0.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, st.SaveResponse(ctx, 1, rating(sv.ID, 5, 4, 3),
		&models.Feedback{SurveyID: sv.ID, Text: "great, thanks", CreatedAt: testutil.T0}))
	require.NoError(t, st.SaveResponse(ctx, 2, models.AbsentRating(sv.ID, testutil.T0), nil))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, sv.ID, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"rating", "2025-03-09T19:00:00Z", "true", "5", "4", "3", ""}, records[1])
	assert.Equal(t, "false", records[2][2])
	assert.Equal(t, "great, thanks", records[3][6])

	assert.ErrorIs(t, svc.ExportCSV(ctx, 42, &buf), models.ErrNotFound)
}
