package prompts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data string
		want Callback
	}{
		{"approve_123", Callback{Action: ActApprove, N: 123}},
		{"reject_9", Callback{Action: ActReject, N: 9}},
		{"rate_4", Callback{Action: ActRate, N: 4}},
		{"absent_4", Callback{Action: ActAbsent, N: 4}},
		{"interest_5", Callback{Action: ActInterest, N: 5}},
		{"relevance_1", Callback{Action: ActRelevance, N: 1}},
		{"spiritual_3", Callback{Action: ActSpiritual, N: 3}},
		{"feedback_yes", Callback{Action: ActFeedback, Yes: true}},
		{"feedback_no", Callback{Action: ActFeedback}},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, err := ParseCallback(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "approve", "approve_x", "vote_1", "rate_-1", "feedback_maybe"} {
		_, err := ParseCallback(bad)
		assert.ErrorIs(t, err, models.ErrInvalidID, bad)
	}
}

func TestCallbackDimension(t *testing.T) {
	d, ok := Callback{Action: ActSpiritual}.Dimension()
	assert.True(t, ok)
	assert.Equal(t, models.DimSpiritual, d)

	_, ok = Callback{Action: ActRate}.Dimension()
	assert.False(t, ok)
}

func TestScoreQuestionButtons(t *testing.T) {
	msg := ScoreQuestion(models.DimRelevance)
	require.Len(t, msg.Keyboard, 1)
	require.Len(t, msg.Keyboard[0], 5)
	assert.Equal(t, "relevance_1", msg.Keyboard[0][0].Data)
	assert.Equal(t, "relevance_5", msg.Keyboard[0][4].Data)
	assert.True(t, msg.Markdown)
}

func TestInvitationKeyboard(t *testing.T) {
	msg := Invitation(12, 18, 1)
	assert.Contains(t, msg.Text, "18 hours")
	assert.Contains(t, msg.Text, "1 hour before")
	assert.Equal(t, "rate_12", msg.Keyboard[0][0].Data)
	assert.Equal(t, "absent_12", msg.Keyboard[1][0].Data)
}

func TestStatsRendering(t *testing.T) {
	msg := Stats(models.SurveyStats{
		SurveyID: 3, AvgInterest: 3, AvgRelevance: 4.5, AvgSpiritualGrowth: 2.33,
		TotalAttended: 2, NotAttended: 1,
		Feedbacks: []models.FeedbackItem{{Text: "loved *it*"}},
	})
	assert.Contains(t, msg.Text, "Attended: 2")
	assert.Contains(t, msg.Text, "Relevance: 4.50/5")
	assert.Contains(t, msg.Text, `1. loved \*it\*`)

	empty := Stats(models.SurveyStats{SurveyID: 4, NotAttended: 2})
	assert.NotContains(t, empty.Text, "Average scores")
	assert.Contains(t, empty.Text, "No written feedback")
}

func TestTrend(t *testing.T) {
	assert.Contains(t, Trend(PeriodMonth, nil, time.UTC).Text, "No data")

	msg := Trend(PeriodYear, []models.PeriodStat{{
		SurveyID: 1, StartedAt: time.Date(2025, 3, 9, 19, 0, 0, 0, time.UTC),
		AvgInterest: 4, AvgRelevance: 3.5, AvgSpiritualGrowth: 5, AttendedCount: 12,
	}}, time.UTC)
	assert.Contains(t, msg.Text, "the last year")
	assert.Contains(t, msg.Text, "2025-03-09  4.00  3.50  5.00   12")

	days, ok := PeriodDays("all")
	assert.True(t, ok)
	assert.Zero(t, days)
	_, ok = PeriodDays("week")
	assert.False(t, ok)
}

func TestErrorReply(t *testing.T) {
	assert.Contains(t, ErrorReply(models.ErrAlreadyResponded).Text, "already answered")
	assert.Contains(t, ErrorReply(models.Persistence("save", errors.New("locked"))).Text, "try again")
	assert.Contains(t, ErrorReply(errors.New("boom")).Text, "Something went wrong")
}
