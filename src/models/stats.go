package models

import (
	"math"
	"time"
)

// SurveyStats aggregates the ratings of one survey. Averages cover attended
// ratings only and are zero when nobody attended.
type SurveyStats struct {
	SurveyID           int64          `json:"surveyId"`
	AvgInterest        float64        `json:"avgInterest"`
	AvgRelevance       float64        `json:"avgRelevance"`
	AvgSpiritualGrowth float64        `json:"avgSpiritualGrowth"`
	TotalAttended      int            `json:"totalAttended"`
	NotAttended        int            `json:"notAttended"`
	Feedbacks          []FeedbackItem `json:"feedbacks"`
}

// FeedbackItem is one feedback text with its timestamp.
type FeedbackItem struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// PeriodStat is the per-survey aggregate used for trend reports.
type PeriodStat struct {
	SurveyID           int64     `json:"surveyId"`
	StartedAt          time.Time `json:"startedAt"`
	AvgInterest        float64   `json:"avgInterest"`
	AvgRelevance       float64   `json:"avgRelevance"`
	AvgSpiritualGrowth float64   `json:"avgSpiritualGrowth"`
	AttendedCount      int       `json:"attendedCount"`
	NotAttendedCount   int       `json:"notAttendedCount"`
}

// Round2 rounds to two decimals the way reports display averages.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
