package models

import "time"

// Survey is one questionnaire round tied to one youth meeting.
type Survey struct {
	ID         int64     `bson:"_id" json:"id"`
	StartedAt  time.Time `bson:"startedAt" json:"startedAt"`
	DeadlineAt time.Time `bson:"deadlineAt" json:"deadlineAt"`
	Active     bool      `bson:"active" json:"active"`
}

// Expired reports whether the deadline has passed at now.
func (s Survey) Expired(now time.Time) bool {
	return !now.Before(s.DeadlineAt)
}

// CloseReason records who closed a survey.
type CloseReason string

const (
	CloseManual   CloseReason = "manual"
	CloseDeadline CloseReason = "deadline" // one-shot close callback
	CloseSweep    CloseReason = "sweep"    // periodic safety net
)

// ResponseTracker records whether a user answered or was reminded about a
// survey. It never references the content of the answer.
type ResponseTracker struct {
	SurveyID     int64 `bson:"surveyId" json:"surveyId"`
	UserID       int64 `bson:"userId" json:"userId"`
	HasResponded bool  `bson:"hasResponded" json:"hasResponded"`
	Reminded     bool  `bson:"reminded" json:"reminded"`
}
