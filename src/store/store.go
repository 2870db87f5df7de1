// Package store persists users, surveys, anonymous ratings and response
// tracking. Every implementation enforces the single-active-survey rule
// itself, so callers never need to lock around CreateSurvey.
package store

import (
	"context"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// Store is the durable state shared by all bot components.
//
// Errors are either domain sentinels from the models package (ErrNotFound,
// ErrAlreadyActive, ...) or *models.PersistenceError.
type Store interface {
	// RequestAccess atomically classifies u: approved users are left alone,
	// pending users get their profile refreshed, unknown users are queued.
	RequestAccess(ctx context.Context, u models.User) (models.AccessStatus, error)
	ListPending(ctx context.Context) ([]models.User, error)
	ListApproved(ctx context.Context) ([]models.User, error)
	IsPending(ctx context.Context, userID int64) (bool, error)
	IsApproved(ctx context.Context, userID int64) (bool, error)
	// ApprovePending moves a pending user to the approved table in one
	// transaction. It returns models.ErrNotFound if userID is not pending.
	ApprovePending(ctx context.Context, userID int64, at time.Time) (models.User, error)
	DeletePending(ctx context.Context, userID int64) (bool, error)
	DeleteApproved(ctx context.Context, userID int64) (bool, error)

	// CreateSurvey inserts an active survey and snapshots every approved user
	// into a tracker row. It fails with models.ErrAlreadyActive if another
	// survey is active. The returned ids are the snapshot.
	CreateSurvey(ctx context.Context, startedAt, deadlineAt time.Time) (models.Survey, []int64, error)
	ActiveSurvey(ctx context.Context) (models.Survey, error)
	GetSurvey(ctx context.Context, id int64) (models.Survey, error)
	// CloseSurvey flips active to false and reports whether this call did it.
	CloseSurvey(ctx context.Context, id int64) (bool, error)

	// EnsureTracker creates the (survey, user) tracker if missing and reports
	// whether it was created.
	EnsureTracker(ctx context.Context, surveyID, userID int64) (bool, error)
	GetTracker(ctx context.Context, surveyID, userID int64) (models.ResponseTracker, error)
	ListReminderTargets(ctx context.Context, surveyID int64) ([]int64, error)
	// MarkReminded sets reminded=true if it was false and reports whether it
	// changed the row.
	MarkReminded(ctx context.Context, surveyID, userID int64) (bool, error)

	// SaveResponse writes r, the optional feedback and the tracker flag in one
	// transaction. The survey must be active and userID must not have
	// responded yet.
	SaveResponse(ctx context.Context, userID int64, r models.Rating, fb *models.Feedback) error

	SurveyStats(ctx context.Context, surveyID int64) (models.SurveyStats, error)
	// PeriodStats aggregates closed surveys started at or after since. A zero
	// since covers all time.
	PeriodStats(ctx context.Context, since time.Time) ([]models.PeriodStat, error)
	ListRatings(ctx context.Context, surveyID int64) ([]models.Rating, error)
	ListFeedback(ctx context.Context, surveyID int64) ([]models.Feedback, error)

	Close() error
}

// checkRating rejects scores outside the scale. Absent ratings must carry
// the sentinel in every field.
func checkRating(r models.Rating) error {
	for _, v := range []int{r.Interest, r.Relevance, r.SpiritualGrowth} {
		if r.Attended && !models.ValidScore(v) {
			return models.ErrInvalidScore
		}
		if !r.Attended && v != models.AbsentScore {
			return models.ErrInvalidScore
		}
	}
	return nil
}
