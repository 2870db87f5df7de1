// Package jobs defines the deferred survey jobs and their asynq encoding.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Job types.
const (
	TypeReminder = "survey:reminder"
	TypeClose    = "survey:close"
	TypeSweep    = "survey:sweep"
)

// Job is one unit of deferred work. SurveyID is zero for the sweep.
type Job struct {
	Type     string `json:"type"`
	SurveyID int64  `json:"survey_id,omitempty"`
}

func Reminder(surveyID int64) Job { return Job{Type: TypeReminder, SurveyID: surveyID} }

func Close(surveyID int64) Job { return Job{Type: TypeClose, SurveyID: surveyID} }

func Sweep() Job { return Job{Type: TypeSweep} }

// ReminderKey and CloseKey name the one-shot jobs of a survey so they can be
// cancelled later.
func ReminderKey(surveyID int64) string { return fmt.Sprintf("survey:%d:reminder", surveyID) }

func CloseKey(surveyID int64) string { return fmt.Sprintf("survey:%d:close", surveyID) }

type payload struct {
	SurveyID int64 `json:"survey_id"`
}

// NewTask encodes j as an asynq task.
func NewTask(j Job) (*asynq.Task, error) {
	switch j.Type {
	case TypeReminder, TypeClose, TypeSweep:
	default:
		return nil, fmt.Errorf("unknown job type %q", j.Type)
	}
	b, err := json.Marshal(payload{SurveyID: j.SurveyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(j.Type, b), nil
}

// FromTask decodes an asynq task back into a Job.
func FromTask(t *asynq.Task) (Job, error) {
	var p payload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return Job{}, fmt.Errorf("decode %s payload: %w", t.Type(), err)
		}
	}
	return Job{Type: t.Type(), SurveyID: p.SurveyID}, nil
}
