package prompts

import (
	"strconv"
	"strings"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// Action is the prefix of inline button callback data.
type Action string

const (
	ActApprove   Action = "approve"
	ActReject    Action = "reject"
	ActRate      Action = "rate"
	ActAbsent    Action = "absent"
	ActInterest  Action = Action(models.DimInterest)
	ActRelevance Action = Action(models.DimRelevance)
	ActSpiritual Action = Action(models.DimSpiritual)
	ActFeedback  Action = "feedback"
)

const (
	FeedbackYes = "feedback_yes"
	FeedbackNo  = "feedback_no"
)

// Callback is parsed button data such as "approve_123" or "feedback_no".
type Callback struct {
	Action Action
	// N is the user id, survey id or score depending on Action.
	N   int64
	Yes bool
}

// Dimension returns the rated dimension for score actions.
func (c Callback) Dimension() (models.Dimension, bool) {
	switch c.Action {
	case ActInterest, ActRelevance, ActSpiritual:
		return models.Dimension(c.Action), true
	}
	return "", false
}

// Data formats callback data for a numeric action.
func Data(a Action, n int64) string {
	return string(a) + "_" + strconv.FormatInt(n, 10)
}

// ParseCallback decodes button data. Malformed data is models.ErrInvalidID.
func ParseCallback(data string) (Callback, error) {
	switch data {
	case FeedbackYes:
		return Callback{Action: ActFeedback, Yes: true}, nil
	case FeedbackNo:
		return Callback{Action: ActFeedback}, nil
	}

	prefix, rest, ok := strings.Cut(data, "_")
	if !ok {
		return Callback{}, models.ErrInvalidID
	}
	a := Action(prefix)
	switch a {
	case ActApprove, ActReject, ActRate, ActAbsent, ActInterest, ActRelevance, ActSpiritual:
	default:
		return Callback{}, models.ErrInvalidID
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n < 0 {
		return Callback{}, models.ErrInvalidID
	}
	return Callback{Action: a, N: n}, nil
}
