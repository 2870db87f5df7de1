package models

import "time"

const (
	MinScore = 1
	MaxScore = 5

	// AbsentScore marks the scores of a "did not attend" rating.
	AbsentScore = 0
)

// Rating is an anonymous answer. It is linked to a survey only.
type Rating struct {
	SurveyID        int64     `bson:"surveyId" json:"surveyId"`
	Interest        int       `bson:"interest" json:"interest"`
	Relevance       int       `bson:"relevance" json:"relevance"`
	SpiritualGrowth int       `bson:"spiritualGrowth" json:"spiritualGrowth"`
	Attended        bool      `bson:"attended" json:"attended"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// AbsentRating returns the sentinel rating written for users who missed the meeting.
func AbsentRating(surveyID int64, at time.Time) Rating {
	return Rating{
		SurveyID:        surveyID,
		Interest:        AbsentScore,
		Relevance:       AbsentScore,
		SpiritualGrowth: AbsentScore,
		Attended:        false,
		CreatedAt:       at,
	}
}

// Feedback is an anonymous free-text comment about a survey.
type Feedback struct {
	SurveyID  int64     `bson:"surveyId" json:"surveyId"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Dimension is one of the three rated aspects of a meeting, in question order.
type Dimension string

const (
	DimInterest  Dimension = "interest"
	DimRelevance Dimension = "relevance"
	DimSpiritual Dimension = "spiritual"
)

// Dimensions lists the questions in the order they are asked.
var Dimensions = []Dimension{DimInterest, DimRelevance, DimSpiritual}

// ValidScore reports whether v is on the 1..5 scale.
func ValidScore(v int) bool { return v >= MinScore && v <= MaxScore }
