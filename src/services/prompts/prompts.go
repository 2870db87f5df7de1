// Package prompts builds every user-facing bot message and inline keyboard.
package prompts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

var mdEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Escape quotes user text for Telegram's legacy Markdown.
func Escape(s string) string { return mdEscaper.Replace(s) }

func text(s string) messaging.Message { return messaging.Message{Text: s} }

func entryKeyboard(surveyID int64) [][]messaging.Button {
	return [][]messaging.Button{
		{{Text: "📝 Rate", Data: Data(ActRate, surveyID)}},
		{{Text: "❌ I missed the meeting", Data: Data(ActAbsent, surveyID)}},
	}
}

// Invitation is broadcast when a survey starts.
func Invitation(surveyID int64, deadlineHours, leadHours int) messaging.Message {
	return messaging.Message{
		Text: fmt.Sprintf("🙏 Hi! Please rate the youth meeting.\n\n"+
			"You have %d hours to answer.\n"+
			"A reminder comes %s before the end.", deadlineHours, hours(leadHours)),
		Keyboard: entryKeyboard(surveyID),
	}
}

// Reminder goes to users who have not answered yet.
func Reminder(surveyID int64, leadHours int) messaging.Message {
	return messaging.Message{
		Text: fmt.Sprintf("⏰ Reminder: you have %s left to rate the youth meeting!\n\n"+
			"Please don't forget to leave your feedback.", hours(leadHours)),
		Keyboard: entryKeyboard(surveyID),
	}
}

// LateInvitation is sent to a user approved while a survey is running.
func LateInvitation(surveyID int64, deadline time.Time, loc *time.Location) messaging.Message {
	return messaging.Message{
		Text: fmt.Sprintf("🙏 A survey about the last youth meeting is open until %s.\n\nPlease rate it.",
			deadline.In(loc).Format("Mon 02 Jan 15:04")),
		Keyboard: entryKeyboard(surveyID),
	}
}

func hours(n int) string {
	if n == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", n)
}

// Access gate.

func Welcome(firstName string) messaging.Message {
	return text(fmt.Sprintf("Hi, %s! You already have access.\n\n"+
		"After every youth meeting you will get a short survey.", firstName))
}

func RequestSent() messaging.Message {
	return text("Your access request was sent to the administrator. Please wait for approval!")
}

func RequestPending() messaging.Message {
	return text("Your request is already with the administrator. Please wait for approval!")
}

func AccessRequested(u models.User) messaging.Message {
	username := "not set"
	if u.Username != "" {
		username = "@" + u.Username
	}
	return text(fmt.Sprintf("🔔 New access request:\n\n"+
		"Name: %s\nUsername: %s\nID: %d\n\n"+
		"Use /pending to review all requests.", u.DisplayName(), username, u.UserID))
}

func Approved() messaging.Message {
	return text("🎉 Your request was approved! You will now get surveys after youth meetings.")
}

func Rejected() messaging.Message {
	return text("Sorry, your access request was declined.")
}

func ApprovedAdmin(userID int64) messaging.Message {
	return text(fmt.Sprintf("✅ User %d approved!", userID))
}

func RejectedAdmin(userID int64) messaging.Message {
	return text(fmt.Sprintf("❌ Request of user %d declined.", userID))
}

func Removed(userID int64, ok bool) messaging.Message {
	if !ok {
		return text(fmt.Sprintf("User %d is not in the approved list.", userID))
	}
	return text(fmt.Sprintf("🗑 User %d removed.", userID))
}

func RemoveUsage() messaging.Message { return text("Usage: /remove ID") }

func NoPending() messaging.Message { return text("No users are waiting for approval.") }

// PendingEntry shows one applicant with approve and reject buttons.
func PendingEntry(u models.User, loc *time.Location) messaging.Message {
	username := ""
	if u.Username != "" {
		username = " (@" + u.Username + ")"
	}
	return messaging.Message{
		Text: fmt.Sprintf("👤 %s%s\nID: %d\nRequested: %s",
			u.DisplayName(), username, u.UserID, u.Since.In(loc).Format("2006-01-02 15:04")),
		Keyboard: [][]messaging.Button{{
			{Text: "✅ Approve", Data: Data(ActApprove, u.UserID)},
			{Text: "❌ Reject", Data: Data(ActReject, u.UserID)},
		}},
	}
}

// Survey lifecycle.

func SurveyStarted(sv models.Survey, res messaging.BroadcastResult, deadlineHours, leadHours int, loc *time.Location) messaging.Message {
	msg := fmt.Sprintf("✅ Survey started! ID: %d\nSent to %d users.", sv.ID, res.Sent)
	if res.Failed > 0 {
		msg += fmt.Sprintf(" Failed: %d.", res.Failed)
	}
	msg += fmt.Sprintf("\n\nDeadline: %d hours (%s)\nThe reminder goes out %s before the end.",
		deadlineHours, sv.DeadlineAt.In(loc).Format("Mon 02 Jan 15:04"), hours(leadHours))
	return text(msg)
}

func SurveyClosedAuto(surveyID int64) messaging.Message {
	return text(fmt.Sprintf("⏱ Survey #%d was closed automatically.\n\n"+
		"Use /stats %d to see the results.", surveyID, surveyID))
}

func SurveyClosedManual(surveyID int64) messaging.Message {
	return text(fmt.Sprintf("✅ Survey #%d closed manually.\n\n"+
		"Use /stats %d to see the results.", surveyID, surveyID))
}

// Rating flow.

var scoreQuestions = map[models.Dimension]string{
	models.DimInterest:  "📊 Rate how *interesting* the meeting was, 1 to 5:\n\n1 - Boring\n5 - Very interesting",
	models.DimRelevance: "📊 Rate how *relevant* it was for you, 1 to 5:\n\n1 - Not relevant at all\n5 - Very relevant",
	models.DimSpiritual: "📊 Rate how *helpful for spiritual growth* it was, 1 to 5:\n\n1 - Not helpful at all\n5 - Very helpful",
}

// ScoreQuestion asks for one dimension with a row of 1..5 buttons.
func ScoreQuestion(d models.Dimension) messaging.Message {
	row := make([]messaging.Button, 0, models.MaxScore)
	for i := models.MinScore; i <= models.MaxScore; i++ {
		row = append(row, messaging.Button{Text: fmt.Sprint(i), Data: Data(Action(d), int64(i))})
	}
	return messaging.Message{Text: scoreQuestions[d], Markdown: true, Keyboard: [][]messaging.Button{row}}
}

func FeedbackChoice() messaging.Message {
	return messaging.Message{
		Text: "✅ Thanks for the scores!\n\nWould you like to leave written feedback? (3-4 sentences)",
		Keyboard: [][]messaging.Button{
			{{Text: "✍️ Leave feedback", Data: FeedbackYes}},
			{{Text: "⏭ Skip", Data: FeedbackNo}},
		},
	}
}

func FeedbackAsk() messaging.Message { return text("✍️ Write your feedback (3-4 sentences):") }

func Thanks() messaging.Message { return text("✅ Thanks for your feedback! 🙏") }

func ThanksDetailed() messaging.Message { return text("✅ Thanks for the detailed feedback! 🙏") }

func ThanksAbsent() messaging.Message {
	return text("✅ Thanks for answering! Hope to see you at the next youth meeting! 🙏")
}

// RetrySave tells the user the answer was kept and can be resubmitted.
func RetrySave(awaitingText bool) messaging.Message {
	if awaitingText {
		return text("⚠️ Could not save your answer. Please send your feedback again.")
	}
	return messaging.Message{
		Text: "⚠️ Could not save your answer. Please press the button again.",
		Keyboard: [][]messaging.Button{
			{{Text: "✍️ Leave feedback", Data: FeedbackYes}},
			{{Text: "⏭ Skip", Data: FeedbackNo}},
		},
	}
}

// ErrorReply maps a service error to the reply shown in chat.
func ErrorReply(err error) messaging.Message {
	switch {
	case errors.Is(err, models.ErrNotAuthorized):
		return text("You don't have access to this action.")
	case errors.Is(err, models.ErrAlreadyActive):
		return text("❌ A survey is already active! Wait for it to finish or close it with /close_survey")
	case errors.Is(err, models.ErrNoActiveSurvey):
		return text("❌ This survey is closed or no survey is active.")
	case errors.Is(err, models.ErrAlreadyResponded):
		return text("You have already answered this survey. Thank you! 🙏")
	case errors.Is(err, models.ErrNoDraft):
		return text("Something went wrong. Please start the rating again.")
	case errors.Is(err, models.ErrInvalidStep):
		return text("This button is outdated. Please answer the latest question.")
	case errors.Is(err, models.ErrInvalidFeedback):
		return text(fmt.Sprintf("Feedback must be between 1 and %d characters. Please send it again.", MaxFeedbackLen))
	case errors.Is(err, models.ErrInvalidID):
		return text("❌ Invalid ID format.")
	case errors.Is(err, models.ErrNotFound):
		return text("❌ Not found.")
	}
	switch models.KindOf(err) {
	case models.KindValidation:
		return text("❌ Invalid value.")
	case models.KindPersistence:
		return text("⚠️ Could not save right now. Please try again later.")
	}
	return text("⚠️ Something went wrong. Please try again later.")
}

// MaxFeedbackLen is the longest accepted feedback text, in characters.
const MaxFeedbackLen = 4000

// Help lists the commands available to the caller.
func Help(admin bool) messaging.Message {
	if !admin {
		return text("Available commands:\n/start - Start using the bot")
	}
	return messaging.Message{Markdown: true, Text: `🤖 *Administrator commands:*

👥 *Users:*
/pending - Show access requests
/remove ID - Remove an approved user

📊 *Surveys:*
/start\_survey - Start a new survey
/close\_survey - Close the active survey

📈 *Statistics:*
/stats - Statistics of the active survey
/stats ID - Statistics of a given survey
/graph month - Trend for the last month
/graph year - Trend for the last year
/graph all - Trend for all time

❓ /help - Show this message`}
}
