package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
)

// Stats renders one survey's statistics as Markdown.
func Stats(st models.SurveyStats) messaging.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Survey #%d statistics*\n\n", st.SurveyID)
	fmt.Fprintf(&b, "👥 Attended: %d\n", st.TotalAttended)
	fmt.Fprintf(&b, "❌ Absent: %d\n\n", st.NotAttended)

	if st.TotalAttended > 0 {
		b.WriteString("⭐️ *Average scores:*\n")
		fmt.Fprintf(&b, "Interest: %.2f/5\n", st.AvgInterest)
		fmt.Fprintf(&b, "Relevance: %.2f/5\n", st.AvgRelevance)
		fmt.Fprintf(&b, "Spiritual growth: %.2f/5\n\n", st.AvgSpiritualGrowth)
	}

	if len(st.Feedbacks) == 0 {
		b.WriteString("💬 No written feedback.\n")
	} else {
		fmt.Fprintf(&b, "💬 *Feedback (%d):*\n\n", len(st.Feedbacks))
		for i, fb := range st.Feedbacks {
			fmt.Fprintf(&b, "%d. %s\n\n", i+1, Escape(fb.Text))
		}
	}
	return messaging.Message{Text: strings.TrimRight(b.String(), "\n"), Markdown: true}
}

// Period names accepted by /graph.
const (
	PeriodMonth = "month"
	PeriodYear  = "year"
	PeriodAll   = "all"
)

// PeriodDays maps a period name to a day count; zero means all time.
func PeriodDays(name string) (int, bool) {
	switch name {
	case PeriodMonth:
		return 30, true
	case PeriodYear:
		return 365, true
	case PeriodAll:
		return 0, true
	}
	return 0, false
}

// StatsUsage is shown for /stats without an id while no survey is active.
func StatsUsage() messaging.Message {
	return text("❌ No active survey. Give an ID: /stats ID")
}

func GraphUsage() messaging.Message {
	return text("Choose a period: /graph month, /graph year or /graph all")
}

// Trend renders per-survey averages as a monospace table.
func Trend(period string, rows []models.PeriodStat, loc *time.Location) messaging.Message {
	if len(rows) == 0 {
		return text("❌ No data for this period.")
	}
	var b strings.Builder
	title := map[string]string{PeriodMonth: "the last month", PeriodYear: "the last year", PeriodAll: "all time"}[period]
	fmt.Fprintf(&b, "📈 *Score trend for %s*\n\n```\n", title)
	fmt.Fprintf(&b, "%-10s %5s %5s %5s %4s\n", "Date", "Int", "Rel", "Spir", "Att")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10s %5.2f %5.2f %5.2f %4d\n",
			r.StartedAt.In(loc).Format("2006-01-02"), r.AvgInterest, r.AvgRelevance, r.AvgSpiritualGrowth, r.AttendedCount)
	}
	b.WriteString("```")
	return messaging.Message{Text: b.String(), Markdown: true}
}
