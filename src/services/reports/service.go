// Package reports turns stored ratings into statistics and exports.
package reports

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func New(st store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, now: now}
}

// StatsFor returns the statistics of one survey, active or closed.
func (s *Service) StatsFor(ctx context.Context, surveyID int64) (models.SurveyStats, error) {
	if surveyID <= 0 {
		return models.SurveyStats{}, models.ErrInvalidID
	}
	st, err := s.store.SurveyStats(ctx, surveyID)
	if err != nil {
		return models.SurveyStats{}, err
	}
	st.AvgInterest = models.Round2(st.AvgInterest)
	st.AvgRelevance = models.Round2(st.AvgRelevance)
	st.AvgSpiritualGrowth = models.Round2(st.AvgSpiritualGrowth)
	return st, nil
}

// StatsForPeriod covers closed surveys started in the last days days.
func (s *Service) StatsForPeriod(ctx context.Context, days int) ([]models.PeriodStat, error) {
	if days <= 0 {
		return nil, models.ErrInvalidPeriod
	}
	return s.period(ctx, s.now().AddDate(0, 0, -days))
}

func (s *Service) StatsForAllTime(ctx context.Context) ([]models.PeriodStat, error) {
	return s.period(ctx, time.Time{})
}

func (s *Service) period(ctx context.Context, since time.Time) ([]models.PeriodStat, error) {
	rows, err := s.store.PeriodStats(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodStat, 0, len(rows))
	for _, r := range rows {
		r.AvgInterest = models.Round2(r.AvgInterest)
		r.AvgRelevance = models.Round2(r.AvgRelevance)
		r.AvgSpiritualGrowth = models.Round2(r.AvgSpiritualGrowth)
		out = append(out, r)
	}
	return out, nil
}

var csvHeader = []string{"kind", "created_at", "attended", "interest", "relevance", "spiritual_growth", "text"}

// ExportCSV writes the anonymous ratings of a survey, then its feedback.
// Rows carry no user identifiers.
func (s *Service) ExportCSV(ctx context.Context, surveyID int64, w io.Writer) error {
	if surveyID <= 0 {
		return models.ErrInvalidID
	}
	if _, err := s.store.GetSurvey(ctx, surveyID); err != nil {
		return err
	}
	ratings, err := s.store.ListRatings(ctx, surveyID)
	if err != nil {
		return err
	}
	feedback, err := s.store.ListFeedback(ctx, surveyID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range ratings {
		if err := cw.Write([]string{
			"rating",
			r.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(r.Attended),
			strconv.Itoa(r.Interest),
			strconv.Itoa(r.Relevance),
			strconv.Itoa(r.SpiritualGrowth),
			"",
		}); err != nil {
			return err
		}
	}
	for _, fb := range feedback {
		if err := cw.Write([]string{"feedback", fb.CreatedAt.UTC().Format(time.RFC3339), "", "", "", "", fb.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
