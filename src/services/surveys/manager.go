// Package surveys runs the survey lifecycle: start, reminders, close and the
// periodic sweep that closes overdue surveys.
package surveys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/config"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/jobs"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/scheduler"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/prompts"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/reports"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
)

// Deps wires a Manager. Now and Logger are optional.
type Deps struct {
	Store     store.Store
	Messenger messaging.Messenger
	Scheduler scheduler.Scheduler
	Reports   *reports.Service
	Config    *config.Config
	Now       func() time.Time
	Logger    *slog.Logger
}

type Manager struct {
	store   store.Store
	msg     messaging.Messenger
	sched   scheduler.Scheduler
	reports *reports.Service
	cfg     *config.Config
	now     func() time.Time
	logger  *slog.Logger
}

var _ jobs.Handler = (*Manager)(nil)

func New(d Deps) *Manager {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Reports == nil {
		d.Reports = reports.New(d.Store, d.Now)
	}
	return &Manager{
		store:   d.Store,
		msg:     d.Messenger,
		sched:   d.Scheduler,
		reports: d.Reports,
		cfg:     d.Config,
		now:     d.Now,
		logger:  d.Logger.With("component", "surveys"),
	}
}

// Active returns the running survey or models.ErrNoActiveSurvey.
func (m *Manager) Active(ctx context.Context) (models.Survey, error) {
	return m.store.ActiveSurvey(ctx)
}

// Start opens a survey, invites every approved user except the administrator
// and schedules the reminder and the close.
func (m *Manager) Start(ctx context.Context) (models.Survey, messaging.BroadcastResult, error) {
	now := m.now().UTC()
	sv, enrolled, err := m.store.CreateSurvey(ctx, now, now.Add(m.cfg.Deadline()))
	if err != nil {
		return models.Survey{}, messaging.BroadcastResult{}, err
	}
	m.logger.Info("✅ survey started", "survey_id", sv.ID, "enrolled", len(enrolled), "deadline", sv.DeadlineAt)

	// Jobs are armed before the broadcast, which may use up ctx.
	m.schedule(context.WithoutCancel(ctx), sv, now)

	invite := prompts.Invitation(sv.ID, m.cfg.DeadlineHours, m.cfg.ReminderLeadHours)
	res := messaging.Broadcast(ctx, m.msg, enrolled, m.cfg.AdminID, invite, m.cfg.DeliveryTimeout, m.logger)
	m.logger.Info("invitations sent", "survey_id", sv.ID, "sent", res.Sent, "failed", res.Failed)
	return sv, res, nil
}

// schedule arms the reminder and close jobs relative to now. Jobs already
// due run right away; reminders are claimed per user, so re-arming is safe.
func (m *Manager) schedule(ctx context.Context, sv models.Survey, now time.Time) {
	remindAt := sv.DeadlineAt.Add(-time.Duration(m.cfg.ReminderLeadHours) * time.Hour)
	if err := m.sched.ScheduleOnce(ctx, jobs.ReminderKey(sv.ID), max(remindAt.Sub(now), 0), jobs.Reminder(sv.ID)); err != nil {
		m.logger.Error("❌ failed to schedule reminder", "survey_id", sv.ID, "error", err)
	}
	if err := m.sched.ScheduleOnce(ctx, jobs.CloseKey(sv.ID), max(sv.DeadlineAt.Sub(now), 0), jobs.Close(sv.ID)); err != nil {
		m.logger.Error("❌ failed to schedule close, the sweep will close it", "survey_id", sv.ID, "error", err)
	}
}

// SendReminders reminds users who neither answered nor were reminded yet.
// Each tracker is claimed before sending, so a user gets at most one
// reminder even when this runs twice at once.
func (m *Manager) SendReminders(ctx context.Context, surveyID int64) (int, error) {
	sv, err := m.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return 0, err
	}
	if !sv.Active {
		m.logger.Info("survey closed, skipping reminders", "survey_id", surveyID)
		return 0, nil
	}
	targets, err := m.store.ListReminderTargets(ctx, surveyID)
	if err != nil {
		return 0, err
	}

	msg := prompts.Reminder(surveyID, m.cfg.ReminderLeadHours)
	sent := 0
	for _, userID := range targets {
		if userID == m.cfg.AdminID {
			continue
		}
		claimed, err := m.store.MarkReminded(ctx, surveyID, userID)
		if err != nil {
			m.logger.Warn("⚠️ mark reminded failed", "survey_id", surveyID, "user_id", userID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		if err := messaging.Deliver(ctx, m.msg, userID, msg, m.cfg.DeliveryTimeout); err != nil {
			m.logger.Warn("⚠️ reminder delivery failed", "survey_id", surveyID, "user_id", userID, "error", err)
			continue
		}
		sent++
	}
	m.logger.Info("reminders sent", "survey_id", surveyID, "sent", sent, "targets", len(targets))
	return sent, nil
}

// Close closes surveyID and reports whether this call closed it. A manual
// close cancels the pending jobs. Only the call that closes the survey
// automatically notifies the administrator.
func (m *Manager) Close(ctx context.Context, surveyID int64, reason models.CloseReason) (bool, error) {
	closed, err := m.store.CloseSurvey(ctx, surveyID)
	if err != nil {
		return false, err
	}
	if reason == models.CloseManual {
		for _, key := range []string{jobs.ReminderKey(surveyID), jobs.CloseKey(surveyID)} {
			if err := m.sched.Cancel(ctx, key); err != nil {
				m.logger.Warn("⚠️ failed to cancel job", "key", key, "error", err)
			}
		}
	}
	if !closed {
		return false, nil
	}
	m.logger.Info("✅ survey closed", "survey_id", surveyID, "reason", reason)
	if reason != models.CloseManual {
		m.notifyClosed(ctx, surveyID)
	}
	return true, nil
}

func (m *Manager) notifyClosed(ctx context.Context, surveyID int64) {
	if err := messaging.Deliver(ctx, m.msg, m.cfg.AdminID, prompts.SurveyClosedAuto(surveyID), m.cfg.DeliveryTimeout); err != nil {
		m.logger.Warn("⚠️ close notification failed", "survey_id", surveyID, "error", err)
		return
	}
	st, err := m.reports.StatsFor(ctx, surveyID)
	if err != nil {
		m.logger.Warn("⚠️ stats for close notification failed", "survey_id", surveyID, "error", err)
		return
	}
	if err := messaging.Deliver(ctx, m.msg, m.cfg.AdminID, prompts.Stats(st), m.cfg.DeliveryTimeout); err != nil {
		m.logger.Warn("⚠️ close stats delivery failed", "survey_id", surveyID, "error", err)
	}
}

// CloseActive is the administrator's explicit close.
func (m *Manager) CloseActive(ctx context.Context) (models.Survey, error) {
	sv, err := m.store.ActiveSurvey(ctx)
	if err != nil {
		return models.Survey{}, err
	}
	if _, err := m.Close(ctx, sv.ID, models.CloseManual); err != nil {
		return models.Survey{}, err
	}
	sv.Active = false
	return sv, nil
}

// Sweep closes the active survey once its stored deadline has passed. It
// covers close jobs lost to a restart or a scheduler outage.
func (m *Manager) Sweep(ctx context.Context) error {
	sv, err := m.store.ActiveSurvey(ctx)
	if errors.Is(err, models.ErrNoActiveSurvey) {
		return nil
	}
	if err != nil {
		return err
	}
	if !sv.Expired(m.now()) {
		return nil
	}
	_, err = m.Close(ctx, sv.ID, models.CloseSweep)
	return err
}

// Resume runs once at boot: it registers the sweep, closes an overdue
// survey and re-arms the jobs of one that is still running.
func (m *Manager) Resume(ctx context.Context) error {
	if err := m.sched.ScheduleRepeating(m.cfg.SweepInterval, jobs.Sweep()); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	if err := m.Sweep(ctx); err != nil {
		return err
	}
	sv, err := m.store.ActiveSurvey(ctx)
	if errors.Is(err, models.ErrNoActiveSurvey) {
		return nil
	}
	if err != nil {
		return err
	}
	m.schedule(ctx, sv, m.now())
	return nil
}

// HandleJob executes a scheduler job.
func (m *Manager) HandleJob(ctx context.Context, j jobs.Job) error {
	switch j.Type {
	case jobs.TypeReminder:
		_, err := m.SendReminders(ctx, j.SurveyID)
		return m.skipMissing(j, err)
	case jobs.TypeClose:
		_, err := m.Close(ctx, j.SurveyID, models.CloseDeadline)
		return m.skipMissing(j, err)
	case jobs.TypeSweep:
		return m.Sweep(ctx)
	}
	return fmt.Errorf("unknown job type %q", j.Type)
}

func (m *Manager) skipMissing(j jobs.Job, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		m.logger.Warn("⚠️ survey not found, skipping task", "type", j.Type, "survey_id", j.SurveyID)
		return nil
	}
	return err
}
