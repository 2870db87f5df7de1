// Package access is the identity and approval gate: users ask for access,
// the administrator approves or rejects them.
package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/prompts"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
)

type Service struct {
	store    store.Store
	msg      messaging.Messenger
	adminID  int64
	timeout  time.Duration
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

type Options struct {
	AdminID         int64
	DeliveryTimeout time.Duration
	Location        *time.Location
	Now             func() time.Time
	Logger          *slog.Logger
}

func New(st store.Store, m messaging.Messenger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    st,
		msg:      m,
		adminID:  opts.AdminID,
		timeout:  opts.DeliveryTimeout,
		location: opts.Location,
		now:      opts.Now,
		logger:   opts.Logger.With("component", "access"),
	}
}

func (s *Service) AdminID() int64 { return s.adminID }

// RequireAdmin returns models.ErrNotAuthorized unless userID is the administrator.
func (s *Service) RequireAdmin(userID int64) error {
	if userID == 0 || userID != s.adminID {
		return models.ErrNotAuthorized
	}
	return nil
}

// RequestAccess queues u for approval. Only a fresh request notifies the
// administrator; a repeated one just refreshes the stored profile. The
// administrator counts as approved and is never queued.
func (s *Service) RequestAccess(ctx context.Context, u models.User) (models.AccessStatus, error) {
	if u.UserID <= 0 {
		return 0, models.ErrInvalidID
	}
	if u.UserID == s.adminID {
		return models.AccessAlreadyApproved, nil
	}
	u.Since = s.now().UTC()
	status, err := s.store.RequestAccess(ctx, u)
	if err != nil {
		return 0, err
	}
	if status == models.AccessQueued {
		s.logger.Info("🔔 access requested", "user_id", u.UserID)
		s.notify(ctx, s.adminID, prompts.AccessRequested(u))
	}
	return status, nil
}

func (s *Service) ListPending(ctx context.Context) ([]models.User, error) {
	return s.store.ListPending(ctx)
}

func (s *Service) ListApproved(ctx context.Context) ([]models.User, error) {
	return s.store.ListApproved(ctx)
}

func (s *Service) IsApproved(ctx context.Context, userID int64) (bool, error) {
	return s.store.IsApproved(ctx, userID)
}

func (s *Service) IsPending(ctx context.Context, userID int64) (bool, error) {
	return s.store.IsPending(ctx, userID)
}

// Approve moves userID from pending to approved. If a survey is running the
// user is enrolled in it and invited, once.
func (s *Service) Approve(ctx context.Context, userID int64) (models.User, error) {
	if userID <= 0 {
		return models.User{}, models.ErrInvalidID
	}
	u, err := s.store.ApprovePending(ctx, userID, s.now().UTC())
	if err != nil {
		return models.User{}, err
	}
	s.logger.Info("✅ user approved", "user_id", userID)
	s.notify(ctx, userID, prompts.Approved())

	if err := s.enrollLateJoiner(ctx, userID); err != nil {
		s.logger.Warn("⚠️ late joiner enrollment failed", "user_id", userID, "error", err)
	}
	return u, nil
}

func (s *Service) enrollLateJoiner(ctx context.Context, userID int64) error {
	sv, err := s.store.ActiveSurvey(ctx)
	if errors.Is(err, models.ErrNoActiveSurvey) {
		return nil
	}
	if err != nil {
		return err
	}
	created, err := s.store.EnsureTracker(ctx, sv.ID, userID)
	if err != nil || !created {
		return err
	}
	s.logger.Info("late joiner enrolled", "user_id", userID, "survey_id", sv.ID)
	s.notify(ctx, userID, prompts.LateInvitation(sv.ID, sv.DeadlineAt, s.location))
	return nil
}

// Reject drops a pending request.
func (s *Service) Reject(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return models.ErrInvalidID
	}
	deleted, err := s.store.DeletePending(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.ErrNotFound
	}
	s.logger.Info("request rejected", "user_id", userID)
	s.notify(ctx, userID, prompts.Rejected())
	return nil
}

// Remove revokes an approved user. It reports whether anything was removed.
func (s *Service) Remove(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, models.ErrInvalidID
	}
	removed, err := s.store.DeleteApproved(ctx, userID)
	if err == nil && removed {
		s.logger.Info("🗑️ user removed", "user_id", userID)
	}
	return removed, err
}

func (s *Service) notify(ctx context.Context, chatID int64, msg messaging.Message) {
	if err := messaging.Deliver(ctx, s.msg, chatID, msg, s.timeout); err != nil {
		s.logger.Warn("⚠️ notification failed", "chat_id", chatID, "error", err)
	}
}
