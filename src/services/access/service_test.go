package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/messaging/messagingtest"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/models"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/store"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/testutil"
)

const admin int64 = 1000

func newService(t *testing.T) (*Service, store.Store, *messagingtest.Recorder) {
	t.Helper()
	st := testutil.NewStore(t)
	rec := messagingtest.New()
	clock := testutil.NewClock(testutil.T0)
	svc := New(st, rec, Options{
		AdminID:         admin,
		DeliveryTimeout: time.Second,
		Location:        time.UTC,
		Now:             clock.Now,
		Logger:          testutil.Logger(),
	})
	return svc, st, rec
}

func TestRequestAccessNotifiesAdminOnce(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()
	u := models.User{UserID: 7, Username: "mark", FirstName: "Mark"}

	st, err := svc.RequestAccess(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, models.AccessQueued, st)

	st, err = svc.RequestAccess(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, models.AccessAlreadyPending, st)

	toAdmin := rec.To(admin)
	require.Len(t, toAdmin, 1)
	assert.Contains(t, toAdmin[0].Text, "@mark")
	assert.Contains(t, toAdmin[0].Text, "ID: 7")

	pending, err := svc.IsPending(ctx, 7)
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = svc.RequestAccess(ctx, models.User{})
	assert.ErrorIs(t, err, models.ErrInvalidID)
}

func TestAdminIsNeverQueued(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	st, err := svc.RequestAccess(ctx, models.User{UserID: admin, FirstName: "Lead"})
	require.NoError(t, err)
	assert.Equal(t, models.AccessAlreadyApproved, st)

	pending, err := svc.IsPending(ctx, admin)
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Empty(t, rec.To(admin))

	_, err = svc.Approve(ctx, admin)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRequestAccessSurvivesAdminDeliveryFailure(t *testing.T) {
	svc, _, rec := newService(t)
	rec.Fail(admin)

	st, err := svc.RequestAccess(context.Background(), models.User{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, models.AccessQueued, st)
}

func TestApprove(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()
	_, err := svc.RequestAccess(ctx, models.User{UserID: 7, FirstName: "Mark"})
	require.NoError(t, err)

	u, err := svc.Approve(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Mark", u.FirstName)

	approved, err := svc.IsApproved(ctx, 7)
	require.NoError(t, err)
	assert.True(t, approved)
	pending, err := svc.IsPending(ctx, 7)
	require.NoError(t, err)
	assert.False(t, pending)

	msgs := rec.To(7)
	require.Len(t, msgs, 1, "no survey is active, so only the approval notice")
	assert.Contains(t, msgs[0].Text, "approved")

	_, err = svc.Approve(ctx, 7)
	assert.ErrorIs(t, err, models.ErrNotFound)

	st, err := svc.RequestAccess(ctx, models.User{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, models.AccessAlreadyApproved, st)
}

func TestApproveLateJoinerGetsOneInvitation(t *testing.T) {
	svc, st, rec := newService(t)
	ctx := context.Background()
	testutil.Approve(t, st, 1, 2)

	sv, _, err := st.CreateSurvey(ctx, testutil.T0, testutil.T0.Add(18*time.Hour))
	require.NoError(t, err)

	_, err = svc.RequestAccess(ctx, models.User{UserID: 7})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, 7)
	require.NoError(t, err)

	tr, err := st.GetTracker(ctx, sv.ID, 7)
	require.NoError(t, err)
	assert.False(t, tr.HasResponded)

	msgs := rec.To(7)
	require.Len(t, msgs, 2)
	assert.Equal(t, "rate_1", msgs[1].Keyboard[0][0].Data)

	// removed and approved again during the same survey: no second invitation
	removed, err := svc.Remove(ctx, 7)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = svc.RequestAccess(ctx, models.User{UserID: 7})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, 7)
	require.NoError(t, err)

	invitations := 0
	for _, m := range rec.To(7) {
		if len(m.Keyboard) > 0 {
			invitations++
		}
	}
	assert.Equal(t, 1, invitations)

	targets, err := st.ListReminderTargets(ctx, sv.ID)
	require.NoError(t, err)
	assert.Contains(t, targets, int64(7), "late joiners stay reminder-eligible")
}

func TestReject(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()
	_, err := svc.RequestAccess(ctx, models.User{UserID: 7})
	require.NoError(t, err)

	require.NoError(t, svc.Reject(ctx, 7))
	pending, err := svc.IsPending(ctx, 7)
	require.NoError(t, err)
	assert.False(t, pending)
	require.Len(t, rec.To(7), 1)
	assert.Contains(t, rec.To(7)[0].Text, "declined")

	assert.ErrorIs(t, svc.Reject(ctx, 7), models.ErrNotFound)
	assert.ErrorIs(t, svc.Reject(ctx, -1), models.ErrInvalidID)
}

func TestRemove(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	testutil.Approve(t, st, 5)

	removed, err := svc.Remove(ctx, 5)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, 5)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRequireAdmin(t *testing.T) {
	svc, _, _ := newService(t)
	assert.NoError(t, svc.RequireAdmin(admin))
	assert.ErrorIs(t, svc.RequireAdmin(5), models.ErrNotAuthorized)
	assert.ErrorIs(t, svc.RequireAdmin(0), models.ErrNotAuthorized)
}
