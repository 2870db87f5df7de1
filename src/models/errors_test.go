package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", ErrInvalidScore, KindValidation},
		{"wrapped conflict", fmt.Errorf("start: %w", ErrAlreadyActive), KindStateConflict},
		{"not found", ErrNotFound, KindNotFound},
		{"not authorized", ErrNotAuthorized, KindNotAuthorized},
		{"persistence", Persistence("save", errors.New("disk full")), KindPersistence},
		{"delivery", &DeliveryError{ChatID: 1, Err: errors.New("blocked")}, KindDelivery},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestPersistenceKeepsDomainErrors(t *testing.T) {
	err := Persistence("approve", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.NoError(t, Persistence("noop", nil))

	cause := errors.New("connection reset")
	err = Persistence("close", cause)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "close: connection reset")
}

func TestAbsentRatingIsSentinel(t *testing.T) {
	r := AbsentRating(7, testTime)
	assert.False(t, r.Attended)
	assert.Equal(t, AbsentScore, r.Interest)
	assert.Equal(t, AbsentScore, r.Relevance)
	assert.Equal(t, AbsentScore, r.SpiritualGrowth)
	assert.Less(t, r.Interest, MinScore)
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Ann Lee", User{FirstName: "Ann", LastName: "Lee"}.DisplayName())
	assert.Equal(t, "Ann", User{FirstName: "Ann"}.DisplayName())
	assert.Equal(t, "annlee", User{Username: "annlee"}.DisplayName())
}
