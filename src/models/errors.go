package models

import (
	"errors"
	"fmt"
)

// Kind classifies errors for callers that need to pick a reply or status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindStateConflict
	KindNotFound
	KindNotAuthorized
	KindDelivery
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindNotAuthorized:
		return "not_authorized"
	case KindDelivery:
		return "delivery"
	case KindPersistence:
		return "persistence"
	}
	return "internal"
}

// Error is a sentinel carrying its Kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

var (
	ErrInvalidID       = newErr(KindValidation, "invalid identifier")
	ErrInvalidScore    = newErr(KindValidation, "score out of range")
	ErrInvalidStep     = newErr(KindValidation, "answer does not match the current question")
	ErrInvalidFeedback = newErr(KindValidation, "invalid feedback text")
	ErrInvalidPeriod   = newErr(KindValidation, "period must be a positive number of days")

	ErrAlreadyActive    = newErr(KindStateConflict, "a survey is already active")
	ErrNoActiveSurvey   = newErr(KindStateConflict, "no active survey")
	ErrAlreadyResponded = newErr(KindStateConflict, "already responded to this survey")
	ErrNoDraft          = newErr(KindStateConflict, "no rating in progress")

	ErrNotFound      = newErr(KindNotFound, "not found")
	ErrNotAuthorized = newErr(KindNotAuthorized, "not authorized")
)

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it is nil or already
// carries a domain Kind (for example ErrNotFound returned by a store).
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// DeliveryError wraps a per-recipient messaging failure.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return KindPersistence
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return KindDelivery
	}
	return KindInternal
}
