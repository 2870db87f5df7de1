package models

import "time"

// User is a Telegram identity known to the gate. It lives in exactly one of the pending or approved tables.
type User struct {
	UserID    int64     `bson:"_id" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	FirstName string    `bson:"firstName" json:"firstName"`
	LastName  string    `bson:"lastName" json:"lastName"`
	Since     time.Time `bson:"since" json:"since"` // request date for pending, join date for approved
}

// DisplayName returns "First Last" trimmed of missing parts.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Username
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// AccessStatus is the outcome of an access request.
type AccessStatus int

const (
	AccessQueued AccessStatus = iota
	AccessAlreadyPending
	AccessAlreadyApproved
)

func (s AccessStatus) String() string {
	switch s {
	case AccessQueued:
		return "queued"
	case AccessAlreadyPending:
		return "already_pending"
	case AccessAlreadyApproved:
		return "already_approved"
	}
	return "unknown"
}
