package models

import "time"

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

const (
	EnrollmentStatusPending   = "pending"
	EnrollmentStatusConfirmed = "confirmed"
	EnrollmentStatusCancelled = "cancelled"
	EnrollmentStatusCompleted = "completed"
)

type Session struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Capacity    int       `json:"capacity"`
	Price       float64   `json:"price"`
	Status      string    `json:"status"`
	CoachID     int64     `json:"coach_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Enrollment struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SessionID  int64     `json:"session_id"`
	Status     string    `json:"status"`
	PaidAmount float64   `json:"paid_amount"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionDetail is a session plus the derived enrollment count. The count
// covers non-cancelled rows only; a cancelled enrollment does not occupy a
// capacity slot.
type SessionDetail struct {
	Session
	Enrolled int `json:"enrolled"`
}

// ClientSessionView decorates a session with the viewing client's own
// enrollment state, for the discovery listing.
type ClientSessionView struct {
	SessionDetail
	IsEnrolled       bool    `json:"is_enrolled"`
	EnrollmentStatus *string `json:"enrollment_status"`
}

// EnrollmentDetail embeds the enrolled user and the session for the
// booking-management listings.
type EnrollmentDetail struct {
	Enrollment
	User    *User    `json:"user,omitempty"`
	Session *Session `json:"session,omitempty"`
}

func ValidSessionStatus(s string) bool {
	return s == SessionStatusActive || s == SessionStatusCompleted
}

// CanTransitionEnrollment reports whether an enrollment may move between
// the two statuses. Cancelled and completed are terminal.
func CanTransitionEnrollment(from, to string) bool {
	switch from {
	case EnrollmentStatusPending:
		return to == EnrollmentStatusConfirmed || to == EnrollmentStatusCancelled
	case EnrollmentStatusConfirmed:
		return to == EnrollmentStatusCancelled || to == EnrollmentStatusCompleted
	default:
		return false
	}
}
