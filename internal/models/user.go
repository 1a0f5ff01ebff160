package models

import "time"

const (
	RoleClient = "client"
	RoleCoach  = "coach"
	RoleAdmin  = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated caller presented to the service layer.
// Credential checks happen upstream in the auth middleware; services only
// evaluate capabilities against it.
type Principal struct {
	ID   int64
	Role string
}

func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

func (p Principal) IsCoach() bool {
	return p.Role == RoleCoach
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// OwnsSession reports whether the principal is the coach the session
// belongs to. Admins do not get ownership over other coaches' sessions.
func (p Principal) OwnsSession(s *Session) bool {
	return p.IsCoach() && s != nil && s.CoachID == p.ID
}

// MayCancelEnrollment reports whether the principal may cancel the
// enrollment: the enrolling user themself, or the owning coach.
func (p Principal) MayCancelEnrollment(e *Enrollment, s *Session) bool {
	if e == nil {
		return false
	}
	if e.UserID == p.ID {
		return true
	}
	return p.OwnsSession(s)
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
