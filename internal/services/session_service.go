package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DRrook/YallaFit/internal/models"
	"github.com/DRrook/YallaFit/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrSessionFull            = errors.New("session is full")
	ErrSessionNotActive       = errors.New("session is not active")
	ErrAlreadyEnrolled        = errors.New("already enrolled")
	ErrCapacityBelowEnrolled  = errors.New("capacity below enrolled count")
	ErrSessionHasEnrollments  = errors.New("session has enrollments")
	ErrTxConflict             = errors.New("transaction conflict")
)

type SessionService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	enrollmentRepo *repository.EnrollmentRepository
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	enrollmentRepo *repository.EnrollmentRepository,
) *SessionService {
	return &SessionService{
		db:             db,
		sessionRepo:    sessionRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

type CreateSessionInput struct {
	Title       string
	Description string
	Date        time.Time
	Time        string
	Capacity    int
	Price       float64
}

type UpdateSessionInput struct {
	Title       *string
	Description *string
	Date        *time.Time
	Time        *string
	Capacity    *int
	Price       *float64
	Status      *string
}

func (s *SessionService) CreateSession(
	ctx context.Context,
	principal models.Principal,
	input CreateSessionInput,
) (*models.Session, error) {
	if !principal.IsCoach() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(input.Title) == "" ||
		strings.TrimSpace(input.Description) == "" ||
		strings.TrimSpace(input.Time) == "" {
		return nil, ErrInvalidInput
	}
	if input.Capacity < 1 || input.Price < 0 {
		return nil, ErrInvalidInput
	}
	if input.Date.Before(startOfToday()) {
		return nil, ErrInvalidInput
	}

	return s.sessionRepo.Create(ctx, repository.CreateSessionInput{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Date:        input.Date,
		Time:        strings.TrimSpace(input.Time),
		Capacity:    input.Capacity,
		Price:       input.Price,
		CoachID:     principal.ID,
	})
}

// UpdateSession applies a partial patch to a session the principal owns.
// Capacity changes run inside a transaction that locks the session row and
// recounts enrollments, so a reduction can never race an admission into a
// violated capacity invariant. Dates are not re-checked against the past
// on update.
func (s *SessionService) UpdateSession(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
	input UpdateSessionInput,
) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !principal.OwnsSession(session) {
		return nil, ErrForbidden
	}
	if err := validateSessionPatch(input); err != nil {
		return nil, err
	}

	patch := repository.UpdateSessionInput{
		Title:       input.Title,
		Description: input.Description,
		Date:        input.Date,
		Time:        input.Time,
		Capacity:    input.Capacity,
		Price:       input.Price,
		Status:      input.Status,
	}

	var updated *models.Session
	if input.Capacity == nil {
		updated, err = s.sessionRepo.Update(ctx, sessionID, patch)
		if err != nil {
			return nil, err
		}
		return s.sessionDetail(ctx, updated)
	}

	err = inTx(ctx, s.db, func(tx pgx.Tx) error {
		txSessionRepo := repository.NewSessionRepository(tx)
		txEnrollmentRepo := repository.NewEnrollmentRepository(tx)

		if _, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID); err != nil {
			return err
		}
		enrolled, err := txEnrollmentRepo.CountActive(ctx, sessionID)
		if err != nil {
			return err
		}
		if *input.Capacity < enrolled {
			return ErrCapacityBelowEnrolled
		}

		updated, err = txSessionRepo.Update(ctx, sessionID, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.sessionDetail(ctx, updated)
}

// DeleteSession removes a session that has no enrollment rows at all.
// Cancelled rows still block deletion; the session should be marked
// completed instead.
func (s *SessionService) DeleteSession(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
) error {
	return inTx(ctx, s.db, func(tx pgx.Tx) error {
		txSessionRepo := repository.NewSessionRepository(tx)
		txEnrollmentRepo := repository.NewEnrollmentRepository(tx)

		session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !principal.OwnsSession(session) {
			return ErrForbidden
		}

		count, err := txEnrollmentRepo.CountBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSessionHasEnrollments
		}

		return txSessionRepo.Delete(ctx, sessionID)
	})
}

// ListCoachSessions returns the coach's own sessions, newest first, with
// the total for pagination.
func (s *SessionService) ListCoachSessions(
	ctx context.Context,
	principal models.Principal,
	page, limit int,
) ([]models.SessionDetail, int, error) {
	if !principal.IsCoach() {
		return nil, 0, ErrForbidden
	}
	details, err := s.sessionRepo.ListByCoach(ctx, principal.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sessionRepo.CountByCoach(ctx, principal.ID)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// ListAvailableSessions returns active upcoming sessions for a client,
// each decorated with the client's own enrollment state.
func (s *SessionService) ListAvailableSessions(
	ctx context.Context,
	principal models.Principal,
	page, limit int,
) ([]models.ClientSessionView, int, error) {
	from := startOfToday()
	details, err := s.sessionRepo.ListActiveUpcoming(ctx, from, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.sessionRepo.CountActiveUpcoming(ctx, from)
	if err != nil {
		return nil, 0, err
	}

	enrollments, err := s.enrollmentRepo.ListByUser(ctx, principal.ID)
	if err != nil {
		return nil, 0, err
	}
	bySession := make(map[int64]models.EnrollmentDetail, len(enrollments))
	for _, enrollment := range enrollments {
		bySession[enrollment.SessionID] = enrollment
	}

	views := make([]models.ClientSessionView, 0, len(details))
	for _, detail := range details {
		view := models.ClientSessionView{SessionDetail: detail}
		if enrollment, ok := bySession[detail.ID]; ok {
			status := enrollment.Status
			view.IsEnrolled = true
			view.EnrollmentStatus = &status
		}
		views = append(views, view)
	}
	return views, total, nil
}

// GetSession returns one session. Coaches may only view their own; clients
// additionally see their enrollment state.
func (s *SessionService) GetSession(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
) (*models.ClientSessionView, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if principal.IsCoach() && !principal.OwnsSession(session) {
		return nil, ErrForbidden
	}

	detail, err := s.sessionDetail(ctx, session)
	if err != nil {
		return nil, err
	}

	view := &models.ClientSessionView{SessionDetail: *detail}
	if principal.IsClient() {
		enrollment, err := s.enrollmentRepo.FindByUserAndSession(ctx, principal.ID, sessionID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err == nil {
			status := enrollment.Status
			view.IsEnrolled = true
			view.EnrollmentStatus = &status
		}
	}
	return view, nil
}

func (s *SessionService) sessionDetail(
	ctx context.Context,
	session *models.Session,
) (*models.SessionDetail, error) {
	enrolled, err := s.enrollmentRepo.CountActive(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &models.SessionDetail{Session: *session, Enrolled: enrolled}, nil
}

func validateSessionPatch(input UpdateSessionInput) error {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return ErrInvalidInput
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		return ErrInvalidInput
	}
	if input.Time != nil && strings.TrimSpace(*input.Time) == "" {
		return ErrInvalidInput
	}
	if input.Capacity != nil && *input.Capacity < 1 {
		return ErrInvalidInput
	}
	if input.Price != nil && *input.Price < 0 {
		return ErrInvalidInput
	}
	if input.Status != nil && !models.ValidSessionStatus(*input.Status) {
		return ErrInvalidStatus
	}
	return nil
}

func startOfToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
