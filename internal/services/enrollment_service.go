package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DRrook/YallaFit/internal/models"
	"github.com/DRrook/YallaFit/internal/repository"
)

type EnrollmentService struct {
	db             *pgxpool.Pool
	sessionRepo    *repository.SessionRepository
	enrollmentRepo *repository.EnrollmentRepository
}

func NewEnrollmentService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	enrollmentRepo *repository.EnrollmentRepository,
) *EnrollmentService {
	return &EnrollmentService{
		db:             db,
		sessionRepo:    sessionRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// Enroll admits the principal into a session. The admission runs in a
// single transaction: the session row is locked, the live enrollment count
// is recomputed, and the insert only happens while count < capacity. The
// unique constraint on (user_id, session_id) backs the check against
// anything the lock does not cover. The count is always derived inside the
// transaction, never cached on the session row.
func (s *EnrollmentService) Enroll(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
	requestedStatus string,
) (*models.Enrollment, error) {
	status, err := normalizeEnrollStatus(requestedStatus)
	if err != nil {
		return nil, err
	}

	var enrollment *models.Enrollment
	err = inTx(ctx, s.db, func(tx pgx.Tx) error {
		txSessionRepo := repository.NewSessionRepository(tx)
		txEnrollmentRepo := repository.NewEnrollmentRepository(tx)

		session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionStatusActive {
			return ErrSessionNotActive
		}

		// One row per (user, session), cancelled included. Re-enrolling
		// after a cancellation is not supported.
		_, err = txEnrollmentRepo.FindByUserAndSession(ctx, principal.ID, sessionID)
		if err == nil {
			return ErrAlreadyEnrolled
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		enrolled, err := txEnrollmentRepo.CountActive(ctx, sessionID)
		if err != nil {
			return err
		}
		if enrolled >= session.Capacity {
			return ErrSessionFull
		}

		enrollment, err = txEnrollmentRepo.Create(ctx, repository.CreateEnrollmentInput{
			UserID:     principal.ID,
			SessionID:  sessionID,
			Status:     status,
			PaidAmount: session.Price,
		})
		if isUniqueViolation(err) {
			return ErrAlreadyEnrolled
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// UpdateStatus moves an enrollment through its lifecycle. Confirm and
// complete belong to the owning coach; cancel belongs to the enrolling
// user or the owning coach. Cancelled and completed are terminal.
func (s *EnrollmentService) UpdateStatus(
	ctx context.Context,
	principal models.Principal,
	enrollmentID int64,
	requestedStatus string,
) (*models.Enrollment, error) {
	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.enrollmentRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.GetByID(ctx, enrollment.SessionID)
	if err != nil {
		return nil, err
	}

	if nextStatus == models.EnrollmentStatusCancelled {
		if !principal.MayCancelEnrollment(enrollment, session) {
			return nil, ErrForbidden
		}
	} else if !principal.OwnsSession(session) {
		return nil, ErrForbidden
	}

	if !models.CanTransitionEnrollment(enrollment.Status, nextStatus) {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.enrollmentRepo.UpdateStatusIfCurrent(ctx, enrollmentID, enrollment.Status, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The row moved on since we read it.
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	return updated, nil
}

// Cancel releases the enrollment's capacity slot. No separate bookkeeping
// happens; the slot frees because the row stops counting as active.
func (s *EnrollmentService) Cancel(
	ctx context.Context,
	principal models.Principal,
	enrollmentID int64,
) (*models.Enrollment, error) {
	return s.UpdateStatus(ctx, principal, enrollmentID, models.EnrollmentStatusCancelled)
}

// ListForSession returns a session's enrollments with user detail, for the
// owning coach's booking-management view.
func (s *EnrollmentService) ListForSession(
	ctx context.Context,
	principal models.Principal,
	sessionID int64,
) ([]models.EnrollmentDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !principal.OwnsSession(session) {
		return nil, ErrForbidden
	}
	return s.enrollmentRepo.ListBySession(ctx, sessionID)
}

// ListForUser returns the principal's own enrollments with session detail.
func (s *EnrollmentService) ListForUser(
	ctx context.Context,
	principal models.Principal,
) ([]models.EnrollmentDetail, error) {
	return s.enrollmentRepo.ListByUser(ctx, principal.ID)
}

// normalizeEnrollStatus bounds the status an admission may start in. The
// simple booking path enrolls straight into confirmed; the managed path
// starts pending and waits on the coach.
func normalizeEnrollStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", models.EnrollmentStatusConfirmed:
		return models.EnrollmentStatusConfirmed, nil
	case models.EnrollmentStatusPending:
		return models.EnrollmentStatusPending, nil
	default:
		return "", ErrInvalidStatus
	}
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirm", "confirmed":
		return models.EnrollmentStatusConfirmed, nil
	case "complete", "completed":
		return models.EnrollmentStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.EnrollmentStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}
