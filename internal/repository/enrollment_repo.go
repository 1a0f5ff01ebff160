package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/DRrook/YallaFit/internal/models"
)

type CreateEnrollmentInput struct {
	UserID     int64
	SessionID  int64
	Status     string
	PaidAmount float64
}

type EnrollmentRepository struct {
	db DBTX
}

func NewEnrollmentRepository(db DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, user_id, session_id, status, paid_amount, created_at, updated_at`

func scanEnrollment(row pgx.Row, enrollment *models.Enrollment) error {
	return row.Scan(
		&enrollment.ID,
		&enrollment.UserID,
		&enrollment.SessionID,
		&enrollment.Status,
		&enrollment.PaidAmount,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
}

// Create inserts an enrollment row. The unique constraint on
// (user_id, session_id) rejects a second row for the same pair regardless
// of status; callers translate that violation.
func (r *EnrollmentRepository) Create(
	ctx context.Context,
	input CreateEnrollmentInput,
) (*models.Enrollment, error) {
	query := `
		INSERT INTO enrollments (user_id, session_id, status, paid_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + enrollmentColumns

	var enrollment models.Enrollment
	err := scanEnrollment(r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		input.SessionID,
		input.Status,
		input.PaidAmount,
	), &enrollment)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, enrollmentID int64) (*models.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE id = $1
	`
	var enrollment models.Enrollment
	if err := scanEnrollment(r.db.QueryRow(ctx, query, enrollmentID), &enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) FindByUserAndSession(
	ctx context.Context,
	userID, sessionID int64,
) (*models.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE user_id = $1 AND session_id = $2
	`
	var enrollment models.Enrollment
	if err := scanEnrollment(r.db.QueryRow(ctx, query, userID, sessionID), &enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateStatusIfCurrent applies a status transition only when the row still
// holds the expected current status. pgx.ErrNoRows means the row changed
// underneath the caller or does not exist.
func (r *EnrollmentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	enrollmentID int64,
	currentStatus string,
	nextStatus string,
) (*models.Enrollment, error) {
	query := `
		UPDATE enrollments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + enrollmentColumns

	var enrollment models.Enrollment
	err := scanEnrollment(
		r.db.QueryRow(ctx, query, enrollmentID, currentStatus, nextStatus),
		&enrollment,
	)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountActive counts the rows occupying a capacity slot: every status
// except cancelled.
func (r *EnrollmentRepository) CountActive(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM enrollments WHERE session_id = $1 AND status <> 'cancelled'`,
		sessionID,
	).Scan(&count)
	return count, err
}

// CountBySession counts every enrollment row for the session regardless of
// status. The deletion guard uses this: a cancelled row still blocks
// deleting the session.
func (r *EnrollmentRepository) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM enrollments WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	return count, err
}

// ListBySession returns the session's enrollments with the enrolled user
// embedded, newest first.
func (r *EnrollmentRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
) ([]models.EnrollmentDetail, error) {
	query := `
		SELECT e.id, e.user_id, e.session_id, e.status, e.paid_amount, e.created_at, e.updated_at,
		       u.id, u.name, u.email, u.role, u.created_at, u.updated_at
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE e.session_id = $1
		ORDER BY e.created_at DESC, e.id DESC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.EnrollmentDetail, 0)
	for rows.Next() {
		var detail models.EnrollmentDetail
		var user models.User
		if err := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.SessionID,
			&detail.Status,
			&detail.PaidAmount,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		detail.User = &user
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListByUser returns the user's enrollments with the session embedded,
// soonest session first.
func (r *EnrollmentRepository) ListByUser(
	ctx context.Context,
	userID int64,
) ([]models.EnrollmentDetail, error) {
	query := `
		SELECT e.id, e.user_id, e.session_id, e.status, e.paid_amount, e.created_at, e.updated_at,
		       s.id, s.title, s.description, s.date, s.time, s.capacity, s.price, s.status, s.coach_id, s.created_at, s.updated_at
		FROM enrollments e
		JOIN fitness_sessions s ON s.id = e.session_id
		WHERE e.user_id = $1
		ORDER BY s.date ASC, e.id ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.EnrollmentDetail, 0)
	for rows.Next() {
		var detail models.EnrollmentDetail
		var session models.Session
		if err := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.SessionID,
			&detail.Status,
			&detail.PaidAmount,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&session.ID,
			&session.Title,
			&session.Description,
			&session.Date,
			&session.Time,
			&session.Capacity,
			&session.Price,
			&session.Status,
			&session.CoachID,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		detail.Session = &session
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}
