package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DRrook/YallaFit/internal/models"
)

type CreateSessionInput struct {
	Title       string
	Description string
	Date        time.Time
	Time        string
	Capacity    int
	Price       float64
	CoachID     int64
}

// UpdateSessionInput is a partial patch; nil fields keep their current
// value.
type UpdateSessionInput struct {
	Title       *string
	Description *string
	Date        *time.Time
	Time        *string
	Capacity    *int
	Price       *float64
	Status      *string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, title, description, date, time, capacity, price, status, coach_id, created_at, updated_at`

func scanSession(row pgx.Row, session *models.Session) error {
	return row.Scan(
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
	)
}

func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO fitness_sessions (title, description, date, time, capacity, price, status, coach_id)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', $7)
		RETURNING ` + sessionColumns

	var session models.Session
	err := scanSession(r.db.QueryRow(
		ctx,
		query,
		input.Title,
		input.Description,
		input.Date,
		input.Time,
		input.Capacity,
		input.Price,
		input.CoachID,
	), &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM fitness_sessions
		WHERE id = $1
	`
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByIDForUpdate locks the session row for the duration of the enclosing
// transaction. Admissions and capacity changes for the same session
// serialize on this lock.
func (r *SessionRepository) GetByIDForUpdate(
	ctx context.Context,
	sessionID int64,
) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM fitness_sessions
		WHERE id = $1
		FOR UPDATE
	`
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Update(
	ctx context.Context,
	sessionID int64,
	input UpdateSessionInput,
) (*models.Session, error) {
	query := `
		UPDATE fitness_sessions
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    date = COALESCE($4, date),
		    time = COALESCE($5, time),
		    capacity = COALESCE($6, capacity),
		    price = COALESCE($7, price),
		    status = COALESCE($8, status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sessionColumns

	var session models.Session
	err := scanSession(r.db.QueryRow(
		ctx,
		query,
		sessionID,
		input.Title,
		input.Description,
		input.Date,
		input.Time,
		input.Capacity,
		input.Price,
		input.Status,
	), &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fitness_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const sessionDetailSelect = `
	SELECT s.id, s.title, s.description, s.date, s.time, s.capacity, s.price,
	       s.status, s.coach_id, s.created_at, s.updated_at,
	       COUNT(e.id) FILTER (WHERE e.status <> 'cancelled') AS enrolled
	FROM fitness_sessions s
	LEFT JOIN enrollments e ON e.session_id = s.id
`

func (r *SessionRepository) listDetails(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.SessionDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.SessionDetail, 0)
	for rows.Next() {
		var detail models.SessionDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.Title,
			&detail.Description,
			&detail.Date,
			&detail.Time,
			&detail.Capacity,
			&detail.Price,
			&detail.Status,
			&detail.CoachID,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.Enrolled,
		); err != nil {
			return nil, err
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListByCoach returns the coach's own sessions, newest date first.
func (r *SessionRepository) ListByCoach(
	ctx context.Context,
	coachID int64,
	limit, offset int,
) ([]models.SessionDetail, error) {
	query := sessionDetailSelect + `
		WHERE s.coach_id = $1
		GROUP BY s.id
		ORDER BY s.date DESC, s.id DESC
		LIMIT $2 OFFSET $3
	`
	return r.listDetails(ctx, query, coachID, limit, offset)
}

func (r *SessionRepository) CountByCoach(ctx context.Context, coachID int64) (int, error) {
	var total int
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM fitness_sessions WHERE coach_id = $1`,
		coachID,
	).Scan(&total)
	return total, err
}

// ListActiveUpcoming returns active sessions dated today or later, for the
// client discovery listing. The enrolled count here is a display value and
// may trail an in-flight admission.
func (r *SessionRepository) ListActiveUpcoming(
	ctx context.Context,
	from time.Time,
	limit, offset int,
) ([]models.SessionDetail, error) {
	query := sessionDetailSelect + `
		WHERE s.status = 'active' AND s.date >= $1
		GROUP BY s.id
		ORDER BY s.date ASC, s.id ASC
		LIMIT $2 OFFSET $3
	`
	return r.listDetails(ctx, query, from, limit, offset)
}

func (r *SessionRepository) CountActiveUpcoming(ctx context.Context, from time.Time) (int, error) {
	var total int
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM fitness_sessions WHERE status = 'active' AND date >= $1`,
		from,
	).Scan(&total)
	return total, err
}
