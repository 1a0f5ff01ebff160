package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/DRrook/YallaFit/internal/models"
	"github.com/DRrook/YallaFit/internal/services"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

type sessionApplicationService interface {
	CreateSession(ctx context.Context, principal models.Principal, input services.CreateSessionInput) (*models.Session, error)
	UpdateSession(ctx context.Context, principal models.Principal, sessionID int64, input services.UpdateSessionInput) (*models.SessionDetail, error)
	DeleteSession(ctx context.Context, principal models.Principal, sessionID int64) error
	ListCoachSessions(ctx context.Context, principal models.Principal, page, limit int) ([]models.SessionDetail, int, error)
	ListAvailableSessions(ctx context.Context, principal models.Principal, page, limit int) ([]models.ClientSessionView, int, error)
	GetSession(ctx context.Context, principal models.Principal, sessionID int64) (*models.ClientSessionView, error)
}

type SessionHandler struct {
	service sessionApplicationService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string  `json:"time" validate:"required"`
	Capacity    int     `json:"capacity" validate:"required,min=1"`
	Price       float64 `json:"price" validate:"min=0"`
}

type updateSessionRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,min=1"`
	Date        *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        *string  `json:"time" validate:"omitempty,min=1"`
	Capacity    *int     `json:"capacity" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
	Status      *string  `json:"status" validate:"omitempty,oneof=active completed"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be formatted YYYY-MM-DD"})
	}

	session, err := h.service.CreateSession(c.Context(), principal, services.CreateSessionInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Time:        req.Time,
		Capacity:    req.Capacity,
		Price:       req.Price,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, limit := parsePagination(c)

	if principal.IsCoach() {
		sessions, total, err := h.service.ListCoachSessions(c.Context(), principal, page, limit)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"sessions":   sessions,
			"pagination": buildPaginationMeta(page, limit, total),
		})
	}

	sessions, total, err := h.service.ListAvailableSessions(c.Context(), principal, page, limit)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"sessions":   sessions,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetSession(c.Context(), principal, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationMessage(err)})
	}

	input := services.UpdateSessionInput{
		Title:       req.Title,
		Description: req.Description,
		Time:        req.Time,
		Capacity:    req.Capacity,
		Price:       req.Price,
		Status:      req.Status,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, strings.TrimSpace(*req.Date))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be formatted YYYY-MM-DD"})
		}
		input.Date = &date
	}

	session, err := h.service.UpdateSession(c.Context(), principal, sessionID, input)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.DeleteSession(c.Context(), principal, sessionID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Session deleted successfully"})
}

func parseSessionID(c *fiber.Ctx) (int64, error) {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return sessionID, nil
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		return strings.ToLower(first.Field()) + " failed validation on " + first.Tag()
	}
	return "Validation error"
}

func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already enrolled in this session"})
	case errors.Is(err, services.ErrSessionFull):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Session is full"})
	case errors.Is(err, services.ErrSessionNotActive):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Session is not accepting enrollments"})
	case errors.Is(err, services.ErrCapacityBelowEnrolled):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Cannot reduce capacity below the number of enrolled users"})
	case errors.Is(err, services.ErrSessionHasEnrollments):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Cannot delete a session with enrollments. Mark it as completed instead."})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTxConflict):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Temporarily unable to process request, please retry"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
