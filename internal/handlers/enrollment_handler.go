package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/DRrook/YallaFit/internal/models"
	"github.com/DRrook/YallaFit/internal/services"
)

type enrollmentApplicationService interface {
	Enroll(ctx context.Context, principal models.Principal, sessionID int64, requestedStatus string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, principal models.Principal, enrollmentID int64, requestedStatus string) (*models.Enrollment, error)
	Cancel(ctx context.Context, principal models.Principal, enrollmentID int64) (*models.Enrollment, error)
	ListForSession(ctx context.Context, principal models.Principal, sessionID int64) ([]models.EnrollmentDetail, error)
	ListForUser(ctx context.Context, principal models.Principal) ([]models.EnrollmentDetail, error)
}

type EnrollmentHandler struct {
	service enrollmentApplicationService
}

func NewEnrollmentHandler(service *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

type enrollRequest struct {
	Status string `json:"status"`
}

type updateEnrollmentStatusRequest struct {
	Status string `json:"status"`
}

func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	// Body is optional; an empty one enrolls straight into confirmed.
	var req enrollRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	enrollment, err := h.service.Enroll(c.Context(), principal, sessionID, req.Status)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"enrollment": enrollment})
}

func (h *EnrollmentHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	enrollmentID, err := parseEnrollmentID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid enrollment id"})
	}

	var req updateEnrollmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	enrollment, err := h.service.UpdateStatus(c.Context(), principal, enrollmentID, req.Status)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"enrollment": enrollment})
}

func (h *EnrollmentHandler) Cancel(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	enrollmentID, err := parseEnrollmentID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid enrollment id"})
	}

	enrollment, err := h.service.Cancel(c.Context(), principal, enrollmentID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"enrollment": enrollment})
}

func (h *EnrollmentHandler) ListSessionEnrollments(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := parseSessionID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	enrollments, err := h.service.ListForSession(c.Context(), principal, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}

func (h *EnrollmentHandler) ListMyEnrollments(c *fiber.Ctx) error {
	principal, err := principalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	enrollments, err := h.service.ListForUser(c.Context(), principal)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}

func parseEnrollmentID(c *fiber.Ctx) (int64, error) {
	enrollmentID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || enrollmentID <= 0 {
		return 0, strconv.ErrSyntax
	}
	return enrollmentID, nil
}
