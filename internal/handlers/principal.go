package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/DRrook/YallaFit/internal/models"
)

// principalFromCtx rebuilds the authenticated principal from the locals
// the auth middleware stored.
func principalFromCtx(c *fiber.Ctx) (models.Principal, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return models.Principal{}, strconv.ErrSyntax
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return models.Principal{}, strconv.ErrSyntax
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{ID: userID, Role: role}, nil
}
