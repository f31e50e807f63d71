package server

import (
	"glimpse/internal/middleware"
	"glimpse/internal/models"
	"glimpse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SyncUser handles POST /api/auth/sync
//
// Provisions the user row for the authenticated principal, or returns
// the existing row. Clients call this once after sign-in; repeats are
// harmless.
func (s *Server) SyncUser(c *fiber.Ctx) error {
	principal, _ := c.Locals(middleware.PrincipalLocal).(string)

	var req service.ProvisionInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.identityService.Provision(c.UserContext(), principal, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}
