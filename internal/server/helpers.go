package server

import (
	"context"
	"errors"

	"glimpse/internal/middleware"
	"glimpse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// requireViewer resolves the authenticated principal to its user row.
// A valid token whose subject was never provisioned is rejected with 403,
// never auto-created. On failure the response is already written and
// errResponseWritten is returned.
func (s *Server) requireViewer(c *fiber.Ctx) (*models.User, error) {
	principal, _ := c.Locals(middleware.PrincipalLocal).(string)
	user, err := s.identityService.Resolve(c.UserContext(), principal)
	if err != nil {
		_ = models.RespondWithAppError(c, err)
		return nil, errResponseWritten
	}

	// Make the resolved user id visible to the context-aware logger.
	c.Locals("userID", user.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID))
	return user, nil
}

// optionalViewer resolves the principal when present, returning 0 for
// anonymous requests or unprovisioned principals. Read endpoints use the
// result only to personalize is_liked/is_following.
func (s *Server) optionalViewer(c *fiber.Ctx) uint {
	principal, _ := c.Locals(middleware.PrincipalLocal).(string)
	if principal == "" {
		return 0
	}
	user, err := s.identityService.Resolve(c.UserContext(), principal)
	if err != nil {
		return 0
	}
	return user.ID
}
