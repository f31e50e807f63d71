package server

import (
	"glimpse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID := s.optionalViewer(c)

	profile, err := s.userService.Profile(c.UserContext(), id, viewerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(profile)
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	return s.setFollowing(c, true)
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	return s.setFollowing(c, false)
}

// setFollowing converges the follow edge and echoes the followee profile
// with fresh counts so optimistic clients can reconcile.
func (s *Server) setFollowing(c *fiber.Ctx, following bool) error {
	user, err := s.requireViewer(c)
	if err != nil {
		return nil
	}
	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.followService.SetFollowing(c.UserContext(), user.ID, followeeID, following); err != nil {
		return models.RespondWithAppError(c, err)
	}

	profile, err := s.userService.Profile(c.UserContext(), followeeID, user.ID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(profile)
}
