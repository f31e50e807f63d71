package server

import (
	"io"

	"glimpse/internal/models"
	"glimpse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed?limit=&offset=&author_id=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	viewerID := s.optionalViewer(c)

	var authorID *uint
	if raw := c.QueryInt("author_id", 0); raw > 0 {
		id := uint(raw)
		authorID = &id
	}

	feed, err := s.postService.Feed(c.UserContext(), authorID, page.Limit, page.Offset, viewerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(feed)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID := s.optionalViewer(c)

	post, err := s.postService.GetPost(c.UserContext(), id, viewerID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(post)
}

// CreatePost handles POST /api/posts (multipart: image file + caption field)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user, err := s.requireViewer(c)
	if err != nil {
		return nil
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded image"))
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded image"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), user.ID, service.CreatePostInput{
		Caption:   c.FormValue("caption"),
		ImageData: data,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	user, err := s.requireViewer(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), id, user.ID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.setPostLiked(c, true)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.setPostLiked(c, false)
}

// setPostLiked converges the like edge and echoes the post with fresh
// counts so optimistic clients can reconcile.
func (s *Server) setPostLiked(c *fiber.Ctx, liked bool) error {
	user, err := s.requireViewer(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.SetLiked(c.UserContext(), id, user.ID, liked)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(post)
}
