package service

import (
	"context"
	"fmt"
	"strings"

	"glimpse/internal/middleware"
	"glimpse/internal/models"
	"glimpse/internal/repository"
)

// CreateCommentInput holds the request fields for a new comment.
type CreateCommentInput struct {
	Content string `json:"content"`
}

// CommentService defines the interface for comment business logic.
type CommentService interface {
	CreateComment(ctx context.Context, postID uint, userID uint, input CreateCommentInput) (*models.Comment, error)
	ListComments(ctx context.Context, postID uint, limit, offset int, viewerID uint) (*models.CommentPage, error)
	DeleteComment(ctx context.Context, commentID uint, userID uint) error
	SetLiked(ctx context.Context, commentID uint, userID uint, liked bool) (*models.Comment, error)
}

type commentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
}

// NewCommentService creates a new comment service
func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) CommentService {
	return &commentService{comments: comments, posts: posts}
}

func (s *commentService) CreateComment(ctx context.Context, postID uint, userID uint, input CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len([]rune(content)) > models.MaxCommentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Comment must be at most %d characters", models.MaxCommentLen))
	}

	// The parent must still exist; commenting on a deleted post is a 404.
	if _, err := s.posts.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content: content,
		UserID:  userID,
		PostID:  postID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, comment.ID, userID)
}

// ListComments pages through a post's comments newest first. A deleted
// or unknown post yields an empty page rather than an error so stale
// clients degrade quietly.
func (s *commentService) ListComments(ctx context.Context, postID uint, limit, offset int, viewerID uint) (*models.CommentPage, error) {
	limit = ClampPageSize(limit)
	if offset < 0 {
		offset = 0
	}

	comments, total, err := s.comments.ListByPost(ctx, postID, limit, offset, viewerID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	page := &models.CommentPage{
		Comments: comments,
		HasMore:  int64(offset+len(comments)) < total,
	}
	if page.HasMore {
		next := offset + len(comments)
		page.NextOffset = &next
	}
	return page, nil
}

func (s *commentService) DeleteComment(ctx context.Context, commentID uint, userID uint) error {
	comment, err := s.comments.GetByID(ctx, commentID, 0)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewForbiddenError("You can only delete your own comments")
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "comment deleted", "comment_id", commentID, "user_id", userID)
	return nil
}

func (s *commentService) SetLiked(ctx context.Context, commentID uint, userID uint, liked bool) (*models.Comment, error) {
	if _, err := s.comments.GetByID(ctx, commentID, 0); err != nil {
		return nil, err
	}

	if liked {
		if err := s.comments.Like(ctx, userID, commentID); err != nil {
			return nil, err
		}
		middleware.EngagementToggles.WithLabelValues("comment_like", "on").Inc()
	} else {
		if err := s.comments.Unlike(ctx, userID, commentID); err != nil {
			return nil, err
		}
		middleware.EngagementToggles.WithLabelValues("comment_like", "off").Inc()
	}

	return s.comments.GetByID(ctx, commentID, userID)
}
