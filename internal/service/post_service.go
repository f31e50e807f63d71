package service

import (
	"context"
	"fmt"
	"strings"

	"glimpse/internal/imaging"
	"glimpse/internal/middleware"
	"glimpse/internal/models"
	"glimpse/internal/repository"
	"glimpse/internal/storage"

	"github.com/google/uuid"
)

// Pagination defaults for feed and comment listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CreatePostInput holds the validated-upstream request fields for a new post.
type CreatePostInput struct {
	Caption   string
	ImageData []byte
}

// PostService defines the interface for post business logic.
// SetLiked is deliberately desired-state rather than toggle: retried
// requests converge instead of flapping the edge.
type PostService interface {
	CreatePost(ctx context.Context, userID uint, input CreatePostInput) (*models.Post, error)
	GetPost(ctx context.Context, postID uint, viewerID uint) (*models.Post, error)
	Feed(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) (*models.FeedPage, error)
	DeletePost(ctx context.Context, postID uint, userID uint) error
	SetLiked(ctx context.Context, postID uint, userID uint, liked bool) (*models.Post, error)
}

type postService struct {
	posts          repository.PostRepository
	blobs          storage.BlobStore
	maxUploadBytes int64
}

// NewPostService creates a new post service
func NewPostService(posts repository.PostRepository, blobs storage.BlobStore, maxUploadMB int) PostService {
	return &postService{
		posts:          posts,
		blobs:          blobs,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// CreatePost validates the upload, stores the original and the thumbnail
// variants in the blob store, then inserts the row. Blobs go first so a row never
// references missing media; if the insert fails the blobs are removed
// and the whole operation reports an upstream failure.
func (s *postService) CreatePost(ctx context.Context, userID uint, input CreatePostInput) (*models.Post, error) {
	caption := strings.TrimSpace(input.Caption)
	if len([]rune(caption)) > models.MaxCaptionLen {
		return nil, models.NewValidationError(fmt.Sprintf("Caption must be at most %d characters", models.MaxCaptionLen))
	}

	validated, err := imaging.Validate(input.ImageData, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}

	thumb, err := imaging.MakeThumbnail(validated.Image)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	id := uuid.New().String()
	imageKey := fmt.Sprintf("posts/%s.%s", id, validated.Format)
	thumbKey := fmt.Sprintf("thumbs/%s.webp", id)
	thumbJPEGKey := fmt.Sprintf("thumbs/%s.jpg", id)

	if err := s.blobs.Put(ctx, imageKey, validated.Data, validated.ContentType); err != nil {
		middleware.BlobOperations.WithLabelValues("put", "error").Inc()
		return nil, models.NewUpstreamError("Failed to store image", err)
	}
	if err := s.blobs.Put(ctx, thumbKey, thumb.WebP, "image/webp"); err != nil {
		middleware.BlobOperations.WithLabelValues("put", "error").Inc()
		s.discardBlobs(ctx, imageKey)
		return nil, models.NewUpstreamError("Failed to store thumbnail", err)
	}
	if err := s.blobs.Put(ctx, thumbJPEGKey, thumb.JPEG, "image/jpeg"); err != nil {
		middleware.BlobOperations.WithLabelValues("put", "error").Inc()
		s.discardBlobs(ctx, imageKey, thumbKey)
		return nil, models.NewUpstreamError("Failed to store thumbnail", err)
	}
	middleware.BlobOperations.WithLabelValues("put", "ok").Inc()

	post := &models.Post{
		Caption:      caption,
		ImageKey:     imageKey,
		ThumbKey:     thumbKey,
		ThumbJPEGKey: thumbJPEGKey,
		UserID:       userID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.discardBlobs(ctx, imageKey, thumbKey, thumbJPEGKey)
		return nil, models.NewUpstreamError("Failed to save post", err)
	}

	middleware.Logger.InfoContext(ctx, "post created", "post_id", post.ID, "user_id", userID)
	return s.GetPost(ctx, post.ID, userID)
}

// discardBlobs compensates a failed create. Failures here only log; the
// original error is what the caller needs to see.
func (s *postService) discardBlobs(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			middleware.BlobOperations.WithLabelValues("delete", "error").Inc()
			middleware.Logger.WarnContext(ctx, "failed to discard blob", "key", key, "error", err)
		}
	}
}

func (s *postService) GetPost(ctx context.Context, postID uint, viewerID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	s.populateMediaURLs(post)
	return post, nil
}

// Feed returns one page of posts, newest first. HasMore and NextOffset
// are derived from the total count taken in the same request.
func (s *postService) Feed(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) (*models.FeedPage, error) {
	limit = ClampPageSize(limit)
	if offset < 0 {
		offset = 0
	}

	posts, total, err := s.posts.List(ctx, authorID, limit, offset, viewerID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		s.populateMediaURLs(p)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	page := &models.FeedPage{
		Posts:   posts,
		HasMore: int64(offset+len(posts)) < total,
	}
	if page.HasMore {
		next := offset + len(posts)
		page.NextOffset = &next
	}
	return page, nil
}

// DeletePost removes a post owned by userID. Blob removal is best
// effort after the row cascade commits; an orphaned blob is cheaper
// than a post that half-exists.
func (s *postService) DeletePost(ctx context.Context, postID uint, userID uint) error {
	post, err := s.posts.GetByID(ctx, postID, 0)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	s.discardBlobs(ctx, post.ImageKey)
	if post.ThumbKey != "" {
		s.discardBlobs(ctx, post.ThumbKey)
	}
	if post.ThumbJPEGKey != "" {
		s.discardBlobs(ctx, post.ThumbJPEGKey)
	}
	middleware.Logger.InfoContext(ctx, "post deleted", "post_id", postID, "user_id", userID)
	return nil
}

// SetLiked converges the like edge to the desired state and returns the
// post with fresh counts. Repeats and races collapse into the same
// final state.
func (s *postService) SetLiked(ctx context.Context, postID uint, userID uint, liked bool) (*models.Post, error) {
	if _, err := s.posts.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	if liked {
		if err := s.posts.Like(ctx, userID, postID); err != nil {
			return nil, err
		}
		middleware.EngagementToggles.WithLabelValues("post_like", "on").Inc()
	} else {
		if err := s.posts.Unlike(ctx, userID, postID); err != nil {
			return nil, err
		}
		middleware.EngagementToggles.WithLabelValues("post_like", "off").Inc()
	}

	return s.GetPost(ctx, postID, userID)
}

func (s *postService) populateMediaURLs(post *models.Post) {
	post.ImageURL = s.blobs.PublicURL(post.ImageKey)
	if post.ThumbKey != "" {
		post.ThumbURL = s.blobs.PublicURL(post.ThumbKey)
	}
	if post.ThumbJPEGKey != "" {
		post.ThumbJPEGURL = s.blobs.PublicURL(post.ThumbJPEGKey)
	}
}

// ClampPageSize normalizes a requested page size to the allowed range.
func ClampPageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
