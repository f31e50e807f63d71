// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"glimpse/internal/cache"
	"glimpse/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
// List is the feed paginator: time-ordered, offset-paginated, optionally
// filtered by author, with aggregate counts and the viewer's liked flag
// computed in the same query.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error)
	Delete(ctx context.Context, id uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, post.UserID)
	return nil
}

// cachedPost carries the blob keys alongside the row; they are json:"-"
// on the model so a plain round trip through Redis would drop them.
type cachedPost struct {
	Post         models.Post `json:"post"`
	ImageKey     string      `json:"image_key"`
	ThumbKey     string      `json:"thumb_key"`
	ThumbJPEGKey string      `json:"thumb_jpeg_key"`
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	// Only the viewer-less view is cacheable; personalized reads carry
	// the viewer's liked flag and always hit the relations.
	if viewerID != 0 {
		return r.fetchByID(ctx, id, viewerID)
	}

	var cached cachedPost
	err := cache.Aside(ctx, cache.PostKey(id), &cached, cache.PostTTL, func() error {
		post, err := r.fetchByID(ctx, id, 0)
		if err != nil {
			return err
		}
		cached = cachedPost{
			Post:         *post,
			ImageKey:     post.ImageKey,
			ThumbKey:     post.ThumbKey,
			ThumbJPEGKey: post.ThumbJPEGKey,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	post := cached.Post
	post.ImageKey = cached.ImageKey
	post.ThumbKey = cached.ThumbKey
	post.ThumbJPEGKey = cached.ThumbJPEGKey
	return &post, nil
}

func (r *postRepository) fetchByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Preload("User").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Post{})
	if authorID != nil {
		base = base.Where("posts.user_id = ?", *authorID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	// Ties on created_at are broken by id so pages never overlap.
	err := r.applyPostDetails(base.Session(&gorm.Session{}), viewerID).
		Preload("User").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked", viewerID)
	}

	return db.Select(selectQuery + ", false as liked")
}

// Delete removes the post and every engagement edge hanging off it:
// likes of the post, comment-likes of its comments, and the comments
// themselves. All rows go in one transaction so a partial cascade never
// becomes visible.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	var authorID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "user_id").First(&post, id).Error; err != nil {
			return err
		}
		authorID = post.UserID
		if err := tx.Unscoped().
			Where("comment_id IN (?)", tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)).
			Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	// The author's profile carries posts_count, so it goes stale too.
	cache.InvalidatePost(ctx, id)
	cache.InvalidateUser(ctx, authorID)
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	// INSERT ... ON CONFLICT DO NOTHING makes a duplicate "add" from a
	// racing request an idempotent success instead of a constraint error.
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (user_id, post_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	// Removing an absent edge is a no-op success; the edge is binary.
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}
