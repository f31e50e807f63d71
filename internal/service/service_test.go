package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"glimpse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Function-field stubs keep each test focused on the branch it exercises.

type stubUserRepo struct {
	createFn          func(ctx context.Context, user *models.User) error
	getByIDFn         func(ctx context.Context, id uint) (*models.User, error)
	getByExternalIDFn func(ctx context.Context, externalID string) (*models.User, error)
	statsFn           func(ctx context.Context, userID uint) (*models.UserStats, error)
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *stubUserRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.getByExternalIDFn(ctx, externalID)
}
func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, models.NewNotFoundError("User", username)
}
func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (s *stubUserRepo) Stats(ctx context.Context, userID uint) (*models.UserStats, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx, userID)
	}
	return &models.UserStats{}, nil
}

type stubPostRepo struct {
	createFn  func(ctx context.Context, post *models.Post) error
	getByIDFn func(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	listFn    func(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error)
	deleteFn  func(ctx context.Context, id uint) error
	likeFn    func(ctx context.Context, userID, postID uint) error
	unlikeFn  func(ctx context.Context, userID, postID uint) error
}

func (s *stubPostRepo) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *stubPostRepo) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *stubPostRepo) List(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
	return s.listFn(ctx, authorID, limit, offset, viewerID)
}
func (s *stubPostRepo) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *stubPostRepo) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return false, nil
}
func (s *stubPostRepo) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *stubPostRepo) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}

type stubCommentRepo struct {
	createFn     func(ctx context.Context, comment *models.Comment) error
	getByIDFn    func(ctx context.Context, id uint, viewerID uint) (*models.Comment, error)
	listByPostFn func(ctx context.Context, postID uint, limit, offset int, viewerID uint) ([]*models.Comment, int64, error)
	deleteFn     func(ctx context.Context, id uint) error
	likeFn       func(ctx context.Context, userID, commentID uint) error
	unlikeFn     func(ctx context.Context, userID, commentID uint) error
}

func (s *stubCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *stubCommentRepo) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *stubCommentRepo) ListByPost(ctx context.Context, postID uint, limit, offset int, viewerID uint) ([]*models.Comment, int64, error) {
	return s.listByPostFn(ctx, postID, limit, offset, viewerID)
}
func (s *stubCommentRepo) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *stubCommentRepo) Like(ctx context.Context, userID, commentID uint) error {
	return s.likeFn(ctx, userID, commentID)
}
func (s *stubCommentRepo) Unlike(ctx context.Context, userID, commentID uint) error {
	return s.unlikeFn(ctx, userID, commentID)
}

type stubFollowRepo struct {
	followFn      func(ctx context.Context, followerID, followeeID uint) error
	unfollowFn    func(ctx context.Context, followerID, followeeID uint) error
	isFollowingFn func(ctx context.Context, followerID, followeeID uint) (bool, error)
}

func (s *stubFollowRepo) Follow(ctx context.Context, followerID, followeeID uint) error {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *stubFollowRepo) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return s.unfollowFn(ctx, followerID, followeeID)
}
func (s *stubFollowRepo) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	if s.isFollowingFn != nil {
		return s.isFollowingFn(ctx, followerID, followeeID)
	}
	return false, nil
}
func (s *stubFollowRepo) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return 0, nil
}
func (s *stubFollowRepo) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return 0, nil
}

type stubBlobStore struct {
	putFn    func(ctx context.Context, key string, data []byte, contentType string) error
	deleteFn func(ctx context.Context, key string) error
}

func (s *stubBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.putFn != nil {
		return s.putFn(ctx, key, data, contentType)
	}
	return nil
}
func (s *stubBlobStore) Delete(ctx context.Context, key string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, key)
	}
	return nil
}
func (s *stubBlobStore) PublicURL(key string) string { return "http://media.test/" + key }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestIdentityService_ResolveFailsClosed(t *testing.T) {
	svc := NewIdentityService(&stubUserRepo{
		getByExternalIDFn: func(ctx context.Context, externalID string) (*models.User, error) {
			return nil, models.NewUserNotFoundError(externalID)
		},
	})

	_, err := svc.Resolve(context.Background(), "")
	assert.Equal(t, models.CodeUnauthorized, appCode(t, err))

	_, err = svc.Resolve(context.Background(), "ext-ghost")
	assert.Equal(t, models.CodeUserNotFound, appCode(t, err))
}

func TestIdentityService_ProvisionIsIdempotent(t *testing.T) {
	existing := &models.User{ID: 3, ExternalID: "ext-alice", Username: "alice"}
	created := 0
	svc := NewIdentityService(&stubUserRepo{
		getByExternalIDFn: func(ctx context.Context, externalID string) (*models.User, error) {
			return existing, nil
		},
		createFn: func(ctx context.Context, user *models.User) error {
			created++
			return nil
		},
	})

	user, err := svc.Provision(context.Background(), "ext-alice", ProvisionInput{Username: "other"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, "alice", user.Username, "existing row must come back unchanged")
	assert.Zero(t, created)
}

func TestIdentityService_ProvisionCreatesNewUser(t *testing.T) {
	var created *models.User
	svc := NewIdentityService(&stubUserRepo{
		getByExternalIDFn: func(ctx context.Context, externalID string) (*models.User, error) {
			return nil, models.NewUserNotFoundError(externalID)
		},
		createFn: func(ctx context.Context, user *models.User) error {
			user.ID = 42
			created = user
			return nil
		},
	})

	user, err := svc.Provision(context.Background(), "ext-bob", ProvisionInput{Username: " bob "})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "ext-bob", user.ExternalID)
	assert.Equal(t, "bob", user.Username)

	_, err = svc.Provision(context.Background(), "ext-carol", ProvisionInput{Username: "  "})
	assert.Equal(t, models.CodeValidation, appCode(t, err))
}

func TestPostService_CreatePostValidation(t *testing.T) {
	svc := NewPostService(&stubPostRepo{}, &stubBlobStore{}, 5)

	_, err := svc.CreatePost(context.Background(), 1, CreatePostInput{
		Caption:   strings.Repeat("x", models.MaxCaptionLen+1),
		ImageData: pngBytes(t, 10, 10),
	})
	assert.Equal(t, models.CodeValidation, appCode(t, err))

	_, err = svc.CreatePost(context.Background(), 1, CreatePostInput{
		Caption:   "ok",
		ImageData: []byte("definitely not an image"),
	})
	assert.Equal(t, models.CodeValidation, appCode(t, err))
}

func TestPostService_CreatePostStoresBlobsThenRow(t *testing.T) {
	var putKeys []string
	blobs := &stubBlobStore{
		putFn: func(ctx context.Context, key string, data []byte, contentType string) error {
			putKeys = append(putKeys, key)
			return nil
		},
	}
	posts := &stubPostRepo{
		createFn: func(ctx context.Context, post *models.Post) error {
			assert.Len(t, putKeys, 3, "blobs must be stored before the row")
			post.ID = 7
			return nil
		},
		getByIDFn: func(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: viewerID, ImageKey: putKeys[0], ThumbKey: putKeys[1], ThumbJPEGKey: putKeys[2]}, nil
		},
	}

	svc := NewPostService(posts, blobs, 5)
	post, err := svc.CreatePost(context.Background(), 1, CreatePostInput{
		Caption:   "  hello  ",
		ImageData: pngBytes(t, 64, 32),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, post.ID)
	assert.Contains(t, post.ImageURL, "http://media.test/posts/")
	assert.Contains(t, post.ThumbURL, "http://media.test/thumbs/")
	assert.Contains(t, post.ThumbURL, ".webp")
	assert.Contains(t, post.ThumbJPEGURL, ".jpg")
}

func TestPostService_CreatePostCompensatesFailedInsert(t *testing.T) {
	var deleted []string
	blobs := &stubBlobStore{
		deleteFn: func(ctx context.Context, key string) error {
			deleted = append(deleted, key)
			return nil
		},
	}
	posts := &stubPostRepo{
		createFn: func(ctx context.Context, post *models.Post) error {
			return models.NewInternalError(errors.New("insert failed"))
		},
	}

	svc := NewPostService(posts, blobs, 5)
	_, err := svc.CreatePost(context.Background(), 1, CreatePostInput{
		Caption:   "doomed",
		ImageData: pngBytes(t, 10, 10),
	})
	assert.Equal(t, models.CodeUpstreamFailure, appCode(t, err))
	assert.Len(t, deleted, 3, "all blobs must be discarded after a failed insert")
}

func TestPostService_CreatePostUpstreamPutFailure(t *testing.T) {
	blobs := &stubBlobStore{
		putFn: func(ctx context.Context, key string, data []byte, contentType string) error {
			return errors.New("s3 down")
		},
	}
	inserted := false
	posts := &stubPostRepo{
		createFn: func(ctx context.Context, post *models.Post) error {
			inserted = true
			return nil
		},
	}

	svc := NewPostService(posts, blobs, 5)
	_, err := svc.CreatePost(context.Background(), 1, CreatePostInput{
		Caption:   "x",
		ImageData: pngBytes(t, 10, 10),
	})
	assert.Equal(t, models.CodeUpstreamFailure, appCode(t, err))
	assert.False(t, inserted, "no row may reference media that was never stored")
}

func TestPostService_DeletePostOwnershipEnforced(t *testing.T) {
	posts := &stubPostRepo{
		getByIDFn: func(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2, ImageKey: "posts/a.jpg"}, nil
		},
	}
	svc := NewPostService(posts, &stubBlobStore{}, 5)

	err := svc.DeletePost(context.Background(), 1, 99)
	assert.Equal(t, models.CodeForbidden, appCode(t, err))
}

func TestPostService_DeletePostRemovesBlobsBestEffort(t *testing.T) {
	var deleted []string
	blobs := &stubBlobStore{
		deleteFn: func(ctx context.Context, key string) error {
			deleted = append(deleted, key)
			return errors.New("flaky store")
		},
	}
	posts := &stubPostRepo{
		getByIDFn: func(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 2, ImageKey: "posts/a.jpg", ThumbKey: "thumbs/a.webp", ThumbJPEGKey: "thumbs/a.jpg"}, nil
		},
		deleteFn: func(ctx context.Context, id uint) error { return nil },
	}

	svc := NewPostService(posts, blobs, 5)
	err := svc.DeletePost(context.Background(), 1, 2)
	require.NoError(t, err, "blob failures after the cascade must not fail the delete")
	assert.Equal(t, []string{"posts/a.jpg", "thumbs/a.webp", "thumbs/a.jpg"}, deleted)
}

func TestPostService_FeedPagination(t *testing.T) {
	posts := &stubPostRepo{
		listFn: func(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
			assert.Equal(t, DefaultPageSize, limit, "zero limit falls back to the default")
			page := make([]*models.Post, limit)
			for i := range page {
				page[i] = &models.Post{ID: uint(offset + i + 1), ImageKey: "posts/x.jpg"}
			}
			return page, 25, nil
		},
	}
	svc := NewPostService(posts, &stubBlobStore{}, 5)

	page, err := svc.Feed(context.Background(), nil, 0, 0, 0)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextOffset)
	assert.Equal(t, DefaultPageSize, *page.NextOffset)
	assert.NotEmpty(t, page.Posts[0].ImageURL)
}

func TestPostService_FeedLastPage(t *testing.T) {
	posts := &stubPostRepo{
		listFn: func(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
			return []*models.Post{{ID: 25, ImageKey: "posts/x.jpg"}}, 25, nil
		},
	}
	svc := NewPostService(posts, &stubBlobStore{}, 5)

	page, err := svc.Feed(context.Background(), nil, 10, 24, 0)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextOffset)
}

func TestPostService_FeedBeyondTotalIsEmptyNotNil(t *testing.T) {
	posts := &stubPostRepo{
		listFn: func(ctx context.Context, authorID *uint, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
			return nil, 3, nil
		},
	}
	svc := NewPostService(posts, &stubBlobStore{}, 5)

	page, err := svc.Feed(context.Background(), nil, 10, 50, 0)
	require.NoError(t, err)
	require.NotNil(t, page.Posts, "an empty page must serialize as [] not null")
	assert.Empty(t, page.Posts)
	assert.False(t, page.HasMore)
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ClampPageSize(0))
	assert.Equal(t, DefaultPageSize, ClampPageSize(-3))
	assert.Equal(t, 42, ClampPageSize(42))
	assert.Equal(t, MaxPageSize, ClampPageSize(5000))
}

func TestCommentService_Validation(t *testing.T) {
	svc := NewCommentService(&stubCommentRepo{}, &stubPostRepo{})

	_, err := svc.CreateComment(context.Background(), 1, 1, CreateCommentInput{Content: "   "})
	assert.Equal(t, models.CodeValidation, appCode(t, err))

	_, err = svc.CreateComment(context.Background(), 1, 1, CreateCommentInput{
		Content: strings.Repeat("y", models.MaxCommentLen+1),
	})
	assert.Equal(t, models.CodeValidation, appCode(t, err))
}

func TestCommentService_CreateRequiresLivePost(t *testing.T) {
	posts := &stubPostRepo{
		getByIDFn: func(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
	}
	svc := NewCommentService(&stubCommentRepo{}, posts)

	_, err := svc.CreateComment(context.Background(), 9, 1, CreateCommentInput{Content: "hi"})
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestCommentService_DeleteOwnershipEnforced(t *testing.T) {
	comments := &stubCommentRepo{
		getByIDFn: func(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
			return &models.Comment{ID: id, UserID: 5}, nil
		},
	}
	svc := NewCommentService(comments, &stubPostRepo{})

	err := svc.DeleteComment(context.Background(), 1, 99)
	assert.Equal(t, models.CodeForbidden, appCode(t, err))
}

func TestCommentService_ListEmptyForDeletedPost(t *testing.T) {
	comments := &stubCommentRepo{
		listByPostFn: func(ctx context.Context, postID uint, limit, offset int, viewerID uint) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
	}
	svc := NewCommentService(comments, &stubPostRepo{})

	page, err := svc.ListComments(context.Background(), 404, 10, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Comments)
	assert.Empty(t, page.Comments)
	assert.False(t, page.HasMore)
}

func TestFollowService_SelfFollowRejected(t *testing.T) {
	svc := NewFollowService(&stubFollowRepo{}, &stubUserRepo{})

	err := svc.SetFollowing(context.Background(), 7, 7, true)
	assert.Equal(t, models.CodeSelfFollow, appCode(t, err))
}

func TestFollowService_SetFollowing(t *testing.T) {
	calls := []string{}
	follows := &stubFollowRepo{
		followFn: func(ctx context.Context, followerID, followeeID uint) error {
			calls = append(calls, "follow")
			return nil
		},
		unfollowFn: func(ctx context.Context, followerID, followeeID uint) error {
			calls = append(calls, "unfollow")
			return nil
		},
	}
	users := &stubUserRepo{
		getByIDFn: func(ctx context.Context, id uint) (*models.User, error) {
			if id == 404 {
				return nil, models.NewNotFoundError("User", id)
			}
			return &models.User{ID: id}, nil
		},
	}
	svc := NewFollowService(follows, users)

	require.NoError(t, svc.SetFollowing(context.Background(), 1, 2, true))
	require.NoError(t, svc.SetFollowing(context.Background(), 1, 2, false))
	assert.Equal(t, []string{"follow", "unfollow"}, calls)

	err := svc.SetFollowing(context.Background(), 1, 404, true)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestUserService_Profile(t *testing.T) {
	users := &stubUserRepo{
		getByIDFn: func(ctx context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice"}, nil
		},
		statsFn: func(ctx context.Context, userID uint) (*models.UserStats, error) {
			return &models.UserStats{PostsCount: 3, FollowersCount: 2, FollowingCount: 1}, nil
		},
	}
	follows := &stubFollowRepo{
		isFollowingFn: func(ctx context.Context, followerID, followeeID uint) (bool, error) {
			return true, nil
		},
	}
	svc := NewUserService(users, follows)

	profile, err := svc.Profile(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.User.Username)
	assert.EqualValues(t, 3, profile.Stats.PostsCount)
	assert.True(t, profile.IsFollowing)

	// Viewing your own profile never reports is_following.
	profile, err = svc.Profile(context.Background(), 5, 5)
	require.NoError(t, err)
	assert.False(t, profile.IsFollowing)
}
