package service

import (
	"context"

	"glimpse/internal/cache"
	"glimpse/internal/models"
	"glimpse/internal/repository"
)

// UserService defines the interface for user profile business logic.
type UserService interface {
	Profile(ctx context.Context, userID uint, viewerID uint) (*models.Profile, error)
}

type userService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, follows repository.FollowRepository) UserService {
	return &userService{users: users, follows: follows}
}

// Profile assembles the profile read model. The user row and stats are
// cached together; is_following is viewer-specific so it is always read
// fresh from the edge table.
func (s *userService) Profile(ctx context.Context, userID uint, viewerID uint) (*models.Profile, error) {
	type cachedProfile struct {
		User  *models.User     `json:"user"`
		Stats models.UserStats `json:"stats"`
	}

	var base cachedProfile
	err := cache.Aside(ctx, cache.ProfileKey(userID), &base, cache.ProfileTTL, func() error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		stats, err := s.users.Stats(ctx, userID)
		if err != nil {
			return err
		}
		base = cachedProfile{User: user, Stats: *stats}
		return nil
	})
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{User: base.User, Stats: base.Stats}
	if viewerID != 0 && viewerID != userID {
		following, err := s.follows.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
		profile.IsFollowing = following
	}
	return profile, nil
}
