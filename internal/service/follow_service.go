package service

import (
	"context"

	"glimpse/internal/middleware"
	"glimpse/internal/models"
	"glimpse/internal/repository"
)

// FollowService defines the interface for follow edge business logic.
type FollowService interface {
	SetFollowing(ctx context.Context, followerID, followeeID uint, following bool) error
}

type followService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

// NewFollowService creates a new follow service
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) FollowService {
	return &followService{follows: follows, users: users}
}

// SetFollowing converges the follow edge to the desired state. Following
// yourself is rejected; following a missing user is a 404.
func (s *followService) SetFollowing(ctx context.Context, followerID, followeeID uint, following bool) error {
	if followerID == followeeID {
		return models.NewSelfFollowError()
	}
	if _, err := s.users.GetByID(ctx, followeeID); err != nil {
		return err
	}

	if following {
		if err := s.follows.Follow(ctx, followerID, followeeID); err != nil {
			return err
		}
		middleware.EngagementToggles.WithLabelValues("follow", "on").Inc()
	} else {
		if err := s.follows.Unfollow(ctx, followerID, followeeID); err != nil {
			return err
		}
		middleware.EngagementToggles.WithLabelValues("follow", "off").Inc()
	}
	return nil
}
