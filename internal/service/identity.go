// Package service implements business logic for the application.
package service

import (
	"context"
	"strings"

	"glimpse/internal/middleware"
	"glimpse/internal/models"
	"glimpse/internal/repository"
)

// IdentityService resolves authenticated principals to application users
// and provisions new accounts. Resolution fails closed: a valid token
// whose subject has no user row is rejected, never auto-created.
type IdentityService interface {
	Resolve(ctx context.Context, principal string) (*models.User, error)
	Provision(ctx context.Context, principal string, input ProvisionInput) (*models.User, error)
}

// ProvisionInput carries the profile fields for account provisioning.
type ProvisionInput struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type identityService struct {
	users repository.UserRepository
}

// NewIdentityService creates a new identity service
func NewIdentityService(users repository.UserRepository) IdentityService {
	return &identityService{users: users}
}

func (s *identityService) Resolve(ctx context.Context, principal string) (*models.User, error) {
	if principal == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.users.GetByExternalID(ctx, principal)
}

// Provision creates the user row for a principal, or returns the existing
// row unchanged. Safe to call on every sign-in.
func (s *identityService) Provision(ctx context.Context, principal string, input ProvisionInput) (*models.User, error) {
	if principal == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	existing, err := s.users.GetByExternalID(ctx, principal)
	if err == nil {
		return existing, nil
	}
	if appErr, ok := err.(*models.AppError); !ok || appErr.Code != models.CodeUserNotFound {
		return nil, err
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}
	if len(username) > 30 {
		return nil, models.NewValidationError("Username must be at most 30 characters")
	}

	user := &models.User{
		ExternalID:  principal,
		Username:    username,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Avatar:      input.Avatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent sync for the same principal may have won the
		// insert; re-resolve before reporting failure.
		if won, getErr := s.users.GetByExternalID(ctx, principal); getErr == nil {
			return won, nil
		}
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "provisioned user",
		"user_id", user.ID,
		"username", user.Username,
	)
	return user, nil
}
