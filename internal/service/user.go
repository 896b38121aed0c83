package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

const MaxBioLength = 1000

// UserService reads and edits public profiles.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// GetProfile returns the user registered as username.
func (s *UserService) GetProfile(ctx context.Context, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required")
	}
	return s.users.GetByUsername(ctx, username)
}

// UpdateProfile replaces the profile fields of username. Only the account
// owner (actingUserID) may do so.
func (s *UserService) UpdateProfile(ctx context.Context, actingUserID, username string, p model.Profile) (*model.User, error) {
	user, err := s.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.ID != actingUserID {
		return nil, apperror.Forbidden("You can only edit your own profile")
	}

	p = trimProfile(p)
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	user.ApplyProfile(p)
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating profile of %s: %w", user.ID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

func validateProfile(p model.Profile) error {
	if len(p.Bio) > MaxBioLength {
		return apperror.ValidationFailed("bio",
			fmt.Sprintf("Bio must be %d characters or less", MaxBioLength))
	}
	links := []struct{ field, value string }{
		{"linkedin_url", p.LinkedinURL},
		{"github_url", p.GithubURL},
		{"photo_url", p.PhotoURL},
	}
	for _, l := range links {
		if l.value == "" {
			continue
		}
		u, err := url.Parse(l.value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperror.ValidationFailed(l.field, l.field+" must be an http(s) URL")
		}
	}
	return nil
}
