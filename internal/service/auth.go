// Package service holds the business rules of the VibeCoders API.
//
// Handlers parse HTTP and call a service with plain values; services validate,
// talk to repositories and return domain errors from apperror. Nothing in this
// package knows about HTTP, so the same rules apply to every caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/auth"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

const (
	MaxUsernameLength = 50
	minPasswordLength = 1
)

// Messages shown verbatim by the client.
const (
	msgCredentialsRequired = "Username and password are required"
	msgInvalidCredentials  = "Invalid credentials"
	msgUsernameTaken       = "username already exists"
)

// AuthService registers users, checks credentials and manages the lifetime
// of the bearer tokens it issues.
type AuthService struct {
	users       repository.UserRepository
	revocations repository.RevocationStore
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	revocations repository.RevocationStore,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		revocations: revocations,
		tokens:      tokens,
		passwords:   passwords,
		logger:      logger,
	}
}

// RegisterInput is everything the registration form submits.
type RegisterInput struct {
	Username string
	Password string
	Profile  model.Profile
}

// AuthResult pairs a user with a freshly issued token.
type AuthResult struct {
	User   *model.User
	Token  string
	Claims *auth.Claims
}

// Register creates a password account. It does not log the user in; the
// client sends them to the login page afterwards.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(in.Password) < minPasswordLength {
		return nil, apperror.ValidationFailed("username", msgCredentialsRequired)
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be %d characters or less", MaxUsernameLength))
	}

	profile := trimProfile(in.Profile)
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		// Only over-long passwords fail here.
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}

	user := &model.User{Username: username, PasswordHash: hash}
	user.ApplyProfile(profile)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", username))
	return user, nil
}

// Login checks a username/password pair and issues a token. Unknown users and
// wrong passwords get the same answer.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("username", msgCredentialsRequired)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed", slog.String("username", username), slog.String("reason", "unknown user"))
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("verifying password hash", slog.String("userID", user.ID), slog.String("error", err.Error()))
		}
		s.logger.Info("login failed", slog.String("username", username), slog.String("reason", "bad password"))
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	return s.issue(user)
}

// LoginWithGitHub signs in the account linked to ghUser, creating it on first
// use with the profile GitHub reports.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil || ghUser.Login == "" {
		return nil, fmt.Errorf("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetByGitHubLogin(ctx, ghUser.Login)
	switch {
	case err == nil:
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up GitHub login %q: %w", ghUser.Login, err)
	}

	user = &model.User{
		Username:    ghUser.Login,
		GitHubLogin: ghUser.Login,
		Bio:         ghUser.Bio,
		GithubURL:   ghUser.HTMLURL,
		PhotoURL:    ghUser.AvatarURL,
	}
	// The GitHub login may already belong to a password account, and so may
	// "<login>-github". The last candidate carries a unique xid suffix, so a
	// first GitHub sign-in never fails on a name clash.
	for _, name := range githubUsernames(ghUser.Login) {
		user.Username = name
		err = s.users.Create(ctx, user)
		if !errors.Is(err, apperror.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %q: %w", ghUser.Login, err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// githubUsernames lists the usernames tried, in order, for a new GitHub
// account. Each fits MaxUsernameLength.
func githubUsernames(login string) []string {
	fit := func(base, suffix string) string {
		if len(base)+len(suffix) > MaxUsernameLength {
			base = base[:MaxUsernameLength-len(suffix)]
		}
		return base + suffix
	}
	// The tail of an xid is its counter and random bytes, which is what
	// makes it unique within this process.
	id := xid.New().String()
	return []string{
		fit(login, ""),
		fit(login, "-github"),
		fit(login, "-"+id[len(id)-8:]),
	}
}

// Logout revokes the token described by claims so it stops working before it
// expires.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.TokenID == "" {
		return apperror.Unauthorized("Authentication required")
	}
	if err := s.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	s.logger.Info("user logged out", slog.String("userID", claims.UserID))
	return nil
}

// CurrentUser returns the account a token belongs to.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("Authentication required")
	}
	return s.users.GetByID(ctx, userID)
}

// PurgeRevocations drops revocations for tokens that have expired anyway.
func (s *AuthService) PurgeRevocations(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.revocations.PurgeExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("service/auth: purging revocations: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired revocations", slog.Int64("count", n))
	}
	return n, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}
	s.logger.Info("user logged in", slog.String("userID", user.ID), slog.String("username", user.Username))
	return &AuthResult{User: user, Token: token, Claims: claims}, nil
}

func trimProfile(p model.Profile) model.Profile {
	return model.Profile{
		Bio:         strings.TrimSpace(p.Bio),
		LinkedinURL: strings.TrimSpace(p.LinkedinURL),
		GithubURL:   strings.TrimSpace(p.GithubURL),
		PhotoURL:    strings.TrimSpace(p.PhotoURL),
	}
}
