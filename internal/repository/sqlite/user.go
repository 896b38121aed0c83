package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

// UserDB is the users-table view of DB.
type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

// Users returns the UserRepository backed by db.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

const userColumns = `id, username, password_hash, bio, linkedin_url, github_url,
	photo_url, github_login, created_at, updated_at`

// Create inserts a new user, assigning ID and timestamps in place.
// A taken username yields apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, bio, linkedin_url, github_url,
			photo_url, github_login, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Bio,
		user.LinkedinURL,
		user.GithubURL,
		user.PhotoURL,
		user.GitHubLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username already exists")
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByUsername retrieves a user by exact username.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return user, nil
}

// GetByGitHubLogin retrieves the account linked to a GitHub login.
func (u *UserDB) GetByGitHubLogin(ctx context.Context, login string) (*model.User, error) {
	if login == "" {
		return nil, apperror.NotFound("user", "github:")
	}
	user, err := u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE github_login = ?`, login)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", "github:"+login)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by github login %q: %w", login, err)
	}
	return user, nil
}

// UpdateProfile rewrites the editable profile fields and updated_at.
func (u *UserDB) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users
		 SET bio = ?, linkedin_url = ?, github_url = ?, photo_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.Bio,
		user.LinkedinURL,
		user.GithubURL,
		user.PhotoURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

func (u *UserDB) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := u.conn.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Bio,
		&user.LinkedinURL,
		&user.GithubURL,
		&user.PhotoURL,
		&user.GitHubLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
