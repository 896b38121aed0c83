// Package repository declares the storage interfaces used by the service layer.
// Implementations live in the sqlite and redis sub-packages.
package repository

import (
	"context"
	"time"

	"github.com/vibecoders/vibecoders/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubLogin(ctx context.Context, login string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
}

type PromptRepository interface {
	Create(ctx context.Context, prompt *model.Prompt) error
	GetByID(ctx context.Context, id string) (*model.Prompt, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Prompt, error)
	Update(ctx context.Context, prompt *model.Prompt) error
	Delete(ctx context.Context, id string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	ListByUser(ctx context.Context, userID string) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
}

// RevocationStore remembers token IDs (JWT "jti") that were logged out before
// they expired. Entries may be dropped once expiresAt has passed.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
