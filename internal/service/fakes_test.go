package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes of the repository interfaces. They copy values in and
// out so a test cannot mutate stored state by accident, and each has an err
// field to simulate a database failure.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users  map[string]model.User
	nextID int
	err    error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]model.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username already exists")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.Username == username }, username)
}

func (f *fakeUserRepo) GetByGitHubLogin(_ context.Context, login string) (*model.User, error) {
	return f.find(func(u model.User) bool { return login != "" && u.GitHubLogin == login }, login)
}

func (f *fakeUserRepo) find(match func(model.User) bool, key string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	user.UpdatedAt = time.Now()
	f.users[user.ID] = *user
	return nil
}

type fakeRevocationStore struct {
	revoked map[string]time.Time
	err     error
}

var _ repository.RevocationStore = (*fakeRevocationStore)(nil)

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{revoked: map[string]time.Time{}}
}

func (f *fakeRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.revoked[tokenID] = expiresAt
	return nil
}

func (f *fakeRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := f.revoked[tokenID]
	return ok, f.err
}

func (f *fakeRevocationStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for id, exp := range f.revoked {
		if !exp.After(now) {
			delete(f.revoked, id)
			n++
		}
	}
	return n, nil
}

type fakePromptRepo struct {
	prompts map[string]model.Prompt
	nextID  int
}

var _ repository.PromptRepository = (*fakePromptRepo)(nil)

func newFakePromptRepo() *fakePromptRepo {
	return &fakePromptRepo{prompts: map[string]model.Prompt{}}
}

func (f *fakePromptRepo) Create(_ context.Context, p *model.Prompt) error {
	f.nextID++
	p.ID = fmt.Sprintf("prompt-%03d", f.nextID)
	p.CreatedAt = time.Now()
	f.prompts[p.ID] = *p
	return nil
}

func (f *fakePromptRepo) GetByID(_ context.Context, id string) (*model.Prompt, error) {
	p, ok := f.prompts[id]
	if !ok {
		return nil, apperror.NotFound("prompt", id)
	}
	return &p, nil
}

func (f *fakePromptRepo) ListByUser(_ context.Context, userID string, opts repository.ListOptions) ([]model.Prompt, error) {
	out := []model.Prompt{}
	for _, p := range f.prompts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if opts.Offset >= len(out) {
		return []model.Prompt{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakePromptRepo) Update(_ context.Context, p *model.Prompt) error {
	if _, ok := f.prompts[p.ID]; !ok {
		return apperror.NotFound("prompt", p.ID)
	}
	f.prompts[p.ID] = *p
	return nil
}

func (f *fakePromptRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.prompts[id]; !ok {
		return apperror.NotFound("prompt", id)
	}
	delete(f.prompts, id)
	return nil
}

type fakeTaskRepo struct {
	tasks  map[string]model.Task
	nextID int
}

var _ repository.TaskRepository = (*fakeTaskRepo)(nil)

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]model.Task{}}
}

func (f *fakeTaskRepo) Create(_ context.Context, t *model.Task) error {
	f.nextID++
	t.ID = fmt.Sprintf("task-%03d", f.nextID)
	t.CreatedAt = time.Now()
	f.tasks[t.ID] = *t
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	return &t, nil
}

func (f *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]model.Task, error) {
	out := []model.Task{}
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, t *model.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return apperror.NotFound("task", t.ID)
	}
	f.tasks[t.ID] = *t
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return apperror.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}
