package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibecoders/vibecoders/internal/apperror"
)

func newTestTaskService() (*TaskService, *fakeTaskRepo) {
	repo := newFakeTaskRepo()
	return NewTaskService(repo, discardLogger()), repo
}

func TestTaskCreate(t *testing.T) {
	svc, _ := newTestTaskService()

	task, err := svc.Create(context.Background(), "alice", "  buy milk ")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", task.Title)
	assert.False(t, task.Completed)

	_, err = svc.Create(context.Background(), "alice", "   ")
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "Title cannot be empty", err.Error())
}

func TestTaskList_NewestFirst(t *testing.T) {
	svc, _ := newTestTaskService()
	first, _ := svc.Create(context.Background(), "alice", "first")
	second, _ := svc.Create(context.Background(), "alice", "second")
	_, _ = svc.Create(context.Background(), "bob", "bob's")

	tasks, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
}

func TestTaskUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestTaskService()
	task, _ := svc.Create(context.Background(), "alice", "write docs")

	done := true
	updated, err := svc.Update(context.Background(), "alice", task.ID, TaskUpdate{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "write docs", updated.Title, "title untouched when not sent")

	empty := ""
	_, err = svc.Update(context.Background(), "alice", task.ID, TaskUpdate{Title: &empty})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestTask_OwnerOnly(t *testing.T) {
	svc, repo := newTestTaskService()
	task, _ := svc.Create(context.Background(), "alice", "private")

	done := true
	_, err := svc.Update(context.Background(), "bob", task.ID, TaskUpdate{Completed: &done})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "bob", task.ID), apperror.ErrNotFound)
	assert.Len(t, repo.tasks, 1)

	require.NoError(t, svc.Delete(context.Background(), "alice", task.ID))
	assert.Empty(t, repo.tasks)
}
