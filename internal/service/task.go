package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

const MaxTaskTitleLength = 200

// TaskUpdate carries the fields a PUT may change. Nil means unchanged.
type TaskUpdate struct {
	Title     *string
	Completed *bool
}

// TaskService manages a user's task list.
type TaskService struct {
	repo   repository.TaskRepository
	logger *slog.Logger
}

func NewTaskService(repo repository.TaskRepository, logger *slog.Logger) *TaskService {
	return &TaskService{repo: repo, logger: logger}
}

func (s *TaskService) Create(ctx context.Context, userID, title string) (*model.Task, error) {
	title, err := validateTaskTitle(title)
	if err != nil {
		return nil, err
	}

	task := &model.Task{UserID: userID, Title: title}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: creating task: %w", err)
	}

	s.logger.Info("task created", slog.String("id", task.ID), slog.String("userID", userID))
	return task, nil
}

// List returns the user's tasks, newest first.
func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/task: listing tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id string, upd TaskUpdate) (*model.Task, error) {
	task, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title, err := validateTaskTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		task.Title = title
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: updating task %s: %w", id, err)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", slog.String("id", id))
	return nil
}

func (s *TaskService) owned(ctx context.Context, userID, id string) (*model.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "Task ID is required")
	}
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, apperror.NotFound("task", id)
	}
	return task, nil
}

func validateTaskTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "Title cannot be empty")
	}
	if len(title) > MaxTaskTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be %d characters or less", MaxTaskTitleLength))
	}
	return title, nil
}
