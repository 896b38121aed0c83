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

const (
	MaxPromptTitleLength = 200
	MaxPromptContentSize = 20_000
	MaxPromptTags        = 10
	MaxTagLength         = 30

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PromptInput is the editable part of a prompt.
type PromptInput struct {
	Title   string
	Content string
	Tags    []string
}

// PromptService manages a user's shared prompts. Every operation is scoped to
// the owner; other users' prompts read as not found.
type PromptService struct {
	repo   repository.PromptRepository
	logger *slog.Logger
}

func NewPromptService(repo repository.PromptRepository, logger *slog.Logger) *PromptService {
	return &PromptService{repo: repo, logger: logger}
}

func (s *PromptService) Create(ctx context.Context, userID string, in PromptInput) (*model.Prompt, error) {
	in, err := normalizePrompt(in)
	if err != nil {
		return nil, err
	}

	prompt := &model.Prompt{
		UserID:  userID,
		Title:   in.Title,
		Content: in.Content,
		Tags:    in.Tags,
	}
	if err := s.repo.Create(ctx, prompt); err != nil {
		s.logger.Error("failed to create prompt",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/prompt: creating prompt: %w", err)
	}

	s.logger.Info("prompt created", slog.String("id", prompt.ID), slog.String("userID", userID))
	return prompt, nil
}

// Get returns the prompt if userID owns it.
func (s *PromptService) Get(ctx context.Context, userID, id string) (*model.Prompt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "Prompt ID is required")
	}

	prompt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Hide the existence of other users' prompts.
	if prompt.UserID != userID {
		return nil, apperror.NotFound("prompt", id)
	}
	return prompt, nil
}

// List pages through the user's prompts, newest first.
func (s *PromptService) List(ctx context.Context, userID string, limit, offset int) ([]model.Prompt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	prompts, err := s.repo.ListByUser(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/prompt: listing prompts: %w", err)
	}
	return prompts, nil
}

// Update replaces title, content and tags of a prompt the user owns.
func (s *PromptService) Update(ctx context.Context, userID, id string, in PromptInput) (*model.Prompt, error) {
	prompt, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in, err = normalizePrompt(in)
	if err != nil {
		return nil, err
	}

	prompt.Title = in.Title
	prompt.Content = in.Content
	prompt.Tags = in.Tags
	if err := s.repo.Update(ctx, prompt); err != nil {
		return nil, fmt.Errorf("service/prompt: updating prompt %s: %w", id, err)
	}

	s.logger.Info("prompt updated", slog.String("id", id))
	return prompt, nil
}

func (s *PromptService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("prompt deleted", slog.String("id", id))
	return nil
}

// normalizePrompt trims fields, drops blank and duplicate tags (keeping the
// first occurrence) and enforces the size limits.
func normalizePrompt(in PromptInput) (PromptInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, apperror.ValidationFailed("title", "Title cannot be empty")
	}
	if len(in.Title) > MaxPromptTitleLength {
		return in, apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be %d characters or less", MaxPromptTitleLength))
	}
	if len(in.Content) > MaxPromptContentSize {
		return in, apperror.ValidationFailed("content",
			fmt.Sprintf("Content must be %d characters or less", MaxPromptContentSize))
	}

	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]bool, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if len(tag) > MaxTagLength {
			return in, apperror.ValidationFailed("tags",
				fmt.Sprintf("Tags must be %d characters or less", MaxTagLength))
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) > MaxPromptTags {
		return in, apperror.ValidationFailed("tags",
			fmt.Sprintf("A prompt can have at most %d tags", MaxPromptTags))
	}
	in.Tags = tags
	return in, nil
}
