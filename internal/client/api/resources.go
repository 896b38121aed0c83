package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Task mirrors the server's task body.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskUpdate changes only the non-nil fields.
type TaskUpdate struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context, token string) ([]Task, error) {
	var res struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, token, title string) (*Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPost, "/tasks", token, map[string]string{"title": title}, &task)
	if err != nil {
		return nil, err
	}
	if task.ID == "" {
		return nil, fmt.Errorf("%w: task without id", ErrMalformedResponse)
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, token, id string, upd TaskUpdate) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), token, upd, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), token, nil, nil)
}

// Prompt mirrors the server's prompt body. Tags keep their order.
type Prompt struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptInput is the editable part of a prompt.
type PromptInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type promptBody struct {
	Prompt *Prompt `json:"prompt"`
}

func (p promptBody) get(op string) (*Prompt, error) {
	if p.Prompt == nil || p.Prompt.ID == "" {
		return nil, fmt.Errorf("%w: %s response without prompt", ErrMalformedResponse, op)
	}
	return p.Prompt, nil
}

func (c *Client) ListPrompts(ctx context.Context, token string) ([]Prompt, error) {
	var res struct {
		Prompts []Prompt `json:"prompts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/prompts", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Prompts, nil
}

func (c *Client) CreatePrompt(ctx context.Context, token string, in PromptInput) (*Prompt, error) {
	var res promptBody
	if err := c.do(ctx, http.MethodPost, "/api/prompts", token, in, &res); err != nil {
		return nil, err
	}
	return res.get("create")
}

func (c *Client) UpdatePrompt(ctx context.Context, token, id string, in PromptInput) (*Prompt, error) {
	var res promptBody
	if err := c.do(ctx, http.MethodPut, "/api/prompts/"+url.PathEscape(id), token, in, &res); err != nil {
		return nil, err
	}
	return res.get("update")
}

func (c *Client) DeletePrompt(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/prompts/"+url.PathEscape(id), token, nil, nil)
}
