package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

// PromptDB is the prompts-table view of DB.
type PromptDB struct {
	conn *sql.DB
}

var _ repository.PromptRepository = (*PromptDB)(nil)

// Prompts returns the PromptRepository backed by db.
func (db *DB) Prompts() *PromptDB {
	return &PromptDB{conn: db.conn}
}

// Create inserts a prompt, assigning ID and timestamps in place.
//
// Tags are stored as a JSON array in a TEXT column so their order survives
// the round trip.
func (p *PromptDB) Create(ctx context.Context, prompt *model.Prompt) error {
	prompt.ID = xid.New().String()
	now := time.Now().UTC()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now

	tags, err := encodeTags(prompt.Tags)
	if err != nil {
		return err
	}

	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO prompts (id, user_id, title, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		prompt.ID,
		prompt.UserID,
		prompt.Title,
		prompt.Content,
		tags,
		prompt.CreatedAt,
		prompt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating prompt: %w", err)
	}

	return nil
}

// GetByID retrieves a single prompt.
func (p *PromptDB) GetByID(ctx context.Context, id string) (*model.Prompt, error) {
	var (
		prompt model.Prompt
		tags   string
	)

	err := p.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, tags, created_at, updated_at
		 FROM prompts
		 WHERE id = ?`,
		id,
	).Scan(
		&prompt.ID,
		&prompt.UserID,
		&prompt.Title,
		&prompt.Content,
		&tags,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("prompt", id)
		}
		return nil, fmt.Errorf("sqlite: getting prompt %s: %w", id, err)
	}

	if prompt.Tags, err = decodeTags(tags); err != nil {
		return nil, fmt.Errorf("sqlite: prompt %s: %w", id, err)
	}

	return &prompt, nil
}

// ListByUser returns a page of the user's prompts, newest first.
func (p *PromptDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Prompt, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := p.conn.QueryContext(ctx,
		`SELECT id, user_id, title, content, tags, created_at, updated_at
		 FROM prompts
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing prompts: %w", err)
	}
	defer rows.Close()

	prompts := make([]model.Prompt, 0, limit)

	for rows.Next() {
		var (
			pr   model.Prompt
			tags string
		)
		if err := rows.Scan(
			&pr.ID, &pr.UserID, &pr.Title, &pr.Content, &tags,
			&pr.CreatedAt, &pr.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning prompt row: %w", err)
		}
		if pr.Tags, err = decodeTags(tags); err != nil {
			return nil, fmt.Errorf("sqlite: prompt %s: %w", pr.ID, err)
		}
		prompts = append(prompts, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating prompts: %w", err)
	}

	return prompts, nil
}

// Update rewrites title, content and tags.
func (p *PromptDB) Update(ctx context.Context, prompt *model.Prompt) error {
	prompt.UpdatedAt = time.Now().UTC()

	tags, err := encodeTags(prompt.Tags)
	if err != nil {
		return err
	}

	result, err := p.conn.ExecContext(ctx,
		`UPDATE prompts
		 SET title = ?, content = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		prompt.Title,
		prompt.Content,
		tags,
		prompt.UpdatedAt,
		prompt.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating prompt %s: %w", prompt.ID, err)
	}

	return notFoundIfNoRows(result, "prompt", prompt.ID)
}

// Delete removes a prompt by ID.
func (p *PromptDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting prompt %s: %w", id, err)
	}

	return notFoundIfNoRows(result, "prompt", id)
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return tags, nil
}

// notFoundIfNoRows maps a zero RowsAffected to apperror.NotFound.
func notFoundIfNoRows(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
