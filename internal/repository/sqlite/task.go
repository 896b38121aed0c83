package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/repository"
)

// TaskDB is the tasks-table view of DB.
type TaskDB struct {
	conn *sql.DB
}

var _ repository.TaskRepository = (*TaskDB)(nil)

// Tasks returns the TaskRepository backed by db.
func (db *DB) Tasks() *TaskDB {
	return &TaskDB{conn: db.conn}
}

func (t *TaskDB) Create(ctx context.Context, task *model.Task) error {
	task.ID = xid.New().String()
	task.CreatedAt = time.Now().UTC()

	_, err := t.conn.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, completed, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		task.Title,
		task.Completed,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating task: %w", err)
	}
	return nil
}

func (t *TaskDB) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := t.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, completed, created_at FROM tasks WHERE id = ?`,
		id,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.Completed, &task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}
	return &task, nil
}

// ListByUser returns all of the user's tasks, newest first.
func (t *TaskDB) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := t.conn.QueryContext(ctx,
		`SELECT id, user_id, title, completed, created_at
		 FROM tasks
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(&task.ID, &task.UserID, &task.Title, &task.Completed, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}
	return tasks, nil
}

func (t *TaskDB) Update(ctx context.Context, task *model.Task) error {
	result, err := t.conn.ExecContext(ctx,
		`UPDATE tasks SET title = ?, completed = ? WHERE id = ?`,
		task.Title, task.Completed, task.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %s: %w", task.ID, err)
	}
	return notFoundIfNoRows(result, "task", task.ID)
}

func (t *TaskDB) Delete(ctx context.Context, id string) error {
	result, err := t.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}
	return notFoundIfNoRows(result, "task", id)
}
