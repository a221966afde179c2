package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tasknest/tasknest-go/internal/model"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskRepository handles task persistence operations. Every query is scoped
// by user_id; a row belonging to another user is indistinguishable from a
// missing one at this layer.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task and fills in the generated ID and timestamps.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (user_id, title, description, completed)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		task.UserID, task.Title, task.Description, task.Completed,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

// GetByID retrieves a single task owned by the given user.
func (r *TaskRepository) GetByID(ctx context.Context, userID string, id int64) (*model.Task, error) {
	query := `SELECT id, user_id, title, COALESCE(description, ''), completed, created_at, updated_at
		FROM tasks WHERE id = $1 AND user_id = $2`

	task := &model.Task{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Completed, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}

// ListByUser retrieves all tasks owned by the given user, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	query := `SELECT id, user_id, title, COALESCE(description, ''), completed, created_at, updated_at
		FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Title, &t.Description,
			&t.Completed, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// Update replaces the mutable fields of a task owned by the given user and
// refreshes updated_at. The owner column is never written.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	query := `UPDATE tasks
		SET title = $1, description = NULLIF($2, ''), completed = $3, updated_at = now()
		WHERE id = $4 AND user_id = $5
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		task.Title, task.Description, task.Completed, task.ID, task.UserID,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

// Delete removes a task owned by the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID string, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ToggleComplete flips the completion flag of a task owned by the given
// user and returns the updated row.
func (r *TaskRepository) ToggleComplete(ctx context.Context, userID string, id int64) (*model.Task, error) {
	query := `UPDATE tasks SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, COALESCE(description, ''), completed, created_at, updated_at`

	task := &model.Task{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Completed, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	return task, nil
}
