package task

import (
	"context"
	"fmt"
	"time"

	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"

	"github.com/google/uuid"
)

// CreateTaskParams contains parameters for creating a task.
type CreateTaskParams struct {
	ProjectID   uuid.UUID
	Title       string
	Description string
	Deadline    *time.Time
	AssignedTo  *uuid.UUID
}

type TaskStorer interface {
	CreateTask(ctx context.Context, arg CreateTaskParams) (domain.Task, error)
}

// TaskStore handles task-related database operations
type TaskStore struct {
	db database.Querier
}

func NewTaskStore(db database.Querier) *TaskStore {
	return &TaskStore{db: db}
}

// CreateTask inserts an open task.
func (s *TaskStore) CreateTask(ctx context.Context, arg CreateTaskParams) (domain.Task, error) {
	query := `
    INSERT INTO tasks (project_id, title, description, deadline, assigned_to, completed)
    VALUES ($1, $2, $3, $4, $5, false)
    RETURNING id, project_id, title, description, deadline, assigned_to, completed, created_at;
    `

	var t domain.Task
	err := s.db.QueryRow(ctx, query,
		arg.ProjectID,
		arg.Title,
		arg.Description,
		arg.Deadline,
		arg.AssignedTo,
	).Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.Deadline,
		&t.AssignedTo,
		&t.Completed,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("db scan error: %w", err)
	}
	return t, nil
}
