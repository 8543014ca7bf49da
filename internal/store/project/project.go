package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const projectColumns = `id, title, project_type_id, status_id, sales_source, sales_person_id,
       start_date, project_start_date, project_end_date, submission_date, approval_date,
       next_hkpc_due_date, hi_po_date, deposit_paid_date, created_at, updated_at`

// ProjectStorer defines the project reads and writes the engine performs.
type ProjectStorer interface {
	GetProjectByID(ctx context.Context, id uuid.UUID) (domain.Project, error)
	GetProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Project, error)
	ListProjectsInScope(ctx context.Context, projectTypeID *uuid.UUID, statusIDs []uuid.UUID) ([]domain.Project, error)
	UpdateProjectStatus(ctx context.Context, projectID, statusID uuid.UUID) error
	UpdateProjectDateField(ctx context.Context, projectID uuid.UUID, field string, value time.Time) error
}

// ProjectStore handles project-related database operations
type ProjectStore struct {
	db database.Querier
}

func NewProjectStore(db database.Querier) *ProjectStore {
	return &ProjectStore{db: db}
}

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.ProjectTypeID,
		&p.StatusID,
		&p.SalesSource,
		&p.SalesPersonID,
		&p.StartDate,
		&p.ProjectStartDate,
		&p.ProjectEndDate,
		&p.SubmissionDate,
		&p.ApprovalDate,
		&p.NextHKPCDueDate,
		&p.HiPODate,
		&p.DepositPaidDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return projects, nil
}

// GetProjectByID returns domain.ErrProjectNotFound when the project does not exist.
func (s *ProjectStore) GetProjectByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	query := `
    SELECT ` + projectColumns + `
    FROM projects
    WHERE id = $1;
    `

	p, err := scanProject(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, domain.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("db scan error: %w", err)
	}
	return p, nil
}

// GetProjectsByIDs loads a batch of projects; unknown ids are left out.
func (s *ProjectStore) GetProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
    SELECT ` + projectColumns + `
    FROM projects
    WHERE id = ANY($1::uuid[])
    ORDER BY created_at, id;
    `

	rows, err := s.db.Query(ctx, query, database.UUIDStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectProjects(rows)
}

// ListProjectsInScope returns the projects of a project type whose status is one of statusIDs.
// A nil project type matches every type.
func (s *ProjectStore) ListProjectsInScope(ctx context.Context, projectTypeID *uuid.UUID, statusIDs []uuid.UUID) ([]domain.Project, error) {
	if len(statusIDs) == 0 {
		return nil, nil
	}

	query := `
    SELECT ` + projectColumns + `
    FROM projects
    WHERE ($1::uuid IS NULL OR project_type_id = $1)
      AND status_id = ANY($2::uuid[])
    ORDER BY created_at, id;
    `

	rows, err := s.db.Query(ctx, query, projectTypeID, database.UUIDStrings(statusIDs))
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectProjects(rows)
}

// UpdateProjectStatus always writes, even when the project already has the status.
func (s *ProjectStore) UpdateProjectStatus(ctx context.Context, projectID, statusID uuid.UUID) error {
	query := `
    UPDATE projects
    SET status_id = $1, updated_at = now()
    WHERE id = $2;
    `

	cmdTag, err := s.db.Exec(ctx, query, statusID, projectID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// UpdateProjectDateField sets one writable date column. The column name is checked against
// the allow-list before it is put into the statement.
func (s *ProjectStore) UpdateProjectDateField(ctx context.Context, projectID uuid.UUID, field string, value time.Time) error {
	if !domain.IsWritableDateField(field) {
		return fmt.Errorf("field %q is not a writable project date field", field)
	}

	query := fmt.Sprintf(`
    UPDATE projects
    SET %s = $1::date, updated_at = now()
    WHERE id = $2;
    `, pgx.Identifier{field}.Sanitize())

	cmdTag, err := s.db.Exec(ctx, query, value.Format(time.DateOnly), projectID)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}
