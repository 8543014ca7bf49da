package status

import (
	"context"
	"errors"
	"fmt"

	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StatusStorer defines the interface for status lookups.
type StatusStorer interface {
	GetStatusByID(ctx context.Context, id uuid.UUID) (domain.Status, error)
	GetStatusesByName(ctx context.Context, name string, projectTypeID *uuid.UUID) ([]domain.Status, error)
	ListStatusesByProjectType(ctx context.Context, projectTypeID *uuid.UUID) ([]domain.Status, error)
	GetSubstatusIDs(ctx context.Context, parentIDs []uuid.UUID) ([]uuid.UUID, error)
}

// StatusStore reads the statuses table.
type StatusStore struct {
	db database.Querier
}

func NewStatusStore(db database.Querier) *StatusStore {
	return &StatusStore{db: db}
}

func scanStatuses(rows pgx.Rows) ([]domain.Status, error) {
	defer rows.Close()

	var statuses []domain.Status
	for rows.Next() {
		var st domain.Status
		if err := rows.Scan(&st.ID, &st.Name, &st.ProjectTypeID, &st.ParentStatusID); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return statuses, nil
}

// GetStatusByID returns domain.ErrStatusNotFound when the id is unknown.
func (s *StatusStore) GetStatusByID(ctx context.Context, id uuid.UUID) (domain.Status, error) {
	query := `
    SELECT id, name, project_type_id, parent_status_id
    FROM statuses
    WHERE id = $1;
    `

	var st domain.Status
	err := s.db.QueryRow(ctx, query, id).Scan(&st.ID, &st.Name, &st.ProjectTypeID, &st.ParentStatusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Status{}, fmt.Errorf("%w: %s", domain.ErrStatusNotFound, id)
		}
		return domain.Status{}, fmt.Errorf("db scan error: %w", err)
	}
	return st, nil
}

// GetStatusesByName returns the statuses called name, limited to a project type when one is given.
func (s *StatusStore) GetStatusesByName(ctx context.Context, name string, projectTypeID *uuid.UUID) ([]domain.Status, error) {
	query := `
    SELECT id, name, project_type_id, parent_status_id
    FROM statuses
    WHERE name = $1
      AND ($2::uuid IS NULL OR project_type_id = $2)
    ORDER BY order_index, id;
    `

	rows, err := s.db.Query(ctx, query, name, projectTypeID)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return scanStatuses(rows)
}

// ListStatusesByProjectType returns every status of a project type, or every status when nil.
func (s *StatusStore) ListStatusesByProjectType(ctx context.Context, projectTypeID *uuid.UUID) ([]domain.Status, error) {
	query := `
    SELECT id, name, project_type_id, parent_status_id
    FROM statuses
    WHERE ($1::uuid IS NULL OR project_type_id = $1)
    ORDER BY order_index, id;
    `

	rows, err := s.db.Query(ctx, query, projectTypeID)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return scanStatuses(rows)
}

// GetSubstatusIDs returns the ids of the direct children of the given statuses.
func (s *StatusStore) GetSubstatusIDs(ctx context.Context, parentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	query := `
    SELECT id
    FROM statuses
    WHERE parent_status_id = ANY($1::uuid[])
    ORDER BY order_index, id;
    `

	rows, err := s.db.Query(ctx, query, database.UUIDStrings(parentIDs))
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return ids, nil
}
