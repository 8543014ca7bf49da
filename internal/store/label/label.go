package label

import (
	"context"
	"errors"
	"fmt"

	"project-automation-api/internal/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LabelStorer manages project/label associations.
type LabelStorer interface {
	AddProjectLabel(ctx context.Context, projectID, labelID uuid.UUID) (bool, error)
	RemoveProjectLabel(ctx context.Context, projectID, labelID uuid.UUID) error
}

type LabelStore struct {
	db database.Querier
}

func NewLabelStore(db database.Querier) *LabelStore {
	return &LabelStore{db: db}
}

// AddProjectLabel inserts the association when it is absent and reports whether it did.
// The existence check and the insert are one statement, so concurrent callers cannot both add it.
func (s *LabelStore) AddProjectLabel(ctx context.Context, projectID, labelID uuid.UUID) (bool, error) {
	query := `
    INSERT INTO project_labels (project_id, label_id)
    VALUES ($1, $2)
    ON CONFLICT (project_id, label_id) DO NOTHING
    RETURNING id;
    `

	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, projectID, labelID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil // bestond al
		}
		return false, fmt.Errorf("db scan error: %w", err)
	}
	return true, nil
}

// RemoveProjectLabel deletes the association; a missing association is not an error.
func (s *LabelStore) RemoveProjectLabel(ctx context.Context, projectID, labelID uuid.UUID) error {
	query := `
    DELETE FROM project_labels
    WHERE project_id = $1 AND label_id = $2;
    `

	if _, err := s.db.Exec(ctx, query, projectID, labelID); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}
