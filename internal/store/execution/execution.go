package execution

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

// ClaimPeriodicParams identifies a periodic firing slot.
type ClaimPeriodicParams struct {
	RuleID          uuid.UUID
	ProjectID       uuid.UUID
	InvoiceID       *uuid.UUID
	ExecutedAt      time.Time
	NextExecutionAt time.Time
	// DayStart is midnight of the firing day; a record executed at or after it blocks the claim.
	DayStart time.Time
}

// ExecutionStorer persists the dedup records of the scheduled runners.
type ExecutionStorer interface {
	ClaimPeriodicExecution(ctx context.Context, arg ClaimPeriodicParams) (bool, error)
	ClaimBackfillExecution(ctx context.Context, arg ClaimPeriodicParams) (bool, error)
	ClaimDateBasedExecution(ctx context.Context, ruleID, projectID uuid.UUID, executedAt, dateValue time.Time) (bool, error)
	ListPeriodicExecutions(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.PeriodicExecution, error)
	ListDateBasedExecutions(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.DateBasedExecution, error)
}

type ExecutionStore struct {
	db database.Querier
}

func NewExecutionStore(db database.Querier) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// claimed turns the RETURNING row of a conditional insert into a bool.
func claimed(row pgx.Row) (bool, error) {
	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db scan error: %w", err)
	}
	return true, nil
}

// ClaimPeriodicExecution records a firing for (rule, project, invoice) unless one was already
// recorded on or after arg.DayStart. It returns false when the slot was already taken today.
// The check and the write are a single statement, so two concurrent runs cannot both claim.
func (s *ExecutionStore) ClaimPeriodicExecution(ctx context.Context, arg ClaimPeriodicParams) (bool, error) {
	query := `
    INSERT INTO periodic_automation_executions (
        automation_rule_id, project_id, invoice_id, last_executed_at, next_execution_at
    ) VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT ON CONSTRAINT periodic_automation_executions_unique
    DO UPDATE SET
        last_executed_at = EXCLUDED.last_executed_at,
        next_execution_at = EXCLUDED.next_execution_at,
        updated_at = now()
    WHERE periodic_automation_executions.last_executed_at < $6
    RETURNING id;
    `

	return claimed(s.db.QueryRow(ctx, query,
		arg.RuleID, arg.ProjectID, arg.InvoiceID, arg.ExecutedAt, arg.NextExecutionAt, arg.DayStart,
	))
}

// ClaimBackfillExecution inserts a record only if none exists at all for the slot.
func (s *ExecutionStore) ClaimBackfillExecution(ctx context.Context, arg ClaimPeriodicParams) (bool, error) {
	query := `
    INSERT INTO periodic_automation_executions (
        automation_rule_id, project_id, invoice_id, last_executed_at, next_execution_at
    ) VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT ON CONSTRAINT periodic_automation_executions_unique DO NOTHING
    RETURNING id;
    `

	return claimed(s.db.QueryRow(ctx, query,
		arg.RuleID, arg.ProjectID, arg.InvoiceID, arg.ExecutedAt, arg.NextExecutionAt,
	))
}

// ClaimDateBasedExecution marks a date-offset rule as fired for a project. A rule fires at most
// once per project, so an existing record makes this return false.
func (s *ExecutionStore) ClaimDateBasedExecution(ctx context.Context, ruleID, projectID uuid.UUID, executedAt, dateValue time.Time) (bool, error) {
	query := `
    INSERT INTO date_based_automation_executions (
        automation_rule_id, project_id, executed_at, date_field_value
    ) VALUES ($1, $2, $3, $4::date)
    ON CONFLICT ON CONSTRAINT date_based_automation_executions_unique DO NOTHING
    RETURNING id;
    `

	return claimed(s.db.QueryRow(ctx, query, ruleID, projectID, executedAt, dateValue.Format(time.DateOnly)))
}

// ListPeriodicExecutions returns the most recently fired records of a rule.
func (s *ExecutionStore) ListPeriodicExecutions(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.PeriodicExecution, error) {
	query := `
    SELECT id, automation_rule_id, project_id, invoice_id,
           last_executed_at, next_execution_at, created_at, updated_at
    FROM periodic_automation_executions
    WHERE automation_rule_id = $1
    ORDER BY last_executed_at DESC
    LIMIT $2;
    `

	rows, err := s.db.Query(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var records []domain.PeriodicExecution
	for rows.Next() {
		var r domain.PeriodicExecution
		if err := rows.Scan(
			&r.ID, &r.AutomationRuleID, &r.ProjectID, &r.InvoiceID,
			&r.LastExecutedAt, &r.NextExecutionAt, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return records, nil
}

// ListDateBasedExecutions returns the most recent date-based firings of a rule.
func (s *ExecutionStore) ListDateBasedExecutions(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.DateBasedExecution, error) {
	query := `
    SELECT id, automation_rule_id, project_id, executed_at, date_field_value
    FROM date_based_automation_executions
    WHERE automation_rule_id = $1
    ORDER BY executed_at DESC
    LIMIT $2;
    `

	rows, err := s.db.Query(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var records []domain.DateBasedExecution
	for rows.Next() {
		var r domain.DateBasedExecution
		if err := rows.Scan(&r.ID, &r.AutomationRuleID, &r.ProjectID, &r.ExecutedAt, &r.DateFieldValue); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return records, nil
}
