package log

import (
	"context"
	"encoding/json"
	"fmt"

	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"

	"github.com/google/uuid"
)

// CreateLogParams contains parameters for creating automation logs.
type CreateLogParams struct {
	RuleID       uuid.UUID
	ProjectID    *uuid.UUID
	InvoiceID    *uuid.UUID
	Source       domain.LogSource
	Status       domain.ResultStatus
	Reason       domain.SkipReason
	ErrorMessage string
	Details      json.RawMessage
}

// LogStorer defines the interface for automation log storage.
type LogStorer interface {
	CreateAutomationLog(ctx context.Context, arg CreateLogParams) error
	GetLogsForRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.AutomationLog, error)
}

// LogStore handles log-related database operations
type LogStore struct {
	db database.Querier
}

// NewLogStore creates a new LogStore
func NewLogStore(db database.Querier) *LogStore {
	return &LogStore{db: db}
}

// CreateAutomationLog creates a new automation log.
func (s *LogStore) CreateAutomationLog(ctx context.Context, arg CreateLogParams) error {
	details := arg.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	query := `
    INSERT INTO automation_logs (
        rule_id, project_id, invoice_id, source, status, reason, error_message, details
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	_, err := s.db.Exec(ctx, query,
		arg.RuleID,
		arg.ProjectID,
		arg.InvoiceID,
		arg.Source,
		arg.Status,
		arg.Reason,
		arg.ErrorMessage,
		details,
	)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// GetLogsForRule haalt de meest recente logs op voor een regel.
func (s *LogStore) GetLogsForRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.AutomationLog, error) {
	query := `
    SELECT id, rule_id, project_id, invoice_id, source, status, reason,
           error_message, details, "timestamp"
    FROM automation_logs
    WHERE rule_id = $1
    ORDER BY "timestamp" DESC
    LIMIT $2;
    `

	rows, err := s.db.Query(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var logs []domain.AutomationLog
	for rows.Next() {
		var l domain.AutomationLog
		err := rows.Scan(
			&l.ID,
			&l.RuleID,
			&l.ProjectID,
			&l.InvoiceID,
			&l.Source,
			&l.Status,
			&l.Reason,
			&l.ErrorMessage,
			&l.Details,
			&l.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return logs, nil
}
