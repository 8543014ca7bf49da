package rule

import (
	"context"
	"errors"
	"fmt"

	"project-automation-api/internal/database"
	"project-automation-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ruleColumns = `id, name, project_type_id, main_status, substatus_filter,
       trigger_type, trigger_config, condition_type, condition_config,
       action_type, action_config, is_active, created_at, updated_at`

// MatchFilter is the store-side part of rule matching for a single event.
type MatchFilter struct {
	MainStatus    string
	TriggerType   domain.TriggerType
	ProjectTypeID *uuid.UUID
}

// RuleStorer defines the interface for rule storage operations.
type RuleStorer interface {
	GetMatchingRules(ctx context.Context, filter MatchFilter) ([]domain.AutomationRule, error)
	GetActiveRulesByTrigger(ctx context.Context, triggerTypes ...domain.TriggerType) ([]domain.AutomationRule, error)
	GetActiveRuleByName(ctx context.Context, name string) (domain.AutomationRule, error)
	GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]domain.AutomationRule, error)
}

// RuleStore handles rule-related database operations
type RuleStore struct {
	db database.Querier
}

// NewRuleStore creates a new RuleStore
func NewRuleStore(db database.Querier) *RuleStore {
	return &RuleStore{db: db}
}

// scanRule scans a database row into an AutomationRule
func scanRule(row pgx.Row) (domain.AutomationRule, error) {
	var rule domain.AutomationRule
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.ProjectTypeID,
		&rule.MainStatus,
		&rule.SubstatusFilter,
		&rule.TriggerType,
		&rule.TriggerConfig,
		&rule.ConditionType,
		&rule.ConditionConfig,
		&rule.ActionType,
		&rule.ActionConfig,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	return rule, err
}

func collectRules(rows pgx.Rows) ([]domain.AutomationRule, error) {
	defer rows.Close()

	var rules []domain.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}
	return rules, nil
}

// GetMatchingRules returns the active rules for a main status and trigger type.
// With a project type, rules of that type and global rules match; without one only global rules do.
// Rules come back oldest first so the execution order is stable.
func (s *RuleStore) GetMatchingRules(ctx context.Context, filter MatchFilter) ([]domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE main_status = $1
      AND trigger_type = $2
      AND is_active = true
      AND (project_type_id IS NULL OR project_type_id = $3)
    ORDER BY created_at, id;
    `

	rows, err := s.db.Query(ctx, query, filter.MainStatus, filter.TriggerType, filter.ProjectTypeID)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectRules(rows)
}

// GetActiveRulesByTrigger returns every active rule with one of the given trigger types.
func (s *RuleStore) GetActiveRulesByTrigger(ctx context.Context, triggerTypes ...domain.TriggerType) ([]domain.AutomationRule, error) {
	types := make([]string, len(triggerTypes))
	for i, t := range triggerTypes {
		types[i] = string(t)
	}

	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE trigger_type = ANY($1::text[])
      AND is_active = true
    ORDER BY created_at, id;
    `

	rows, err := s.db.Query(ctx, query, types)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectRules(rows)
}

// GetActiveRuleByName returns the oldest active rule with the given name.
func (s *RuleStore) GetActiveRuleByName(ctx context.Context, name string) (domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE name = $1 AND is_active = true
    ORDER BY created_at, id
    LIMIT 1;
    `

	rule, err := scanRule(s.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AutomationRule{}, fmt.Errorf("%w: %s", domain.ErrRuleNotFound, name)
		}
		return domain.AutomationRule{}, fmt.Errorf("db scan error: %w", err)
	}
	return rule, nil
}

// GetRuleByID haalt een enkele regel op.
func (s *RuleStore) GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE id = $1;
    `

	rule, err := scanRule(s.db.QueryRow(ctx, query, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AutomationRule{}, domain.ErrRuleNotFound
		}
		return domain.AutomationRule{}, fmt.Errorf("db scan error: %w", err)
	}
	return rule, nil
}

// ListRules returns all rules, optionally only the active ones.
func (s *RuleStore) ListRules(ctx context.Context, activeOnly bool) ([]domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE ($1 = false OR is_active = true)
    ORDER BY created_at, id;
    `

	rows, err := s.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	return collectRules(rows)
}
