package store

import (
	"context"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store/execution"
	logstore "project-automation-api/internal/store/log"
	"project-automation-api/internal/store/rule"
	"project-automation-api/internal/store/task"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Storer interface for testing
type MockStore struct {
	mock.Mock
}

var _ Storer = (*MockStore)(nil)

// --- rules ---

func (m *MockStore) GetMatchingRules(ctx context.Context, filter rule.MatchFilter) ([]domain.AutomationRule, error) {
	args := m.Called(ctx, filter)
	rules, _ := args.Get(0).([]domain.AutomationRule)
	return rules, args.Error(1)
}

func (m *MockStore) GetActiveRulesByTrigger(ctx context.Context, triggerTypes ...domain.TriggerType) ([]domain.AutomationRule, error) {
	args := m.Called(ctx, triggerTypes)
	rules, _ := args.Get(0).([]domain.AutomationRule)
	return rules, args.Error(1)
}

func (m *MockStore) GetActiveRuleByName(ctx context.Context, name string) (domain.AutomationRule, error) {
	args := m.Called(ctx, name)
	r, _ := args.Get(0).(domain.AutomationRule)
	return r, args.Error(1)
}

func (m *MockStore) GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error) {
	args := m.Called(ctx, ruleID)
	r, _ := args.Get(0).(domain.AutomationRule)
	return r, args.Error(1)
}

func (m *MockStore) ListRules(ctx context.Context, activeOnly bool) ([]domain.AutomationRule, error) {
	args := m.Called(ctx, activeOnly)
	rules, _ := args.Get(0).([]domain.AutomationRule)
	return rules, args.Error(1)
}

// --- statuses ---

func (m *MockStore) GetStatusByID(ctx context.Context, id uuid.UUID) (domain.Status, error) {
	args := m.Called(ctx, id)
	st, _ := args.Get(0).(domain.Status)
	return st, args.Error(1)
}

func (m *MockStore) GetStatusesByName(ctx context.Context, name string, projectTypeID *uuid.UUID) ([]domain.Status, error) {
	args := m.Called(ctx, name, projectTypeID)
	statuses, _ := args.Get(0).([]domain.Status)
	return statuses, args.Error(1)
}

func (m *MockStore) ListStatusesByProjectType(ctx context.Context, projectTypeID *uuid.UUID) ([]domain.Status, error) {
	args := m.Called(ctx, projectTypeID)
	statuses, _ := args.Get(0).([]domain.Status)
	return statuses, args.Error(1)
}

func (m *MockStore) GetSubstatusIDs(ctx context.Context, parentIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, parentIDs)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

// --- projects ---

func (m *MockStore) GetProjectByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(domain.Project)
	return p, args.Error(1)
}

func (m *MockStore) GetProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Project, error) {
	args := m.Called(ctx, ids)
	projects, _ := args.Get(0).([]domain.Project)
	return projects, args.Error(1)
}

func (m *MockStore) ListProjectsInScope(ctx context.Context, projectTypeID *uuid.UUID, statusIDs []uuid.UUID) ([]domain.Project, error) {
	args := m.Called(ctx, projectTypeID, statusIDs)
	projects, _ := args.Get(0).([]domain.Project)
	return projects, args.Error(1)
}

func (m *MockStore) UpdateProjectStatus(ctx context.Context, projectID, statusID uuid.UUID) error {
	args := m.Called(ctx, projectID, statusID)
	return args.Error(0)
}

func (m *MockStore) UpdateProjectDateField(ctx context.Context, projectID uuid.UUID, field string, value time.Time) error {
	args := m.Called(ctx, projectID, field, value)
	return args.Error(0)
}

// --- labels & tasks ---

func (m *MockStore) AddProjectLabel(ctx context.Context, projectID, labelID uuid.UUID) (bool, error) {
	args := m.Called(ctx, projectID, labelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) RemoveProjectLabel(ctx context.Context, projectID, labelID uuid.UUID) error {
	args := m.Called(ctx, projectID, labelID)
	return args.Error(0)
}

func (m *MockStore) CreateTask(ctx context.Context, arg task.CreateTaskParams) (domain.Task, error) {
	args := m.Called(ctx, arg)
	t, _ := args.Get(0).(domain.Task)
	return t, args.Error(1)
}

// --- invoices ---

func (m *MockStore) GetOpenInvoices(ctx context.Context) ([]domain.Invoice, error) {
	args := m.Called(ctx)
	invoices, _ := args.Get(0).([]domain.Invoice)
	return invoices, args.Error(1)
}

func (m *MockStore) GetUnpaidInvoices(ctx context.Context) ([]domain.Invoice, error) {
	args := m.Called(ctx)
	invoices, _ := args.Get(0).([]domain.Invoice)
	return invoices, args.Error(1)
}

// --- executions ---

func (m *MockStore) ClaimPeriodicExecution(ctx context.Context, arg execution.ClaimPeriodicParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ClaimBackfillExecution(ctx context.Context, arg execution.ClaimPeriodicParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ClaimDateBasedExecution(ctx context.Context, ruleID, projectID uuid.UUID, executedAt, dateValue time.Time) (bool, error) {
	args := m.Called(ctx, ruleID, projectID, executedAt, dateValue)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListPeriodicExecutions(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.PeriodicExecution, error) {
	args := m.Called(ctx, ruleID, limit)
	records, _ := args.Get(0).([]domain.PeriodicExecution)
	return records, args.Error(1)
}

func (m *MockStore) ListDateBasedExecutions(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.DateBasedExecution, error) {
	args := m.Called(ctx, ruleID, limit)
	records, _ := args.Get(0).([]domain.DateBasedExecution)
	return records, args.Error(1)
}

// --- logs ---

func (m *MockStore) CreateAutomationLog(ctx context.Context, arg logstore.CreateLogParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *MockStore) GetLogsForRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.AutomationLog, error) {
	args := m.Called(ctx, ruleID, limit)
	logs, _ := args.Get(0).([]domain.AutomationLog)
	return logs, args.Error(1)
}
