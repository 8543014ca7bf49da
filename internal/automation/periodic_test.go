package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store"
	"project-automation-api/internal/store/execution"
	"project-automation-api/internal/store/task"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var periodicTriggers = []domain.TriggerType{domain.TriggerPeriodic}

type periodicFixture struct {
	typeID  uuid.UUID
	mainID  uuid.UUID
	subID   uuid.UUID
	project domain.Project
}

func newPeriodicFixture(startedDaysAgo int) periodicFixture {
	f := periodicFixture{typeID: uuid.New(), mainID: uuid.New(), subID: uuid.New()}
	f.project = domain.Project{
		BaseEntity:       domain.BaseEntity{ID: uuid.New()},
		Title:            "Acme grant",
		ProjectTypeID:    &f.typeID,
		StatusID:         &f.subID,
		ProjectStartDate: daysAgo(startedDaysAgo),
	}
	return f
}

// mockScope expects the status scope lookups of a "Pre-Submission" rule and returns the projects.
func (f periodicFixture) mockScope(s *store.MockStore, projects ...domain.Project) {
	s.On("GetStatusesByName", mock.Anything, "Pre-Submission", &f.typeID).
		Return([]domain.Status{{ID: f.mainID, Name: "Pre-Submission"}}, nil)
	s.On("GetSubstatusIDs", mock.Anything, []uuid.UUID{f.mainID}).Return([]uuid.UUID{f.subID}, nil)
	s.On("ListProjectsInScope", mock.Anything, &f.typeID, []uuid.UUID{f.mainID, f.subID}).Return(projects, nil)
}

func (f periodicFixture) rule() domain.AutomationRule {
	return newRule("Monthly check-in", domain.TriggerPeriodic, domain.ActionAddTask,
		projectType(f.typeID),
		triggerConfig(map[string]any{"interval_days": 30}),
		actionConfig(map[string]any{"title": "Check in with client"}))
}

func claimFor(ruleID, projectID uuid.UUID, invoiceID *uuid.UUID, now time.Time, interval int) any {
	return mock.MatchedBy(func(arg execution.ClaimPeriodicParams) bool {
		day := StartOfDay(now)
		if (invoiceID == nil) != (arg.InvoiceID == nil) {
			return false
		}
		if invoiceID != nil && *invoiceID != *arg.InvoiceID {
			return false
		}
		return arg.RuleID == ruleID &&
			arg.ProjectID == projectID &&
			arg.ExecutedAt.Equal(now) &&
			arg.DayStart.Equal(day) &&
			arg.NextExecutionAt.Equal(day.AddDate(0, 0, interval))
	})
}

func TestRunPeriodic_FiresOnIntervalMultiple(t *testing.T) {
	f := newPeriodicFixture(60)
	r := f.rule()
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	f.mockScope(s, f.project)
	s.On("ClaimPeriodicExecution", mock.Anything, claimFor(r.ID, f.project.ID, nil, testNow, 30)).Return(true, nil).Once()
	s.On("CreateTask", mock.Anything, mock.MatchedBy(func(p task.CreateTaskParams) bool {
		return p.ProjectID == f.project.ID && p.Title == "Check in with client"
	})).Return(domain.Task{}, nil).Once()

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, "Executed 1 periodic automations", report.Message)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, domain.ResultSuccess, res.Status)
	require.NotNil(t, res.ProjectID)
	assert.Equal(t, f.project.ID, *res.ProjectID)
	assert.Equal(t, "Acme grant", res.Project)
	s.AssertExpectations(t)
}

func TestRunPeriodic_AlreadyExecutedToday(t *testing.T) {
	f := newPeriodicFixture(60)
	r := f.rule()
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	f.mockScope(s, f.project)
	s.On("ClaimPeriodicExecution", mock.Anything, mock.Anything).Return(false, nil)

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Executed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ResultSkipped, report.Results[0].Status)
	assert.Equal(t, domain.ReasonAlreadyExecutedToday, report.Results[0].Reason)
	s.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestRunPeriodic_TwiceSameDayExecutesOnce(t *testing.T) {
	f := newPeriodicFixture(30)
	r := f.rule()
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	f.mockScope(s, f.project)
	s.On("ClaimPeriodicExecution", mock.Anything, mock.Anything).Return(true, nil).Once()
	s.On("ClaimPeriodicExecution", mock.Anything, mock.Anything).Return(false, nil).Once()
	s.On("CreateTask", mock.Anything, mock.Anything).Return(domain.Task{}, nil).Once()

	e, _ := newTestEngine(t, s)
	first, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)
	second, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Executed)
	assert.Equal(t, 0, second.Executed)
	assert.Equal(t, domain.ReasonAlreadyExecutedToday, second.Results[0].Reason)
	s.AssertNumberOfCalls(t, "CreateTask", 1)
}

func TestRunPeriodic_NotAFiringDay(t *testing.T) {
	testCases := []struct {
		name    string
		project domain.Project
	}{
		{"remainder", newPeriodicFixture(61).project},
		{"day zero", newPeriodicFixture(0).project},
		{"future start", newPeriodicFixture(-30).project},
		{"no start date", domain.Project{BaseEntity: domain.BaseEntity{ID: uuid.New()}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPeriodicFixture(60)
			s := newMockStore()
			s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{f.rule()}, nil)
			f.mockScope(s, tc.project)

			e, _ := newTestEngine(t, s)
			report, err := e.RunPeriodic(context.Background())
			require.NoError(t, err)

			assert.Empty(t, report.Results)
			assert.Equal(t, "Executed 0 periodic automations", report.Message)
			s.AssertNotCalled(t, "ClaimPeriodicExecution", mock.Anything, mock.Anything)
		})
	}
}

func TestRunPeriodic_CustomDateFieldAndFrequency(t *testing.T) {
	f := newPeriodicFixture(5)
	f.project.SubmissionDate = daysAgo(14)
	r := newRule("Weekly nudge", domain.TriggerPeriodic, domain.ActionAddLabel,
		projectType(f.typeID),
		triggerConfig(map[string]any{"frequency": 7, "interval_days": 30, "date_field": "submission_date"}),
		actionConfig(map[string]any{"label_id": uuid.NewString()}))

	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	f.mockScope(s, f.project)
	s.On("ClaimPeriodicExecution", mock.Anything, claimFor(r.ID, f.project.ID, nil, testNow, 7)).Return(true, nil)
	s.On("AddProjectLabel", mock.Anything, f.project.ID, mock.Anything).Return(true, nil)

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed)
}

func TestRunPeriodic_ConditionSkip(t *testing.T) {
	f := newPeriodicFixture(30)
	f.project.SalesSource = ptr("Website")
	r := f.rule()
	r.ConditionType = domain.ConditionSalesSource
	r.ConditionConfig = mustJSON(map[string]string{"sales_source": "Referral"})

	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	f.mockScope(s, f.project)

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ReasonSalesSourceMismatch, report.Results[0].Reason)
	s.AssertNotCalled(t, "ClaimPeriodicExecution", mock.Anything, mock.Anything)
}

func TestRunPeriodic_InvoiceAnchored(t *testing.T) {
	projectID := uuid.New()
	invoiceID := uuid.New()
	r := newRule("All Status -> invoice Chase", domain.TriggerPeriodic, domain.ActionAddTask,
		mainStatus(domain.MainStatusAll),
		triggerConfig(map[string]any{"interval_days": 3, "check_invoices": true}),
		actionConfig(map[string]any{"title": "Chase invoice"}))

	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	s.On("GetOpenInvoices", mock.Anything).Return([]domain.Invoice{
		{ID: invoiceID, InvoiceNumber: "INV-001", ProjectID: &projectID, IssueDate: daysAgo(9), PaymentStatus: "Unpaid"},
		{ID: uuid.New(), InvoiceNumber: "INV-002", ProjectID: &projectID, IssueDate: daysAgo(10), PaymentStatus: "Overdue"},
		{ID: uuid.New(), InvoiceNumber: "INV-003", IssueDate: daysAgo(9), PaymentStatus: "Pending"},
	}, nil)
	s.On("GetProjectsByIDs", mock.Anything, []uuid.UUID{projectID}).
		Return([]domain.Project{{BaseEntity: domain.BaseEntity{ID: projectID}, Title: "Acme"}}, nil)
	s.On("ClaimPeriodicExecution", mock.Anything, claimFor(r.ID, projectID, &invoiceID, testNow, 3)).Return(true, nil).Once()
	s.On("CreateTask", mock.Anything, mock.MatchedBy(func(p task.CreateTaskParams) bool {
		return p.ProjectID == projectID && p.Title == "Chase invoice"
	})).Return(domain.Task{}, nil).Once()

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, domain.ResultSuccess, res.Status)
	require.NotNil(t, res.InvoiceID)
	assert.Equal(t, invoiceID, *res.InvoiceID)
	assert.Equal(t, "INV-001", res.Invoice)
	s.AssertExpectations(t)
}

func TestRunPeriodic_InvoiceAnchoredOutOfScope(t *testing.T) {
	typeID := uuid.New()
	projectID := uuid.New()
	subID := uuid.New()
	r := newRule("Typed chase", domain.TriggerPeriodic, domain.ActionAddTask,
		projectType(typeID),
		substatusFilter(subID),
		triggerConfig(map[string]any{"interval_days": 3, "check_invoices": true}),
		actionConfig(map[string]any{"title": "Chase invoice"}))

	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{r}, nil)
	s.On("GetOpenInvoices", mock.Anything).Return([]domain.Invoice{
		{ID: uuid.New(), ProjectID: &projectID, IssueDate: daysAgo(9)},
	}, nil)
	s.On("ListProjectsInScope", mock.Anything, &typeID, []uuid.UUID{subID}).Return([]domain.Project{}, nil)

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	s.AssertNotCalled(t, "GetProjectsByIDs", mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "ClaimPeriodicExecution", mock.Anything, mock.Anything)
}

func TestRunPeriodic_NoRules(t *testing.T) {
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{}, nil)

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "No periodic rules found", report.Message)
	assert.NotNil(t, report.Results)
}

func TestRunPeriodic_RuleQueryFailure(t *testing.T) {
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return(nil, errors.New("relation does not exist"))

	e, _ := newTestEngine(t, s)
	_, err := e.RunPeriodic(context.Background())
	assert.ErrorContains(t, err, "relation does not exist")
}

func TestRunPeriodic_OneRuleFailureDoesNotBlockOthers(t *testing.T) {
	f := newPeriodicFixture(30)
	good := f.rule()
	broken := newRule("Broken", domain.TriggerPeriodic, domain.ActionAddTask,
		projectType(f.typeID),
		mainStatus("Contracting"),
		triggerConfig(map[string]any{"interval_days": 30}))
	panicking := newRule("Panicking", domain.TriggerPeriodic, domain.ActionAddTask,
		projectType(f.typeID),
		mainStatus("Closing"),
		triggerConfig(map[string]any{"interval_days": 30}))

	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).
		Return([]domain.AutomationRule{broken, good, panicking}, nil)
	s.On("GetStatusesByName", mock.Anything, "Contracting", &f.typeID).Return(nil, errors.New("timeout"))
	s.On("GetStatusesByName", mock.Anything, "Closing", &f.typeID).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil, nil)
	f.mockScope(s, f.project)
	s.On("ClaimPeriodicExecution", mock.Anything, mock.Anything).Return(true, nil)
	s.On("CreateTask", mock.Anything, mock.Anything).Return(domain.Task{}, nil)

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, domain.ResultError, report.Results[0].Status)
	assert.Equal(t, "Broken", report.Results[0].Rule)
	assert.Contains(t, report.Results[0].Error, "timeout")

	assert.Equal(t, domain.ResultSuccess, report.Results[1].Status)

	assert.Equal(t, domain.ResultError, report.Results[2].Status)
	assert.Equal(t, "panic: boom", report.Results[2].Error)
	assert.Equal(t, 1, report.Executed)
}

func TestRunPeriodic_ActionFailureKeepsClaim(t *testing.T) {
	f := newPeriodicFixture(30)
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{f.rule()}, nil)
	f.mockScope(s, f.project)
	s.On("ClaimPeriodicExecution", mock.Anything, mock.Anything).Return(true, nil).Once()
	s.On("CreateTask", mock.Anything, mock.Anything).Return(domain.Task{}, errors.New("insert failed"))

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ResultError, report.Results[0].Status)
	assert.Equal(t, "insert failed", report.Results[0].Error)
	assert.Equal(t, f.project.ID, *report.Results[0].ProjectID)
}

func TestRunPeriodic_DeadlineExceeded(t *testing.T) {
	f := newPeriodicFixture(30)
	s := newMockStore()
	s.On("GetActiveRulesByTrigger", mock.Anything, periodicTriggers).Return([]domain.AutomationRule{f.rule()}, nil)
	f.mockScope(s, f.project, f.project)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, _ := newTestEngine(t, s)
	report, err := e.RunPeriodic(ctx)
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ReasonDeadlineExceeded, report.Results[0].Reason)
	s.AssertNotCalled(t, "ClaimPeriodicExecution", mock.Anything, mock.Anything)
}
