package automation

import (
	"context"
	"fmt"
	"testing"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store/task"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func chaseRule(checkInvoices bool) domain.AutomationRule {
	return newRule("All Status -> invoice Chase", domain.TriggerPeriodic, domain.ActionAddTask,
		mainStatus(domain.MainStatusAll),
		triggerConfig(map[string]any{"interval_days": 7, "check_invoices": checkInvoices}),
		actionConfig(map[string]any{
			"title":           "Chase payment",
			"due_date_base":   "current_day",
			"due_date_offset": 2,
		}))
}

func TestBackfillInvoiceChase_MostRecentMissedDay(t *testing.T) {
	r := chaseRule(true)
	projectID := uuid.New()
	missed := domain.Invoice{ID: uuid.New(), InvoiceNumber: "INV-7", ProjectID: &projectID, IssueDate: daysAgo(16)}
	notDue := domain.Invoice{ID: uuid.New(), InvoiceNumber: "INV-8", ProjectID: &projectID, IssueDate: daysAgo(13)}
	replayDay := testNow.AddDate(0, 0, -2)

	s := newMockStore()
	s.On("GetActiveRuleByName", mock.Anything, "All Status -> invoice Chase").Return(r, nil)
	s.On("GetUnpaidInvoices", mock.Anything).Return([]domain.Invoice{missed, notDue}, nil)
	s.On("GetProjectsByIDs", mock.Anything, []uuid.UUID{projectID}).
		Return([]domain.Project{{BaseEntity: domain.BaseEntity{ID: projectID}, Title: "Acme"}}, nil)
	s.On("ClaimBackfillExecution", mock.Anything, claimFor(r.ID, projectID, &missed.ID, replayDay, 7)).Return(true, nil).Once()
	s.On("CreateTask", mock.Anything, mock.MatchedBy(func(p task.CreateTaskParams) bool {
		// deadline counts from the replayed day, not from today
		return p.Title == "Chase payment" && p.Deadline != nil && p.Deadline.Equal(testNow)
	})).Return(domain.Task{}, nil).Once()

	e, _ := newTestEngine(t, s)
	report, err := e.BackfillInvoiceChase(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Backfilled 1 invoice chase tasks", report.Message)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "INV-7", report.Results[0].Invoice)
	s.AssertExpectations(t)
}

func TestBackfillInvoiceChase_AlreadyRecorded(t *testing.T) {
	r := chaseRule(true)
	projectID := uuid.New()

	s := newMockStore()
	s.On("GetActiveRuleByName", mock.Anything, mock.Anything).Return(r, nil)
	s.On("GetUnpaidInvoices", mock.Anything).Return([]domain.Invoice{
		{ID: uuid.New(), ProjectID: &projectID, IssueDate: daysAgo(8)},
	}, nil)
	s.On("GetProjectsByIDs", mock.Anything, []uuid.UUID{projectID}).
		Return([]domain.Project{{BaseEntity: domain.BaseEntity{ID: projectID}}}, nil)
	s.On("ClaimBackfillExecution", mock.Anything, mock.Anything).Return(false, nil).Once()

	e, _ := newTestEngine(t, s)
	report, err := e.BackfillInvoiceChase(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.ReasonAlreadyExecuted, report.Results[0].Reason)
	assert.Equal(t, 0, report.Executed)
	s.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestBackfillInvoiceChase_Errors(t *testing.T) {
	t.Run("rule missing", func(t *testing.T) {
		s := newMockStore()
		s.On("GetActiveRuleByName", mock.Anything, mock.Anything).
			Return(domain.AutomationRule{}, fmt.Errorf("%w: chase", domain.ErrRuleNotFound))

		e, _ := newTestEngine(t, s)
		_, err := e.BackfillInvoiceChase(context.Background())
		assert.ErrorIs(t, err, domain.ErrRuleNotFound)
	})

	t.Run("not invoice anchored", func(t *testing.T) {
		s := newMockStore()
		s.On("GetActiveRuleByName", mock.Anything, mock.Anything).Return(chaseRule(false), nil)

		e, _ := newTestEngine(t, s)
		_, err := e.BackfillInvoiceChase(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestBackfillInvoiceChase_TodayIsLeftToPeriodicRun(t *testing.T) {
	r := chaseRule(true)
	projectID := uuid.New()

	s := newMockStore()
	s.On("GetActiveRuleByName", mock.Anything, mock.Anything).Return(r, nil)
	s.On("GetUnpaidInvoices", mock.Anything).Return([]domain.Invoice{
		{ID: uuid.New(), ProjectID: &projectID, IssueDate: daysAgo(7)},
	}, nil)
	s.On("GetProjectsByIDs", mock.Anything, []uuid.UUID{projectID}).
		Return([]domain.Project{{BaseEntity: domain.BaseEntity{ID: projectID}}}, nil)

	e, _ := newTestEngine(t, s)
	report, err := e.BackfillInvoiceChase(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Executed)
	s.AssertNotCalled(t, "ClaimBackfillExecution", mock.Anything, mock.Anything)
}

func TestBackfillInvoiceChase_AnyUnpaidStateAndDefaultInterval(t *testing.T) {
	r := newRule("All Status -> invoice Chase", domain.TriggerPeriodic, domain.ActionAddTask,
		mainStatus(domain.MainStatusAll),
		triggerConfig(map[string]any{"check_invoices": true}),
		actionConfig(map[string]any{"title": "Chase payment"}))
	projectID := uuid.New()
	// 11 days old: the 9-day mark was two days ago
	disputed := domain.Invoice{ID: uuid.New(), InvoiceNumber: "INV-9", ProjectID: &projectID, IssueDate: daysAgo(11), PaymentStatus: "Disputed"}
	replayDay := testNow.AddDate(0, 0, -2)

	s := newMockStore()
	s.On("GetActiveRuleByName", mock.Anything, mock.Anything).Return(r, nil)
	s.On("GetUnpaidInvoices", mock.Anything).Return([]domain.Invoice{disputed}, nil).Once()
	s.On("GetProjectsByIDs", mock.Anything, []uuid.UUID{projectID}).
		Return([]domain.Project{{BaseEntity: domain.BaseEntity{ID: projectID}}}, nil)
	s.On("ClaimBackfillExecution", mock.Anything, claimFor(r.ID, projectID, &disputed.ID, replayDay, 9)).Return(true, nil).Once()
	s.On("CreateTask", mock.Anything, mock.Anything).Return(domain.Task{}, nil).Once()

	e, _ := newTestEngine(t, s)
	report, err := e.BackfillInvoiceChase(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Executed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "INV-9", report.Results[0].Invoice)
	s.AssertNotCalled(t, "GetOpenInvoices", mock.Anything)
	s.AssertExpectations(t)
}

func TestBackfillInterval(t *testing.T) {
	assert.Equal(t, 9, backfillInterval(domain.PeriodicTrigger{}))
	assert.Equal(t, 4, backfillInterval(domain.PeriodicTrigger{Frequency: 4}))
	assert.Equal(t, 7, backfillInterval(domain.PeriodicTrigger{IntervalDays: 7}))
}
