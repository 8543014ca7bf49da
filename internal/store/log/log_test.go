package log

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"project-automation-api/internal/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupLogStore is een helper die een LogStore en een mock pool aanmaakt.
func setupLogStore(t *testing.T) (LogStorer, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewLogStore(mockPool), mockPool
}

func TestLogStore_CreateAutomationLog(t *testing.T) {
	store, mockPool := setupLogStore(t)
	defer mockPool.Close()

	projectID := uuid.New()
	params := CreateLogParams{
		RuleID:    uuid.New(),
		ProjectID: &projectID,
		Source:    domain.SourceDispatch,
		Status:    domain.ResultSkipped,
		Reason:    domain.ReasonLabelMismatch,
	}

	// Lege details worden '{}'
	mockPool.ExpectExec("INSERT INTO automation_logs").
		WithArgs(
			params.RuleID,
			params.ProjectID,
			params.InvoiceID,
			params.Source,
			params.Status,
			params.Reason,
			params.ErrorMessage,
			json.RawMessage(`{}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.CreateAutomationLog(context.Background(), params)

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLogStore_CreateAutomationLog_Error(t *testing.T) {
	store, mockPool := setupLogStore(t)
	defer mockPool.Close()

	dbError := errors.New("connection failed")
	mockPool.ExpectExec("INSERT INTO automation_logs").WillReturnError(dbError)

	err := store.CreateAutomationLog(context.Background(), CreateLogParams{RuleID: uuid.New()})

	assert.ErrorIs(t, err, dbError)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLogStore_GetLogsForRule(t *testing.T) {
	store, mockPool := setupLogStore(t)
	defer mockPool.Close()

	ruleID := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "rule_id", "project_id", "invoice_id", "source", "status", "reason",
		"error_message", "details", "timestamp",
	}).
		AddRow(int64(2), ruleID, (*uuid.UUID)(nil), (*uuid.UUID)(nil), domain.SourcePeriodic, domain.ResultSuccess,
			domain.SkipReason(""), "", json.RawMessage(`{"project":"Acme"}`), now).
		AddRow(int64(1), ruleID, (*uuid.UUID)(nil), (*uuid.UUID)(nil), domain.SourceDispatch, domain.ResultError,
			domain.SkipReason(""), "boom", json.RawMessage(`{}`), now.Add(-time.Minute))

	mockPool.ExpectQuery("FROM automation_logs").
		WithArgs(ruleID, 20).
		WillReturnRows(rows)

	logs, err := store.GetLogsForRule(context.Background(), ruleID, 20)

	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(2), logs[0].ID)
	assert.Equal(t, "boom", logs[1].ErrorMessage)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
