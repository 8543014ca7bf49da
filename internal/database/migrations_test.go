package database

import (
	"context"
	"errors"
	"testing"

	"project-automation-api/db/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}
func (m *MockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("unimplemented")
}
func (m *MockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("unimplemented")
}

func TestRunMigrations_Success(t *testing.T) {
	ctx := context.Background()
	observedCore, logs := observer.New(zapcore.InfoLevel)
	mockDB := new(MockQuerier)

	mockDB.On("Exec", ctx, migrations.InitialSchemaUp, mock.Anything).Return(pgconn.CommandTag{}, nil).Once()
	mockDB.On("Exec", ctx, migrations.AutomationExecutionsUp, mock.Anything).Return(pgconn.CommandTag{}, nil).Once()
	mockDB.On("Exec", ctx, migrations.AutomationLogsUp, mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	err := RunMigrations(ctx, mockDB, zap.New(observedCore))

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("all database migrations applied successfully").Len())
}

func TestRunMigrations_Fail(t *testing.T) {
	ctx := context.Background()
	mockDB := new(MockQuerier)
	dbError := errors.New("DB migration failed")

	// Alleen de eerste migratie wordt geprobeerd
	mockDB.On("Exec", ctx, migrations.InitialSchemaUp, mock.Anything).Return(pgconn.CommandTag{}, dbError).Once()

	err := RunMigrations(ctx, mockDB, zap.NewNop())

	assert.Equal(t, dbError, err)
	mockDB.AssertExpectations(t)
	mockDB.AssertNotCalled(t, "Exec", ctx, migrations.AutomationExecutionsUp, mock.Anything)
}

func TestMigrationFilesEmbedded(t *testing.T) {
	for _, step := range migrationSteps {
		assert.NotEmpty(t, step.query, step.name)
	}
	assert.Contains(t, migrations.AutomationExecutionsUp, "periodic_automation_executions_unique")

	entries, err := migrations.SQLFiles.ReadDir(".")
	assert.NoError(t, err)
	assert.Len(t, entries, 6)
}
