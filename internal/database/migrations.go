package database

import (
	"context"

	"project-automation-api/db/migrations"

	"go.uber.org/zap"
)

type migrationStep struct {
	name  string
	query string
}

var migrationSteps = []migrationStep{
	{"initial schema", migrations.InitialSchemaUp},
	{"automation executions", migrations.AutomationExecutionsUp},
	{"automation logs", migrations.AutomationLogsUp},
}

// RunMigrations applies the embedded schema. Every step is idempotent, so it is safe on each start.
func RunMigrations(ctx context.Context, db Querier, log *zap.Logger) error {
	log.Info("running database migrations", zap.String("component", "migrations"))

	for _, step := range migrationSteps {
		if _, err := db.Exec(ctx, step.query); err != nil {
			log.Error(step.name+" migration failed", zap.String("component", "migrations"), zap.Error(err))
			return err
		}
		log.Info(step.name+" migration applied successfully", zap.String("component", "migrations"))
	}

	log.Info("all database migrations applied successfully", zap.String("component", "migrations"))
	return nil
}
