// db/migrations/embed.go

package migrations

import "embed"

//go:embed 000001_initial_schema.up.sql
var InitialSchemaUp string

//go:embed 000001_initial_schema.down.sql
var InitialSchemaDown string

// Execution records for periodic and date-based scans
//
//go:embed 000002_automation_executions.up.sql
var AutomationExecutionsUp string

//go:embed 000002_automation_executions.down.sql
var AutomationExecutionsDown string

// Rule execution logs
//
//go:embed 000003_automation_logs.up.sql
var AutomationLogsUp string

//go:embed 000003_automation_logs.down.sql
var AutomationLogsDown string

//go:embed *.sql
var SQLFiles embed.FS
