package store

import (
	"project-automation-api/internal/database"
	"project-automation-api/internal/store/execution"
	"project-automation-api/internal/store/invoice"
	"project-automation-api/internal/store/label"
	logstore "project-automation-api/internal/store/log"
	"project-automation-api/internal/store/project"
	"project-automation-api/internal/store/rule"
	"project-automation-api/internal/store/status"
	"project-automation-api/internal/store/task"
)

// Storer is de interface voor al onze database-interacties.
type Storer interface {
	rule.RuleStorer
	status.StatusStorer
	project.ProjectStorer
	label.LabelStorer
	task.TaskStorer
	invoice.InvoiceStorer
	execution.ExecutionStorer
	logstore.LogStorer
}

// DBStore implements Storer by composing the per-table stores.
type DBStore struct {
	rule.RuleStorer
	status.StatusStorer
	project.ProjectStorer
	label.LabelStorer
	task.TaskStorer
	invoice.InvoiceStorer
	execution.ExecutionStorer
	logstore.LogStorer
}

var _ Storer = (*DBStore)(nil)

// NewStore wires every sub-store to the same pool.
func NewStore(db database.Querier) *DBStore {
	return &DBStore{
		RuleStorer:      rule.NewRuleStore(db),
		StatusStorer:    status.NewStatusStore(db),
		ProjectStorer:   project.NewProjectStore(db),
		LabelStorer:     label.NewLabelStore(db),
		TaskStorer:      task.NewTaskStore(db),
		InvoiceStorer:   invoice.NewInvoiceStore(db),
		ExecutionStorer: execution.NewExecutionStore(db),
		LogStorer:       logstore.NewLogStore(db),
	}
}
