package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a project status; a non-nil ParentStatusID makes it a substatus.
type Status struct {
	ID             uuid.UUID  `db:"id"               json:"id"`
	Name           string     `db:"name"             json:"name"`
	ProjectTypeID  *uuid.UUID `db:"project_type_id"  json:"project_type_id,omitempty"`
	ParentStatusID *uuid.UUID `db:"parent_status_id" json:"parent_status_id,omitempty"`
}

// IsSubstatus reports whether the status rolls up into a parent.
func (s Status) IsSubstatus() bool {
	return s.ParentStatusID != nil
}

// Project date field names usable as date-arithmetic bases and set_field_value targets.
const (
	FieldStartDate        = "start_date"
	FieldProjectStartDate = "project_start_date"
	FieldProjectEndDate   = "project_end_date"
	FieldSubmissionDate   = "submission_date"
	FieldApprovalDate     = "approval_date"
	FieldNextHKPCDueDate  = "next_hkpc_due_date"
	FieldHiPODate         = "hi_po_date"
	FieldDepositPaidDate  = "deposit_paid_date"
	FieldCreatedAt        = "created_at"
)

// projectDateFields maps each known date field to whether automations may write it.
var projectDateFields = map[string]bool{
	FieldStartDate:        true,
	FieldProjectStartDate: true,
	FieldProjectEndDate:   true,
	FieldSubmissionDate:   true,
	FieldApprovalDate:     true,
	FieldNextHKPCDueDate:  true,
	FieldHiPODate:         true,
	FieldDepositPaidDate:  true,
	FieldCreatedAt:        false,
}

// IsProjectDateField reports whether name is a known project date column.
func IsProjectDateField(name string) bool {
	_, ok := projectDateFields[name]
	return ok
}

// IsWritableDateField reports whether set_field_value may update the column.
func IsWritableDateField(name string) bool {
	return projectDateFields[name]
}

// Project is the subset of a project record the engine reads and writes.
type Project struct {
	BaseEntity
	Title            string     `db:"title"              json:"title"`
	ProjectTypeID    *uuid.UUID `db:"project_type_id"    json:"project_type_id,omitempty"`
	StatusID         *uuid.UUID `db:"status_id"          json:"status_id,omitempty"`
	SalesSource      *string    `db:"sales_source"       json:"sales_source,omitempty"`
	SalesPersonID    *uuid.UUID `db:"sales_person_id"    json:"sales_person_id,omitempty"`
	StartDate        *time.Time `db:"start_date"         json:"start_date,omitempty"`
	ProjectStartDate *time.Time `db:"project_start_date" json:"project_start_date,omitempty"`
	ProjectEndDate   *time.Time `db:"project_end_date"   json:"project_end_date,omitempty"`
	SubmissionDate   *time.Time `db:"submission_date"    json:"submission_date,omitempty"`
	ApprovalDate     *time.Time `db:"approval_date"      json:"approval_date,omitempty"`
	NextHKPCDueDate  *time.Time `db:"next_hkpc_due_date" json:"next_hkpc_due_date,omitempty"`
	HiPODate         *time.Time `db:"hi_po_date"         json:"hi_po_date,omitempty"`
	DepositPaidDate  *time.Time `db:"deposit_paid_date"  json:"deposit_paid_date,omitempty"`
}

// DateField returns the value of a named date column, nil when the column is empty.
func (p Project) DateField(name string) (*time.Time, error) {
	switch name {
	case FieldStartDate:
		return p.StartDate, nil
	case FieldProjectStartDate:
		return p.ProjectStartDate, nil
	case FieldProjectEndDate:
		return p.ProjectEndDate, nil
	case FieldSubmissionDate:
		return p.SubmissionDate, nil
	case FieldApprovalDate:
		return p.ApprovalDate, nil
	case FieldNextHKPCDueDate:
		return p.NextHKPCDueDate, nil
	case FieldHiPODate:
		return p.HiPODate, nil
	case FieldDepositPaidDate:
		return p.DepositPaidDate, nil
	case FieldCreatedAt:
		if p.CreatedAt.IsZero() {
			return nil, nil
		}
		t := p.CreatedAt
		return &t, nil
	}
	return nil, fmt.Errorf("unknown project date field %q", name)
}

// OpenPaymentStatuses are the invoice states eligible for invoice-anchored rules.
var OpenPaymentStatuses = []string{"Unpaid", "Pending", "Overdue"}

// Invoice is a funding invoice, read only by invoice-anchored periodic rules.
type Invoice struct {
	ID            uuid.UUID  `db:"id"             json:"id"`
	InvoiceNumber string     `db:"invoice_number" json:"invoice_number"`
	ProjectID     *uuid.UUID `db:"project_id"     json:"project_id,omitempty"`
	IssueDate     *time.Time `db:"issue_date"     json:"issue_date,omitempty"`
	PaymentStatus string     `db:"payment_status" json:"payment_status"`
}

// Task is a project task created by the add_task action.
type Task struct {
	ID          uuid.UUID  `db:"id"          json:"id"`
	ProjectID   uuid.UUID  `db:"project_id"  json:"project_id"`
	Title       string     `db:"title"       json:"title"`
	Description string     `db:"description" json:"description"`
	Deadline    *time.Time `db:"deadline"    json:"deadline,omitempty"`
	AssignedTo  *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	Completed   bool       `db:"completed"   json:"completed"`
	CreatedAt   time.Time  `db:"created_at"  json:"created_at"`
}

// PeriodicExecution is the per (rule, project[, invoice]) cursor of the periodic scheduler.
type PeriodicExecution struct {
	ID               uuid.UUID  `db:"id"                 json:"id"`
	AutomationRuleID uuid.UUID  `db:"automation_rule_id" json:"automation_rule_id"`
	ProjectID        uuid.UUID  `db:"project_id"         json:"project_id"`
	InvoiceID        *uuid.UUID `db:"invoice_id"         json:"invoice_id,omitempty"`
	LastExecutedAt   time.Time  `db:"last_executed_at"   json:"last_executed_at"`
	NextExecutionAt  time.Time  `db:"next_execution_at"  json:"next_execution_at"`
	CreatedAt        time.Time  `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"         json:"updated_at"`
}

// DateBasedExecution marks a date-offset rule as fired for a project.
type DateBasedExecution struct {
	ID               uuid.UUID `db:"id"                 json:"id"`
	AutomationRuleID uuid.UUID `db:"automation_rule_id" json:"automation_rule_id"`
	ProjectID        uuid.UUID `db:"project_id"         json:"project_id"`
	ExecutedAt       time.Time `db:"executed_at"        json:"executed_at"`
	DateFieldValue   time.Time `db:"date_field_value"   json:"date_field_value"`
}

// AutomationLog represents a log entry for a single rule evaluation
type AutomationLog struct {
	ID           int64           `db:"id"            json:"id"`
	RuleID       uuid.UUID       `db:"rule_id"       json:"rule_id"`
	ProjectID    *uuid.UUID      `db:"project_id"    json:"project_id,omitempty"`
	InvoiceID    *uuid.UUID      `db:"invoice_id"    json:"invoice_id,omitempty"`
	Source       LogSource       `db:"source"        json:"source"`
	Status       ResultStatus    `db:"status"        json:"status"`
	Reason       SkipReason      `db:"reason"        json:"reason,omitempty"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	Details      json.RawMessage `db:"details"       json:"details,omitempty"`
	Timestamp    time.Time       `db:"timestamp"     json:"timestamp"`
}
