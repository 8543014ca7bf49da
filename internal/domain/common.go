package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// --- Sentinel errors ---
var (
	ErrStatusNotFound  = errors.New("status not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrRuleNotFound    = errors.New("rule not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// --- ENUM Types ---
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultSkipped ResultStatus = "skipped"
	ResultError   ResultStatus = "error"
)

// SkipReason explains why a rule did not run for an event or scan item.
type SkipReason string

const (
	ReasonTaskNameMismatch     SkipReason = "task_name_mismatch"
	ReasonLabelMismatch        SkipReason = "label_mismatch"
	ReasonStatusChangeMismatch SkipReason = "status_change_mismatch"
	ReasonSalesSourceMismatch  SkipReason = "sales_source_mismatch"
	ReasonSalesPersonMismatch  SkipReason = "sales_person_mismatch"
	ReasonProjectNotFound      SkipReason = "project_not_found"
	ReasonLabelExists          SkipReason = "label_exists"
	ReasonAlreadyExecutedToday SkipReason = "already_executed_today"
	ReasonAlreadyExecuted      SkipReason = "already_executed"
	ReasonDeadlineExceeded     SkipReason = "deadline_exceeded"
)

// LogSource names the entry point that produced an automation log row.
type LogSource string

const (
	SourceDispatch  LogSource = "dispatch"
	SourcePeriodic  LogSource = "periodic"
	SourceDateBased LogSource = "date_based"
	SourceBackfill  LogSource = "backfill"
)

// --- Base Structs ---

type BaseEntity struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
