package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MainStatusAll is the main_status / substatus_filter sentinel matching every status.
const MainStatusAll = "All"

// AssigneeProjectSalesPerson makes add_task assign the project's sales person.
const AssigneeProjectSalesPerson = "__project_sales_person__"

// TriggerType represents the event kind a rule reacts to
type TriggerType string

const (
	TriggerStatusChanged        TriggerType = "status_changed"
	TriggerTaskCompleted        TriggerType = "task_completed"
	TriggerLabelAdded           TriggerType = "label_added"
	TriggerPeriodic             TriggerType = "periodic"
	TriggerDaysAfterDate        TriggerType = "days_after_date"
	TriggerDaysBeforeDate       TriggerType = "days_before_date"
	TriggerDepositPaid          TriggerType = "deposit_paid"
	TriggerApplicationNumberSet TriggerType = "application_number_set"
	TriggerApprovalDateSet      TriggerType = "approval_date_set"
	TriggerHKPCDateSet          TriggerType = "hkpc_date_set"
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerStatusChanged, TriggerTaskCompleted, TriggerLabelAdded, TriggerPeriodic,
		TriggerDaysAfterDate, TriggerDaysBeforeDate, TriggerDepositPaid,
		TriggerApplicationNumberSet, TriggerApprovalDateSet, TriggerHKPCDateSet:
		return true
	}
	return false
}

// ConditionType represents the optional guard on a rule
type ConditionType string

const (
	ConditionNone        ConditionType = "no_condition"
	ConditionSalesSource ConditionType = "sales_source"
	ConditionSalesPerson ConditionType = "sales_person"
)

// ActionType represents the mutation a rule performs
type ActionType string

const (
	ActionAddLabel      ActionType = "add_label"
	ActionRemoveLabel   ActionType = "remove_label"
	ActionAddTask       ActionType = "add_task"
	ActionChangeStatus  ActionType = "change_status"
	ActionSetFieldValue ActionType = "set_field_value"
)

// Direction is the sign of a day offset.
type Direction string

const (
	DirectionAfter  Direction = "after"
	DirectionBefore Direction = "before"
)

// DateBaseCurrentDay is the due_date_base meaning "today".
const DateBaseCurrentDay = "current_day"

// ValueType selects how set_field_value computes its value.
type ValueType string

const (
	ValueCurrentDate  ValueType = "current_date"
	ValueSpecificDate ValueType = "specific_date"
)

// AutomationRule represents an automation rule
type AutomationRule struct {
	BaseEntity
	Name            string          `db:"name"             json:"name"`
	ProjectTypeID   *uuid.UUID      `db:"project_type_id"  json:"project_type_id"`
	MainStatus      string          `db:"main_status"      json:"main_status"`
	SubstatusFilter *string         `db:"substatus_filter" json:"substatus_filter,omitempty"`
	TriggerType     TriggerType     `db:"trigger_type"     json:"trigger_type"`
	TriggerConfig   json.RawMessage `db:"trigger_config"   json:"trigger_config"`
	ConditionType   ConditionType   `db:"condition_type"   json:"condition_type"`
	ConditionConfig json.RawMessage `db:"condition_config" json:"condition_config"`
	ActionType      ActionType      `db:"action_type"      json:"action_type"`
	ActionConfig    json.RawMessage `db:"action_config"    json:"action_config"`
	IsActive        bool            `db:"is_active"        json:"is_active"`
}

// --- Triggers ---

// Trigger is the decoded trigger_config of a rule.
type Trigger interface {
	Kind() TriggerType
}

// StatusChangedTrigger fires when a project moves to a new status. The match key
// lives in the action config, see AutomationRule.StatusChangeTarget.
type StatusChangedTrigger struct {
	StatusID string `json:"status_id,omitempty"`
}

func (StatusChangedTrigger) Kind() TriggerType { return TriggerStatusChanged }

// TaskCompletedTrigger fires when a task, optionally with a given title, is completed.
type TaskCompletedTrigger struct {
	TaskName string `json:"task_name,omitempty"`
}

func (TaskCompletedTrigger) Kind() TriggerType { return TriggerTaskCompleted }

// LabelAddedTrigger fires when a label, optionally a specific one, is added.
type LabelAddedTrigger struct {
	LabelID string `json:"label_id,omitempty"`
}

func (LabelAddedTrigger) Kind() TriggerType { return TriggerLabelAdded }

// PeriodicTrigger fires every N days counted from a project date or an invoice issue date.
type PeriodicTrigger struct {
	Frequency     int    `json:"frequency,omitempty"`
	IntervalDays  int    `json:"interval_days,omitempty"`
	DateField     string `json:"date_field,omitempty"`
	CheckInvoices bool   `json:"check_invoices,omitempty"`
}

func (PeriodicTrigger) Kind() TriggerType { return TriggerPeriodic }

// Interval returns the firing interval in days; frequency wins over interval_days.
func (t PeriodicTrigger) Interval() int {
	switch {
	case t.Frequency > 0:
		return t.Frequency
	case t.IntervalDays > 0:
		return t.IntervalDays
	}
	return 1
}

// BaseField returns the project date the schedule counts from.
func (t PeriodicTrigger) BaseField() string {
	if t.DateField == "" {
		return FieldProjectStartDate
	}
	return t.DateField
}

// DateOffsetTrigger fires once, N days after or before a project date.
type DateOffsetTrigger struct {
	DaysOffset int    `json:"days_offset,omitempty"`
	DateField  string `json:"date_field,omitempty"`

	kind TriggerType
}

func (t DateOffsetTrigger) Kind() TriggerType { return t.kind }

// Direction returns the sign of the offset implied by the trigger type.
func (t DateOffsetTrigger) Direction() Direction {
	if t.kind == TriggerDaysBeforeDate {
		return DirectionBefore
	}
	return DirectionAfter
}

// FieldSetTrigger covers events raised when a project field gets a value
// (deposit paid, application number, approval date, HKPC date). It carries no payload.
type FieldSetTrigger struct {
	kind TriggerType
}

func (t FieldSetTrigger) Kind() TriggerType { return t.kind }

// Trigger decodes trigger_config according to trigger_type.
func (r AutomationRule) Trigger() (Trigger, error) {
	switch r.TriggerType {
	case TriggerStatusChanged:
		var t StatusChangedTrigger
		err := decodeConfig(r.TriggerConfig, &t)
		return t, err
	case TriggerTaskCompleted:
		var t TaskCompletedTrigger
		err := decodeConfig(r.TriggerConfig, &t)
		return t, err
	case TriggerLabelAdded:
		var t LabelAddedTrigger
		err := decodeConfig(r.TriggerConfig, &t)
		return t, err
	case TriggerPeriodic:
		var t PeriodicTrigger
		err := decodeConfig(r.TriggerConfig, &t)
		return t, err
	case TriggerDaysAfterDate, TriggerDaysBeforeDate:
		t := DateOffsetTrigger{kind: r.TriggerType}
		err := decodeConfig(r.TriggerConfig, &t)
		return t, err
	case TriggerDepositPaid, TriggerApplicationNumberSet, TriggerApprovalDateSet, TriggerHKPCDateSet:
		return FieldSetTrigger{kind: r.TriggerType}, nil
	}
	return nil, fmt.Errorf("unknown trigger type %q", r.TriggerType)
}

// StatusChangeTarget returns action_config.to_status_id. status_changed rules use this
// action field as their trigger match key, so it is read here rather than through Action().
func (r AutomationRule) StatusChangeTarget() string {
	var cfg struct {
		ToStatusID string `json:"to_status_id"`
	}
	if err := decodeConfig(r.ActionConfig, &cfg); err != nil {
		return ""
	}
	return cfg.ToStatusID
}

// --- Conditions ---

// Condition holds the expected values of condition_config.
type Condition struct {
	SalesSource   string `json:"sales_source,omitempty"`
	SalesPersonID string `json:"sales_person_id,omitempty"`
}

// HasCondition reports whether the rule declares a condition to check.
func (r AutomationRule) HasCondition() bool {
	return r.ConditionType != "" && r.ConditionType != ConditionNone
}

// Condition decodes condition_config.
func (r AutomationRule) Condition() (Condition, error) {
	var c Condition
	err := decodeConfig(r.ConditionConfig, &c)
	return c, err
}

// --- Actions ---

// Action is the decoded action_config of a rule.
type Action interface {
	Kind() ActionType
}

type AddLabelAction struct {
	LabelID string `json:"label_id"`
}

func (AddLabelAction) Kind() ActionType { return ActionAddLabel }

type RemoveLabelAction struct {
	LabelID string `json:"label_id"`
}

func (RemoveLabelAction) Kind() ActionType { return ActionRemoveLabel }

// AddTaskAction creates a task; the deadline is either the literal Deadline or
// computed from DueDateBase/DueDateOffset/DueDateDirection.
type AddTaskAction struct {
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	AssignedTo       string    `json:"assigned_to,omitempty"`
	Deadline         string    `json:"deadline,omitempty"`
	DueDateBase      string    `json:"due_date_base,omitempty"`
	DueDateOffset    *int      `json:"due_date_offset,omitempty"`
	DueDateDirection Direction `json:"due_date_direction,omitempty"`
}

func (AddTaskAction) Kind() ActionType { return ActionAddTask }

type ChangeStatusAction struct {
	StatusID   string `json:"status_id"`
	ToStatusID string `json:"to_status_id,omitempty"`
}

func (ChangeStatusAction) Kind() ActionType { return ActionChangeStatus }

type SetFieldValueAction struct {
	FieldName string    `json:"field_name"`
	ValueType ValueType `json:"value_type"`
	DateValue string    `json:"date_value,omitempty"`
}

func (SetFieldValueAction) Kind() ActionType { return ActionSetFieldValue }

// Action decodes action_config according to action_type.
func (r AutomationRule) Action() (Action, error) {
	switch r.ActionType {
	case ActionAddLabel:
		var a AddLabelAction
		err := decodeConfig(r.ActionConfig, &a)
		return a, err
	case ActionRemoveLabel:
		var a RemoveLabelAction
		err := decodeConfig(r.ActionConfig, &a)
		return a, err
	case ActionAddTask:
		var a AddTaskAction
		err := decodeConfig(r.ActionConfig, &a)
		return a, err
	case ActionChangeStatus:
		var a ChangeStatusAction
		err := decodeConfig(r.ActionConfig, &a)
		return a, err
	case ActionSetFieldValue:
		var a SetFieldValueAction
		err := decodeConfig(r.ActionConfig, &a)
		return a, err
	}
	return nil, fmt.Errorf("unknown action type %q", r.ActionType)
}

// decodeConfig unmarshals a JSONB config column; empty and null leave v untouched.
func decodeConfig(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
