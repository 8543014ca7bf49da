package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TriggerData is the event payload used for trigger refinement.
type TriggerData struct {
	TaskName    string `json:"task_name,omitempty"`
	LabelID     string `json:"label_id,omitempty"`
	NewStatusID string `json:"new_status_id,omitempty"`
}

// DispatchRequest is the wire body of the dispatch endpoint and the events subject.
type DispatchRequest struct {
	ProjectID     string       `json:"project_id"`
	ProjectTypeID *string      `json:"project_type_id"`
	StatusID      string       `json:"status_id"`
	TriggerType   string       `json:"trigger_type"`
	TriggerData   *TriggerData `json:"trigger_data,omitempty"`
}

// Event is a validated dispatch request.
type Event struct {
	ProjectID     uuid.UUID
	ProjectTypeID *uuid.UUID
	StatusID      *uuid.UUID
	TriggerType   TriggerType
	Data          TriggerData
}

// ToEvent validates the request and converts its identifiers.
func (r DispatchRequest) ToEvent() (Event, error) {
	var ev Event

	projectID, err := uuid.Parse(r.ProjectID)
	if err != nil {
		return ev, fmt.Errorf("%w: project_id: %v", ErrInvalidRequest, err)
	}
	ev.ProjectID = projectID

	if r.ProjectTypeID != nil && *r.ProjectTypeID != "" {
		typeID, err := uuid.Parse(*r.ProjectTypeID)
		if err != nil {
			return ev, fmt.Errorf("%w: project_type_id: %v", ErrInvalidRequest, err)
		}
		ev.ProjectTypeID = &typeID
	}

	if r.StatusID != "" {
		statusID, err := uuid.Parse(r.StatusID)
		if err != nil {
			return ev, fmt.Errorf("%w: status_id: %v", ErrInvalidRequest, err)
		}
		ev.StatusID = &statusID
	}

	ev.TriggerType = TriggerType(r.TriggerType)
	if !ev.TriggerType.Valid() {
		return ev, fmt.Errorf("%w: unknown trigger_type %q", ErrInvalidRequest, r.TriggerType)
	}

	if r.TriggerData != nil {
		ev.Data = *r.TriggerData
	}
	return ev, nil
}

// RuleResult is one line of an execution report.
type RuleResult struct {
	RuleID    uuid.UUID    `json:"rule_id"`
	Rule      string       `json:"rule"`
	Action    ActionType   `json:"action"`
	Status    ResultStatus `json:"status"`
	Reason    SkipReason   `json:"reason,omitempty"`
	Error     string       `json:"error,omitempty"`
	ProjectID *uuid.UUID   `json:"project_id,omitempty"`
	Project   string       `json:"project,omitempty"`
	InvoiceID *uuid.UUID   `json:"invoice_id,omitempty"`
	Invoice   string       `json:"invoice,omitempty"`
	Field     string       `json:"field,omitempty"`
	Value     string       `json:"value,omitempty"`
}

// Report is returned by every entry point.
type Report struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Executed int          `json:"executed"`
	Results  []RuleResult `json:"results"`
}

// FailureReport is returned instead of a Report when a run fails as a whole.
type FailureReport struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
