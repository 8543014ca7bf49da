package automation

import (
	"context"
	"fmt"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// actionTarget is the project an action runs against, with the run's "now".
type actionTarget struct {
	projectID uuid.UUID
	projects  *projectLoader
	now       time.Time
}

// execute performs the rule's action. ok is false when the action config gave it nothing to
// do; such rules produce no report line.
func (e *Engine) execute(ctx context.Context, rule domain.AutomationRule, target actionTarget) (res domain.RuleResult, ok bool, err error) {
	action, err := rule.Action()
	if err != nil {
		return res, false, err
	}

	res = domain.RuleResult{
		RuleID: rule.ID,
		Rule:   rule.Name,
		Action: rule.ActionType,
		Status: domain.ResultSuccess,
	}

	switch a := action.(type) {
	case domain.AddLabelAction:
		if a.LabelID == "" {
			return e.noop(rule, "label_id missing")
		}
		labelID, err := uuid.Parse(a.LabelID)
		if err != nil {
			return res, false, fmt.Errorf("invalid label_id: %w", err)
		}
		added, err := e.store.AddProjectLabel(ctx, target.projectID, labelID)
		if err != nil {
			return res, false, err
		}
		if !added {
			res.Status = domain.ResultSkipped
			res.Reason = domain.ReasonLabelExists
		}
		return res, true, nil

	case domain.RemoveLabelAction:
		if a.LabelID == "" {
			return e.noop(rule, "label_id missing")
		}
		labelID, err := uuid.Parse(a.LabelID)
		if err != nil {
			return res, false, fmt.Errorf("invalid label_id: %w", err)
		}
		if err := e.store.RemoveProjectLabel(ctx, target.projectID, labelID); err != nil {
			return res, false, err
		}
		return res, true, nil

	case domain.AddTaskAction:
		if a.Title == "" {
			return e.noop(rule, "title missing")
		}
		params, err := e.taskParams(ctx, a, target)
		if err != nil {
			return res, false, err
		}
		if _, err := e.store.CreateTask(ctx, params); err != nil {
			return res, false, err
		}
		return res, true, nil

	case domain.ChangeStatusAction:
		if a.StatusID == "" {
			return e.noop(rule, "status_id missing")
		}
		statusID, err := uuid.Parse(a.StatusID)
		if err != nil {
			return res, false, fmt.Errorf("invalid status_id: %w", err)
		}
		if err := e.store.UpdateProjectStatus(ctx, target.projectID, statusID); err != nil {
			return res, false, err
		}
		return res, true, nil

	case domain.SetFieldValueAction:
		if a.FieldName == "" || a.ValueType == "" {
			return e.noop(rule, "field_name or value_type missing")
		}
		if !domain.IsWritableDateField(a.FieldName) {
			return res, false, fmt.Errorf("field %q is not a writable project date", a.FieldName)
		}

		var value time.Time
		switch a.ValueType {
		case domain.ValueCurrentDate:
			value = StartOfDay(target.now)
		case domain.ValueSpecificDate:
			if a.DateValue == "" {
				return e.noop(rule, "date_value missing")
			}
			value, err = parseDate(a.DateValue, target.now.Location())
			if err != nil {
				return res, false, err
			}
		default:
			return e.noop(rule, "unknown value_type "+string(a.ValueType))
		}

		if err := e.store.UpdateProjectDateField(ctx, target.projectID, a.FieldName, value); err != nil {
			return res, false, err
		}
		res.Field = a.FieldName
		res.Value = value.Format(time.DateOnly)
		return res, true, nil
	}

	return res, false, fmt.Errorf("unsupported action type %q", rule.ActionType)
}

// noop reports an action whose config could not produce a mutation. Nothing is written and
// the rule is left out of the report, so the warning is the only trace.
func (e *Engine) noop(rule domain.AutomationRule, why string) (domain.RuleResult, bool, error) {
	e.logger.Warn("automation action skipped without result",
		zap.String("rule_id", rule.ID.String()),
		zap.String("rule", rule.Name),
		zap.String("action", string(rule.ActionType)),
		zap.String("why", why))
	return domain.RuleResult{}, false, nil
}

// taskParams builds the task insert for add_task, resolving the deadline and assignee.
func (e *Engine) taskParams(ctx context.Context, a domain.AddTaskAction, target actionTarget) (task.CreateTaskParams, error) {
	params := task.CreateTaskParams{
		ProjectID:   target.projectID,
		Title:       a.Title,
		Description: a.Description,
	}

	if a.Deadline != "" {
		deadline, err := parseDate(a.Deadline, target.now.Location())
		if err != nil {
			return params, fmt.Errorf("invalid deadline: %w", err)
		}
		params.Deadline = &deadline
	}

	// Een berekende deadline wint van de vaste waarde, tenzij het basisveld leeg is
	if a.DueDateBase != "" && a.DueDateOffset != nil {
		var p *domain.Project
		if a.DueDateBase != domain.DateBaseCurrentDay {
			loaded, err := target.projects.get(ctx)
			if err != nil {
				return params, err
			}
			p = loaded
		}
		direction := a.DueDateDirection
		if direction == "" {
			direction = domain.DirectionAfter
		}
		computed, err := ResolveDate(a.DueDateBase, *a.DueDateOffset, direction, p, target.now)
		if err != nil {
			return params, err
		}
		if computed != nil {
			params.Deadline = computed
		}
	}

	switch a.AssignedTo {
	case "":
	case domain.AssigneeProjectSalesPerson:
		p, err := target.projects.get(ctx)
		if err != nil {
			return params, err
		}
		params.AssignedTo = p.SalesPersonID
	default:
		id, err := uuid.Parse(a.AssignedTo)
		if err != nil {
			return params, fmt.Errorf("invalid assigned_to: %w", err)
		}
		params.AssignedTo = &id
	}

	return params, nil
}
