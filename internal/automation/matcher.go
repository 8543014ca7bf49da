package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store/project"

	"github.com/google/uuid"
)

// projectLoader loads the event's project at most once, and only when a rule needs it.
type projectLoader struct {
	store   project.ProjectStorer
	id      uuid.UUID
	done    bool
	project domain.Project
	err     error
}

func newProjectLoader(s project.ProjectStorer, id uuid.UUID) *projectLoader {
	return &projectLoader{store: s, id: id}
}

// loadedProject wraps a project a scanner already has in hand.
func loadedProject(p domain.Project) *projectLoader {
	return &projectLoader{id: p.ID, done: true, project: p}
}

func (l *projectLoader) get(ctx context.Context) (*domain.Project, error) {
	if !l.done {
		l.project, l.err = l.store.GetProjectByID(ctx, l.id)
		l.done = true
	}
	if l.err != nil {
		return nil, l.err
	}
	return &l.project, nil
}

// refine applies the per-rule checks that the store query cannot express: the trigger
// payload and the rule's condition. It returns the skip reason, or "" when the rule applies.
func (e *Engine) refine(ctx context.Context, rule domain.AutomationRule, ev domain.Event, projects *projectLoader) (domain.SkipReason, error) {
	trig, err := rule.Trigger()
	if err != nil {
		return "", err
	}

	switch t := trig.(type) {
	case domain.TaskCompletedTrigger:
		if t.TaskName != "" && t.TaskName != ev.Data.TaskName {
			return domain.ReasonTaskNameMismatch, nil
		}
	case domain.LabelAddedTrigger:
		if t.LabelID != "" && !strings.EqualFold(t.LabelID, ev.Data.LabelID) {
			return domain.ReasonLabelMismatch, nil
		}
	case domain.StatusChangedTrigger:
		ok, err := e.statusChangeMatches(ctx, rule, ev)
		if err != nil {
			return "", err
		}
		if !ok {
			return domain.ReasonStatusChangeMismatch, nil
		}
	}

	if !rule.HasCondition() {
		return "", nil
	}
	p, err := projects.get(ctx)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return domain.ReasonProjectNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return checkCondition(rule, *p)
}

// statusChangeMatches compares the rule's target status (stored in action_config.to_status_id)
// with the new status of the event, directly or through the new status's parent.
// The new status is trigger_data.new_status_id, falling back to the event's status_id.
func (e *Engine) statusChangeMatches(ctx context.Context, rule domain.AutomationRule, ev domain.Event) (bool, error) {
	target := rule.StatusChangeTarget()
	if target == "" {
		return true, nil
	}
	targetID, err := uuid.Parse(target)
	if err != nil {
		return false, nil
	}

	var newStatusID uuid.UUID
	switch {
	case ev.Data.NewStatusID != "":
		newStatusID, err = uuid.Parse(ev.Data.NewStatusID)
		if err != nil {
			return false, nil
		}
	case ev.StatusID != nil:
		newStatusID = *ev.StatusID
	default:
		return false, nil
	}

	if newStatusID == targetID {
		return true, nil
	}

	st, err := e.store.GetStatusByID(ctx, newStatusID)
	if errors.Is(err, domain.ErrStatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.ParentStatusID != nil && *st.ParentStatusID == targetID, nil
}

// checkCondition evaluates the rule's condition against a project. An empty expected
// value accepts every project.
func checkCondition(rule domain.AutomationRule, p domain.Project) (domain.SkipReason, error) {
	if !rule.HasCondition() {
		return "", nil
	}
	cond, err := rule.Condition()
	if err != nil {
		return "", err
	}

	switch rule.ConditionType {
	case domain.ConditionSalesSource:
		if cond.SalesSource != "" && (p.SalesSource == nil || *p.SalesSource != cond.SalesSource) {
			return domain.ReasonSalesSourceMismatch, nil
		}
	case domain.ConditionSalesPerson:
		if cond.SalesPersonID != "" && (p.SalesPersonID == nil || !strings.EqualFold(p.SalesPersonID.String(), cond.SalesPersonID)) {
			return domain.ReasonSalesPersonMismatch, nil
		}
	default:
		return "", fmt.Errorf("unknown condition type %q", rule.ConditionType)
	}
	return "", nil
}
