package automation

import (
	"context"
	"fmt"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/metrics"
	"project-automation-api/internal/store/execution"
)

// RunDateBased runs the days_after_date and days_before_date rules. A rule fires for a
// project on the day its date field plus (or minus) the offset is today, once per project.
func (e *Engine) RunDateBased(ctx context.Context) (domain.Report, error) {
	return e.runScan(ctx, scanRun{
		source:   domain.SourceDateBased,
		triggers: []domain.TriggerType{domain.TriggerDaysAfterDate, domain.TriggerDaysBeforeDate},
		empty:    "No date-based rules found",
		summary:  "Executed %d date-based automations",
		process:  e.processDateBasedRule,
	})
}

func (e *Engine) processDateBasedRule(ctx context.Context, r domain.AutomationRule, now time.Time) []domain.RuleResult {
	trig, err := r.Trigger()
	if err != nil {
		return []domain.RuleResult{errorResult(r, err)}
	}
	dt, ok := trig.(domain.DateOffsetTrigger)
	if !ok {
		return []domain.RuleResult{errorResult(r, fmt.Errorf("rule %s is not date-based", r.ID))}
	}
	// Zonder veld of offset valt er niets te plannen
	if dt.DateField == "" || dt.DaysOffset == 0 {
		return nil
	}
	if !domain.IsProjectDateField(dt.DateField) {
		return []domain.RuleResult{errorResult(r, fmt.Errorf("unknown date_field %q", dt.DateField))}
	}

	scope, err := e.statuses.Scope(ctx, r)
	if err != nil {
		return []domain.RuleResult{errorResult(r, err)}
	}
	projects, err := e.store.ListProjectsInScope(ctx, r.ProjectTypeID, scope)
	if err != nil {
		return []domain.RuleResult{errorResult(r, fmt.Errorf("could not list projects: %w", err))}
	}

	var results []domain.RuleResult
	for _, p := range projects {
		if deadlineReached(ctx) {
			results = append(results, skipResult(r, domain.ReasonDeadlineExceeded))
			break
		}

		fireOn, err := ResolveDate(dt.DateField, dt.DaysOffset, dt.Direction(), &p, now)
		if err != nil {
			results = append(results, withProject(errorResult(r, err), p))
			continue
		}
		if fireOn == nil || DaysBetween(*fireOn, now) != 0 {
			continue
		}
		metrics.RecordCandidate(string(domain.SourceDateBased))

		base, _ := p.DateField(dt.DateField)
		claim := func(ctx context.Context, arg execution.ClaimPeriodicParams) (bool, error) {
			return e.store.ClaimDateBasedExecution(ctx, arg.RuleID, arg.ProjectID, arg.ExecutedAt, *base)
		}
		if res, ok := e.fire(ctx, r, p, nil, now, 0, claim, domain.ReasonAlreadyExecuted); ok {
			results = append(results, withProject(res, p))
		}
	}
	return results
}
