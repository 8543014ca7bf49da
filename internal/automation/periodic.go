package automation

import (
	"context"
	"fmt"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunPeriodic runs every active periodic rule against the projects (or open invoices) it
// covers. A (rule, project, invoice) slot fires at most once per calendar day.
func (e *Engine) RunPeriodic(ctx context.Context) (domain.Report, error) {
	return e.runScan(ctx, scanRun{
		source:   domain.SourcePeriodic,
		triggers: []domain.TriggerType{domain.TriggerPeriodic},
		empty:    "No periodic rules found",
		summary:  "Executed %d periodic automations",
		process:  e.processPeriodicRule,
	})
}

func (e *Engine) processPeriodicRule(ctx context.Context, r domain.AutomationRule, now time.Time) []domain.RuleResult {
	pt, err := periodicTrigger(r)
	if err != nil {
		return []domain.RuleResult{errorResult(r, err)}
	}
	if pt.CheckInvoices {
		return e.scanInvoices(ctx, r, pt, now)
	}
	return e.scanProjects(ctx, r, pt, now)
}

func periodicTrigger(r domain.AutomationRule) (domain.PeriodicTrigger, error) {
	trig, err := r.Trigger()
	if err != nil {
		return domain.PeriodicTrigger{}, err
	}
	pt, ok := trig.(domain.PeriodicTrigger)
	if !ok {
		return domain.PeriodicTrigger{}, fmt.Errorf("rule %s is not periodic", r.ID)
	}
	return pt, nil
}

// scanProjects fires the rule for every in-scope project whose base date lies a whole
// number of intervals in the past.
func (e *Engine) scanProjects(ctx context.Context, r domain.AutomationRule, pt domain.PeriodicTrigger, now time.Time) []domain.RuleResult {
	field := pt.BaseField()
	if !domain.IsProjectDateField(field) {
		return []domain.RuleResult{errorResult(r, fmt.Errorf("unknown date_field %q", field))}
	}

	scope, err := e.statuses.Scope(ctx, r)
	if err != nil {
		return []domain.RuleResult{errorResult(r, err)}
	}
	projects, err := e.store.ListProjectsInScope(ctx, r.ProjectTypeID, scope)
	if err != nil {
		return []domain.RuleResult{errorResult(r, fmt.Errorf("could not list projects: %w", err))}
	}

	interval := pt.Interval()
	var results []domain.RuleResult
	for _, p := range projects {
		if deadlineReached(ctx) {
			results = append(results, skipResult(r, domain.ReasonDeadlineExceeded))
			break
		}

		base, _ := p.DateField(field)
		if base == nil {
			continue
		}
		if !IsFiringDay(DaysBetween(*base, now), interval) {
			continue
		}
		metrics.RecordCandidate(string(domain.SourcePeriodic))

		if res, ok := e.fire(ctx, r, p, nil, now, interval, e.store.ClaimPeriodicExecution, domain.ReasonAlreadyExecutedToday); ok {
			results = append(results, withProject(res, p))
		}
	}

	e.logger.Debug("periodic rule scanned",
		zap.String("rule_id", r.ID.String()),
		zap.Int("projects", len(projects)),
		zap.Int("results", len(results)))
	return results
}

// scanInvoices fires the rule for every open invoice whose issue date lies a whole number
// of intervals in the past.
func (e *Engine) scanInvoices(ctx context.Context, r domain.AutomationRule, pt domain.PeriodicTrigger, now time.Time) []domain.RuleResult {
	invoices, projects, err := e.invoiceCandidates(ctx, r, e.store.GetOpenInvoices)
	if err != nil {
		return []domain.RuleResult{errorResult(r, err)}
	}

	interval := pt.Interval()
	var results []domain.RuleResult
	for _, inv := range invoices {
		if deadlineReached(ctx) {
			results = append(results, skipResult(r, domain.ReasonDeadlineExceeded))
			break
		}

		p, ok := projects[*inv.ProjectID]
		if !ok {
			continue
		}
		if !IsFiringDay(DaysBetween(*inv.IssueDate, now), interval) {
			continue
		}
		metrics.RecordCandidate(string(domain.SourcePeriodic))

		if res, ok := e.fire(ctx, r, p, &inv, now, interval, e.store.ClaimPeriodicExecution, domain.ReasonAlreadyExecutedToday); ok {
			results = append(results, withInvoice(withProject(res, p), inv))
		}
	}
	return results
}

// invoiceLoader lists the invoices a scan starts from.
type invoiceLoader func(ctx context.Context) ([]domain.Invoice, error)

// invoiceCandidates loads the invoices with a project and an issue date, and the
// projects they belong to, limited to the rule's project type and status scope.
func (e *Engine) invoiceCandidates(ctx context.Context, r domain.AutomationRule, load invoiceLoader) ([]domain.Invoice, map[uuid.UUID]domain.Project, error) {
	all, err := load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not list invoices: %w", err)
	}

	var invoices []domain.Invoice
	var projectIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, inv := range all {
		if inv.ProjectID == nil || inv.IssueDate == nil {
			continue
		}
		invoices = append(invoices, inv)
		if !seen[*inv.ProjectID] {
			seen[*inv.ProjectID] = true
			projectIDs = append(projectIDs, *inv.ProjectID)
		}
	}
	if len(invoices) == 0 {
		return nil, nil, nil
	}

	var projects []domain.Project
	if isScoped(r) {
		scope, err := e.statuses.Scope(ctx, r)
		if err != nil {
			return nil, nil, err
		}
		projects, err = e.store.ListProjectsInScope(ctx, r.ProjectTypeID, scope)
		if err != nil {
			return nil, nil, fmt.Errorf("could not list projects: %w", err)
		}
	} else {
		projects, err = e.store.GetProjectsByIDs(ctx, projectIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("could not load projects: %w", err)
		}
	}

	byID := make(map[uuid.UUID]domain.Project, len(projects))
	for _, p := range projects {
		if seen[p.ID] {
			byID[p.ID] = p
		}
	}
	return invoices, byID, nil
}

// isScoped reports whether a rule narrows the projects it applies to.
func isScoped(r domain.AutomationRule) bool {
	if r.ProjectTypeID != nil || r.MainStatus != domain.MainStatusAll {
		return true
	}
	return r.SubstatusFilter != nil && *r.SubstatusFilter != "" && *r.SubstatusFilter != domain.MainStatusAll
}
