package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/logger"
	"project-automation-api/internal/metrics"
	"project-automation-api/internal/store/execution"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ruleScan processes one rule of a scheduled run and returns its report lines.
type ruleScan func(ctx context.Context, rule domain.AutomationRule, now time.Time) []domain.RuleResult

// scanRun describes one scheduled entry point.
type scanRun struct {
	source   domain.LogSource
	triggers []domain.TriggerType
	empty    string
	summary  string // fmt verb for the executed count
	process  ruleScan
}

// withScanDeadline bounds a scheduled run by the configured timeout.
func (e *Engine) withScanDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.schedulerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.schedulerTimeout)
}

// runScan loads the active rules of the run's trigger types and processes every rule
// concurrently. Only a failure to load the rules fails the run.
func (e *Engine) runScan(ctx context.Context, run scanRun) (domain.Report, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "automation."+string(run.source))
	defer span.End()

	log := e.logger.With(zap.String("source", string(run.source)))
	now := e.clock.Now()

	ctx, cancel := e.withScanDeadline(ctx)
	defer cancel()

	rules, err := e.store.GetActiveRulesByTrigger(ctx, run.triggers...)
	if err != nil {
		err = fmt.Errorf("could not fetch automation rules: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRunFailure(string(run.source))
		log.Error("scheduled run failed", zap.Error(err))
		return domain.Report{}, err
	}
	span.SetAttributes(attribute.Int("automation.rules", len(rules)))

	if len(rules) == 0 {
		log.Info("no active rules for run")
		return domain.Report{Success: true, Message: run.empty, Results: []domain.RuleResult{}}, nil
	}

	results := e.settleAll(ctx, rules, now, run.process)
	e.record(context.WithoutCancel(ctx), run.source, triggerIndex(rules), results)

	executed := countSuccesses(results)
	metrics.ObserveRun(string(run.source), start)
	span.SetAttributes(attribute.Int("automation.executed", executed))
	logger.LogDuration(log, string(run.source), start,
		zap.Int("rules", len(rules)),
		zap.Int("executed", executed),
		zap.Int("results", len(results)))

	return domain.Report{
		Success:  true,
		Message:  fmt.Sprintf(run.summary, executed),
		Executed: executed,
		Results:  results,
	}, nil
}

// settleAll runs process once per rule, each in its own goroutine, and waits for all of them.
// A panicking rule is reported as an error line and never takes down the others.
// Results keep rule order.
func (e *Engine) settleAll(ctx context.Context, rules []domain.AutomationRule, now time.Time, process ruleScan) []domain.RuleResult {
	perRule := make([][]domain.RuleResult, len(rules))

	var wg sync.WaitGroup
	for i, r := range rules {
		wg.Add(1)
		go func(i int, r domain.AutomationRule) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Error("panic while processing rule",
						zap.String("rule_id", r.ID.String()),
						zap.Any("panic", rec))
					perRule[i] = []domain.RuleResult{errorResult(r, fmt.Errorf("panic: %v", rec))}
				}
			}()
			perRule[i] = process(ctx, r, now)
		}(i, r)
	}
	wg.Wait()

	var results []domain.RuleResult
	for _, rs := range perRule {
		results = append(results, rs...)
	}
	if results == nil {
		results = []domain.RuleResult{}
	}
	return results
}

// claimFunc records a firing slot; false means the slot was already taken.
type claimFunc func(ctx context.Context, arg execution.ClaimPeriodicParams) (bool, error)

// fire runs a due rule for one project (and invoice): condition, claim, then the action.
// The slot is claimed before the action runs, so a failed action is not retried the same day.
func (e *Engine) fire(ctx context.Context, r domain.AutomationRule, p domain.Project, inv *domain.Invoice, now time.Time, interval int, claim claimFunc, taken domain.SkipReason) (domain.RuleResult, bool) {
	reason, err := checkCondition(r, p)
	if err != nil {
		return errorResult(r, err), true
	}
	if reason != "" {
		return skipResult(r, reason), true
	}

	arg := execution.ClaimPeriodicParams{
		RuleID:          r.ID,
		ProjectID:       p.ID,
		ExecutedAt:      now,
		NextExecutionAt: StartOfDay(now).AddDate(0, 0, interval),
		DayStart:        StartOfDay(now),
	}
	if inv != nil {
		id := inv.ID
		arg.InvoiceID = &id
	}

	ok, err := claim(ctx, arg)
	if err != nil {
		return errorResult(r, fmt.Errorf("could not record execution: %w", err)), true
	}
	if !ok {
		return skipResult(r, taken), true
	}

	res, ok, err := e.execute(ctx, r, actionTarget{projectID: p.ID, projects: loadedProject(p), now: now})
	if err != nil {
		e.logger.Warn("automation rule failed",
			zap.String("rule_id", r.ID.String()),
			zap.String("project_id", p.ID.String()),
			zap.Error(err))
		return errorResult(r, err), true
	}
	return res, ok
}

// deadlineReached reports whether the run's deadline has passed. The remaining items of the
// rule are left for the next run.
func deadlineReached(ctx context.Context) bool {
	return ctx.Err() != nil
}
