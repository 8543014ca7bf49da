package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/logger"
	"project-automation-api/internal/metrics"
	"project-automation-api/internal/store/rule"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Dispatch evaluates the rules for one project event and runs the ones that apply, in the
// order the store returns them. A status that cannot be resolved fails the whole dispatch;
// everything after that is reported per rule.
func (e *Engine) Dispatch(ctx context.Context, ev domain.Event) (domain.Report, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "automation.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("automation.project_id", ev.ProjectID.String()),
		attribute.String("automation.trigger_type", string(ev.TriggerType)),
	)

	log := e.logger.With(
		zap.String("project_id", ev.ProjectID.String()),
		zap.String("trigger_type", string(ev.TriggerType)),
	)

	report, err := e.dispatch(ctx, ev, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRunFailure(string(domain.SourceDispatch))
		log.Error("dispatch failed", zap.Error(err))
		return domain.Report{}, err
	}

	metrics.ObserveRun(string(domain.SourceDispatch), start)
	span.SetAttributes(attribute.Int("automation.executed", report.Executed))
	logger.LogDuration(log, "dispatch", start, zap.Int("executed", report.Executed), zap.Int("results", len(report.Results)))
	return report, nil
}

func (e *Engine) dispatch(ctx context.Context, ev domain.Event, log *zap.Logger) (domain.Report, error) {
	now := e.clock.Now()
	projects := newProjectLoader(e.store, ev.ProjectID)

	mainStatus, err := e.eventMainStatus(ctx, ev, projects)
	if err != nil {
		return domain.Report{}, err
	}

	noRules := domain.Report{Success: true, Message: "No automation rules found", Results: []domain.RuleResult{}}
	if mainStatus == "" {
		log.Debug("project has no status, nothing to match")
		return noRules, nil
	}

	rules, err := e.store.GetMatchingRules(ctx, rule.MatchFilter{
		MainStatus:    mainStatus,
		TriggerType:   ev.TriggerType,
		ProjectTypeID: ev.ProjectTypeID,
	})
	if err != nil {
		return domain.Report{}, fmt.Errorf("could not fetch automation rules: %w", err)
	}
	if len(rules) == 0 {
		return noRules, nil
	}
	log.Debug("matched rules", zap.String("main_status", mainStatus), zap.Int("count", len(rules)))

	results := make([]domain.RuleResult, 0, len(rules))
	for _, r := range rules {
		if ctx.Err() != nil {
			results = append(results, skipResult(r, domain.ReasonDeadlineExceeded))
			continue
		}
		if res, ok := e.dispatchRule(ctx, r, ev, projects, now); ok {
			results = append(results, res)
		}
	}

	e.record(context.WithoutCancel(ctx), domain.SourceDispatch, triggerIndex(rules), results)

	executed := countSuccesses(results)
	return domain.Report{
		Success:  true,
		Message:  fmt.Sprintf("Executed %d automation rules", executed),
		Executed: executed,
		Results:  results,
	}, nil
}

// eventMainStatus resolves the event's status_id, or the project's current status when the
// event carries none. An empty result means the project has no status or does not exist.
func (e *Engine) eventMainStatus(ctx context.Context, ev domain.Event, projects *projectLoader) (string, error) {
	if ev.StatusID != nil {
		return e.statuses.ResolveMainStatus(ctx, *ev.StatusID)
	}
	p, err := projects.get(ctx)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if p.StatusID == nil {
		return "", nil
	}
	return e.statuses.ResolveMainStatus(ctx, *p.StatusID)
}

// dispatchRule refines and executes one rule. Failures become an error line for the rule.
func (e *Engine) dispatchRule(ctx context.Context, r domain.AutomationRule, ev domain.Event, projects *projectLoader, now time.Time) (domain.RuleResult, bool) {
	reason, err := e.refine(ctx, r, ev, projects)
	if err != nil {
		return errorResult(r, err), true
	}
	if reason != "" {
		return skipResult(r, reason), true
	}

	res, ok, err := e.execute(ctx, r, actionTarget{projectID: ev.ProjectID, projects: projects, now: now})
	if err != nil {
		e.logger.Warn("automation rule failed",
			zap.String("rule_id", r.ID.String()),
			zap.String("project_id", ev.ProjectID.String()),
			zap.Error(err))
		return errorResult(r, err), true
	}
	return res, ok
}
