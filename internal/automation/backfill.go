package automation

import (
	"context"
	"fmt"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/logger"
	"project-automation-api/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// BackfillInvoiceChase replays the configured invoice chase rule over the last few days, for
// runs that were missed. Each open invoice fires at most once, for its most recent missed
// firing day, and only when no execution was ever recorded for it. The replayed day acts as
// "now" for deadlines and the execution record.
func (e *Engine) BackfillInvoiceChase(ctx context.Context) (domain.Report, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "automation.backfill")
	defer span.End()
	span.SetAttributes(
		attribute.String("automation.rule_name", e.backfillRuleName),
		attribute.Int("automation.days", e.backfillDays),
	)

	log := e.logger.With(zap.String("source", string(domain.SourceBackfill)))

	ctx, cancel := e.withScanDeadline(ctx)
	defer cancel()

	results, rule, err := e.backfill(ctx, e.clock.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRunFailure(string(domain.SourceBackfill))
		log.Error("backfill failed", zap.Error(err))
		return domain.Report{}, err
	}

	e.record(context.WithoutCancel(ctx), domain.SourceBackfill, triggerIndex([]domain.AutomationRule{rule}), results)

	executed := countSuccesses(results)
	metrics.ObserveRun(string(domain.SourceBackfill), start)
	logger.LogDuration(log, "backfill", start, zap.Int("executed", executed))

	return domain.Report{
		Success:  true,
		Message:  fmt.Sprintf("Backfilled %d invoice chase tasks", executed),
		Executed: executed,
		Results:  results,
	}, nil
}

// backfillDefaultInterval is the chase cadence when the rule configures none.
const backfillDefaultInterval = 9

func backfillInterval(pt domain.PeriodicTrigger) int {
	if pt.Frequency <= 0 && pt.IntervalDays <= 0 {
		return backfillDefaultInterval
	}
	return pt.Interval()
}

func (e *Engine) backfill(ctx context.Context, now time.Time) ([]domain.RuleResult, domain.AutomationRule, error) {
	r, err := e.store.GetActiveRuleByName(ctx, e.backfillRuleName)
	if err != nil {
		return nil, r, fmt.Errorf("could not load rule %q: %w", e.backfillRuleName, err)
	}
	pt, err := periodicTrigger(r)
	if err != nil {
		return nil, r, err
	}
	if !pt.CheckInvoices {
		return nil, r, fmt.Errorf("%w: rule %q is not invoice-anchored", domain.ErrInvalidRequest, r.Name)
	}

	// Alles wat nog niet betaald is, ook buiten de gewone open statussen
	invoices, projects, err := e.invoiceCandidates(ctx, r, e.store.GetUnpaidInvoices)
	if err != nil {
		return nil, r, err
	}

	interval := backfillInterval(pt)
	results := []domain.RuleResult{}
	for _, inv := range invoices {
		if deadlineReached(ctx) {
			results = append(results, skipResult(r, domain.ReasonDeadlineExceeded))
			break
		}

		p, ok := projects[*inv.ProjectID]
		if !ok {
			continue
		}

		// Nieuwste gemiste dag eerst; vandaag hoort bij de gewone run
		for back := 1; back <= e.backfillDays; back++ {
			day := now.AddDate(0, 0, -back)
			if !IsFiringDay(DaysBetween(*inv.IssueDate, day), interval) {
				continue
			}
			metrics.RecordCandidate(string(domain.SourceBackfill))
			if res, ok := e.fire(ctx, r, p, &inv, day, interval, e.store.ClaimBackfillExecution, domain.ReasonAlreadyExecuted); ok {
				results = append(results, withInvoice(withProject(res, p), inv))
			}
			break
		}
	}
	return results, r, nil
}
