package automation

import (
	"context"
	"encoding/json"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/metrics"
	"project-automation-api/internal/store"
	logstore "project-automation-api/internal/store/log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options tunes an Engine. Zero values fall back to the system clock in UTC and no scan deadline.
type Options struct {
	Clock            Clock
	SchedulerTimeout time.Duration
	BackfillRuleName string
	BackfillDays     int
}

// Engine runs automation rules from every entry point: event dispatch, the periodic and
// date-based scans and the invoice chase backfill.
type Engine struct {
	store    store.Storer
	statuses *StatusResolver
	clock    Clock
	logger   *zap.Logger
	tracer   trace.Tracer

	schedulerTimeout time.Duration
	backfillRuleName string
	backfillDays     int
}

// NewEngine creates an Engine on top of the given store.
func NewEngine(s store.Storer, logger *zap.Logger, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock(time.UTC)
	}
	if opts.BackfillDays <= 0 {
		opts.BackfillDays = 5
	}
	return &Engine{
		store:            s,
		statuses:         NewStatusResolver(s),
		clock:            opts.Clock,
		logger:           logger.With(zap.String("component", "automation")),
		tracer:           otel.Tracer("project-automation-api/automation"),
		schedulerTimeout: opts.SchedulerTimeout,
		backfillRuleName: opts.BackfillRuleName,
		backfillDays:     opts.BackfillDays,
	}
}

// countSuccesses returns the number of results that actually performed an action.
func countSuccesses(results []domain.RuleResult) int {
	n := 0
	for _, r := range results {
		if r.Status == domain.ResultSuccess {
			n++
		}
	}
	return n
}

// errorResult builds the report line for a rule that failed.
func errorResult(rule domain.AutomationRule, err error) domain.RuleResult {
	return domain.RuleResult{
		RuleID: rule.ID,
		Rule:   rule.Name,
		Action: rule.ActionType,
		Status: domain.ResultError,
		Error:  err.Error(),
	}
}

// skipResult builds the report line for a rule that did not apply.
func skipResult(rule domain.AutomationRule, reason domain.SkipReason) domain.RuleResult {
	return domain.RuleResult{
		RuleID: rule.ID,
		Rule:   rule.Name,
		Action: rule.ActionType,
		Status: domain.ResultSkipped,
		Reason: reason,
	}
}

// withProject stamps the project a scan result belongs to.
func withProject(res domain.RuleResult, p domain.Project) domain.RuleResult {
	id := p.ID
	res.ProjectID = &id
	res.Project = p.Title
	return res
}

// withInvoice stamps the invoice an invoice-anchored result belongs to.
func withInvoice(res domain.RuleResult, inv domain.Invoice) domain.RuleResult {
	id := inv.ID
	res.InvoiceID = &id
	res.Invoice = inv.InvoiceNumber
	return res
}

// record writes the results to automation_logs and the metrics. Failures are logged and
// otherwise ignored; the report has already been computed.
func (e *Engine) record(ctx context.Context, source domain.LogSource, triggers map[uuid.UUID]domain.TriggerType, results []domain.RuleResult) {
	for _, res := range results {
		metrics.RecordResult(string(source), string(triggers[res.RuleID]), string(res.Action), string(res.Status))

		details, _ := json.Marshal(res)
		err := e.store.CreateAutomationLog(ctx, logstore.CreateLogParams{
			RuleID:       res.RuleID,
			ProjectID:    res.ProjectID,
			InvoiceID:    res.InvoiceID,
			Source:       source,
			Status:       res.Status,
			Reason:       res.Reason,
			ErrorMessage: res.Error,
			Details:      details,
		})
		if err != nil {
			e.logger.Warn("failed to write automation log",
				zap.String("rule_id", res.RuleID.String()),
				zap.String("source", string(source)),
				zap.Error(err))
		}
	}
}

// triggerIndex maps rule ids to their trigger type for metric labels.
func triggerIndex(rules []domain.AutomationRule) map[uuid.UUID]domain.TriggerType {
	idx := make(map[uuid.UUID]domain.TriggerType, len(rules))
	for _, r := range rules {
		idx[r.ID] = r.TriggerType
	}
	return idx
}
