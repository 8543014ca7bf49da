package automation

import (
	"encoding/json"
	"testing"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// testNow is the fixed "now" of every engine test: 2024-01-01 09:00 UTC.
var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
	return &t
}

func newMockStore() *store.MockStore {
	s := &store.MockStore{}
	s.On("CreateAutomationLog", mock.Anything, mock.Anything).Return(nil).Maybe()
	return s
}

func newTestEngine(t *testing.T, s store.Storer) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	e := NewEngine(s, zap.New(core), Options{
		Clock:            FixedClock(testNow),
		BackfillRuleName: "All Status -> invoice Chase",
		BackfillDays:     5,
	})
	return e, logs
}

type ruleOpt func(*domain.AutomationRule)

func newRule(name string, trigger domain.TriggerType, action domain.ActionType, opts ...ruleOpt) domain.AutomationRule {
	r := domain.AutomationRule{
		BaseEntity:    domain.BaseEntity{ID: uuid.New()},
		Name:          name,
		MainStatus:    "Pre-Submission",
		TriggerType:   trigger,
		ConditionType: domain.ConditionNone,
		ActionType:    action,
		IsActive:      true,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func triggerConfig(v any) ruleOpt {
	return func(r *domain.AutomationRule) { r.TriggerConfig = mustJSON(v) }
}

func actionConfig(v any) ruleOpt {
	return func(r *domain.AutomationRule) { r.ActionConfig = mustJSON(v) }
}

func condition(ct domain.ConditionType, v any) ruleOpt {
	return func(r *domain.AutomationRule) {
		r.ConditionType = ct
		r.ConditionConfig = mustJSON(v)
	}
}

func projectType(id uuid.UUID) ruleOpt {
	return func(r *domain.AutomationRule) { r.ProjectTypeID = &id }
}

func mainStatus(name string) ruleOpt {
	return func(r *domain.AutomationRule) { r.MainStatus = name }
}

func substatusFilter(id uuid.UUID) ruleOpt {
	return func(r *domain.AutomationRule) {
		s := id.String()
		r.SubstatusFilter = &s
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func ptr[T any](v T) *T {
	return &v
}
