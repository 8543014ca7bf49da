package rule

import (
	"errors"
	"net/http"

	"project-automation-api/internal/api/common"
	"project-automation-api/internal/domain"
	"project-automation-api/internal/store/execution"
	rulestore "project-automation-api/internal/store/rule"

	"go.uber.org/zap"
)

// HandleListRules lists the automation rules; ?active=true limits to active ones.
func HandleListRules(storer rulestore.RuleStorer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active") == "true"

		rules, err := storer.ListRules(r.Context(), activeOnly)
		if err != nil {
			log.Error("failed to list rules", zap.Error(err), zap.String("component", "api"))
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon rules niet ophalen", log)
			return
		}
		if rules == nil {
			rules = []domain.AutomationRule{}
		}
		common.WriteJSON(w, http.StatusOK, rules, log)
	}
}

// HandleGetRule returns one rule.
func HandleGetRule(storer rulestore.RuleStorer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := common.URLParamUUID(r, "ruleId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		rule, err := storer.GetRuleByID(r.Context(), ruleID)
		if errors.Is(err, domain.ErrRuleNotFound) {
			common.WriteJSONError(w, http.StatusNotFound, "Rule niet gevonden", log)
			return
		}
		if err != nil {
			log.Error("failed to get rule", zap.Error(err), zap.String("rule_id", ruleID.String()))
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon rule niet ophalen", log)
			return
		}
		common.WriteJSON(w, http.StatusOK, rule, log)
	}
}

// Executions groups the dedup records of one rule.
type Executions struct {
	Periodic  []domain.PeriodicExecution  `json:"periodic"`
	DateBased []domain.DateBasedExecution `json:"date_based"`
}

// HandleGetRuleExecutions returns the scheduler cursors of a rule, newest first.
func HandleGetRuleExecutions(storer execution.ExecutionStorer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := common.URLParamUUID(r, "ruleId")
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}
		limit, err := common.QueryLimit(r)
		if err != nil {
			common.WriteJSONError(w, http.StatusBadRequest, err.Error(), log)
			return
		}

		periodic, err := storer.ListPeriodicExecutions(r.Context(), ruleID, limit)
		if err != nil {
			log.Error("failed to list periodic executions", zap.Error(err), zap.String("rule_id", ruleID.String()))
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon executions niet ophalen", log)
			return
		}
		dateBased, err := storer.ListDateBasedExecutions(r.Context(), ruleID, limit)
		if err != nil {
			log.Error("failed to list date-based executions", zap.Error(err), zap.String("rule_id", ruleID.String()))
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon executions niet ophalen", log)
			return
		}

		out := Executions{Periodic: periodic, DateBased: dateBased}
		if out.Periodic == nil {
			out.Periodic = []domain.PeriodicExecution{}
		}
		if out.DateBased == nil {
			out.DateBased = []domain.DateBasedExecution{}
		}
		common.WriteJSON(w, http.StatusOK, out, log)
	}
}
