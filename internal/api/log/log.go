package log

import (
	"net/http"

	"project-automation-api/internal/api/common"
	"project-automation-api/internal/domain"
	logstore "project-automation-api/internal/store/log"

	"go.uber.org/zap"
)

// HandleGetRuleLogs haalt de laatste evaluaties van een rule op.
func HandleGetRuleLogs(store logstore.LogStorer, log *zap.Logger) http.HandlerFunc {
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

		logs, err := store.GetLogsForRule(r.Context(), ruleID, limit)
		if err != nil {
			log.Error("failed to get automation logs", zap.Error(err), zap.String("rule_id", ruleID.String()))
			common.WriteJSONError(w, http.StatusInternalServerError, "Kon logs niet ophalen", log)
			return
		}
		if logs == nil {
			logs = []domain.AutomationLog{}
		}
		common.WriteJSON(w, http.StatusOK, logs, log)
	}
}
