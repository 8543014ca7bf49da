package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"project-automation-api/internal/api/common"
	"project-automation-api/internal/domain"

	"go.uber.org/zap"
)

// Dispatcher handles one project event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) (domain.Report, error)
}

// RunFunc is a scheduled entry point such as Engine.RunPeriodic.
type RunFunc func(ctx context.Context) (domain.Report, error)

// HandleDispatch decodes a DispatchRequest and runs the matching rules. Every failure,
// including an unreadable body, is answered with 500 {success:false, error}.
func HandleDispatch(d Dispatcher, timeout time.Duration, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.DispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Warn("could not decode dispatch request", zap.Error(err))
			common.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("%v: %v", domain.ErrInvalidRequest, err), log)
			return
		}

		ev, err := req.ToEvent()
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, err.Error(), log)
			return
		}

		ctx, cancel := withTimeout(r.Context(), timeout)
		defer cancel()

		report, err := d.Dispatch(ctx, ev)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, err.Error(), log)
			return
		}
		common.WriteJSON(w, http.StatusOK, report, log)
	}
}

// HandleRun starts a scheduled run. The body, if any, is ignored.
func HandleRun(run RunFunc, timeout time.Duration, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r.Context(), timeout)
		defer cancel()

		report, err := run(ctx)
		if err != nil {
			common.WriteJSONError(w, http.StatusInternalServerError, err.Error(), log)
			return
		}
		common.WriteJSON(w, http.StatusOK, report, log)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
