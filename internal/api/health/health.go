package health

import (
	"context"
	"net/http"
	"time"

	"project-automation-api/internal/api/common"

	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleHealth reports whether the API and, when db is set, the database are reachable.
func HandleHealth(db Pinger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, log)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.Warn("health check: database unreachable", zap.Error(err))
			common.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"}, log)
			return
		}
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"}, log)
	}
}
