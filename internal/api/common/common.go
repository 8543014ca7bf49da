package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"project-automation-api/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLimit is used when a list endpoint gets no ?limit.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// WriteJSON schrijft een standaard JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(
			"failed to write JSON response",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("component", "api"),
		)
	}
}

// WriteJSONError schrijft een {success:false, error} response
func WriteJSONError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	WriteJSON(w, status, domain.FailureReport{Success: false, Error: message}, logger)
}

// URLParamUUID parses a chi URL parameter as a UUID.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ongeldig %s %q", name, raw)
	}
	return id, nil
}

// QueryLimit reads ?limit, clamped to MaxLimit.
func QueryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("ongeldige limit %q", raw)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}
