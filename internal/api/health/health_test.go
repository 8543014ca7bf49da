package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHandleHealth(t *testing.T) {
	testCases := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantBody   map[string]string
	}{
		{"no database", nil, http.StatusOK, map[string]string{"status": "ok"}},
		{"database ok", pingFunc(func(context.Context) error { return nil }), http.StatusOK,
			map[string]string{"status": "ok", "database": "ok"}},
		{"database down", pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
			http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()

			HandleHealth(tc.db, zap.NewNop()).ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Equal(t, tc.wantBody, response)
		})
	}
}
