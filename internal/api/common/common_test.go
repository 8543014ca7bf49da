package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, map[string]string{"message": "test"}, zap.NewNop())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"test"}`, w.Body.String())
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONError(w, http.StatusInternalServerError, "status not found", zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"status not found"}`, w.Body.String())
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestURLParamUUID(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "ruleId", id.String())

	got, err := URLParamUUID(req, "ruleId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "ruleId", "abc")
	_, err = URLParamUUID(req, "ruleId")
	assert.Error(t, err)
}

func TestQueryLimit(t *testing.T) {
	testCases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", DefaultLimit, false},
		{"?limit=10", 10, false},
		{"?limit=100000", MaxLimit, false},
		{"?limit=0", 0, true},
		{"?limit=ten", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			got, err := QueryLimit(httptest.NewRequest(http.MethodGet, "/rules"+tc.query, nil))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
