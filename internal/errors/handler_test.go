package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/climate"
	"climex/internal/infrastructure"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func decodeProblem(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHandleError_APIError(t *testing.T) {
	h := newTestHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/runs", nil)

	h.HandleError(w, r, New(http.StatusBadRequest, "INVALID_REQUEST", "missing station id"))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeValidation, problem["type"])
	assert.Equal(t, "missing station id", problem["detail"])
	assert.Equal(t, "INVALID_REQUEST", problem["code"])
	assert.Equal(t, "/api/runs", problem["instance"])
}

func TestHandleError_EngineErrorUnwrapped(t *testing.T) {
	h := newTestHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/runs", nil)

	h.HandleError(w, r, &climate.InsufficientBaseDataError{
		Variable: "tmax", Year: 1961, Present: 12, Floor: 359,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeInsufficientBaseData, problem["type"])
}

func TestHandleError_ContextDeadline(t *testing.T) {
	h := newTestHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)

	h.HandleError(w, r, context.DeadlineExceeded)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, TypeTimeout, problem["type"])
}

func TestHandleError_TraceIDExtension(t *testing.T) {
	h := newTestHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/stations", nil)
	r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-42"))

	h.HandleError(w, r, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	problem := decodeProblem(t, w.Body.Bytes())
	assert.Equal(t, "trace-42", problem["trace_id"])
	// Raw error text must not reach the client.
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestHandleError_NilError(t *testing.T) {
	h := newTestHandler()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(w, r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestTypeForCode_StatusFallbacks(t *testing.T) {
	assert.Equal(t, TypeNotFound, typeForCode(New(http.StatusNotFound, "GONE", "x")))
	assert.Equal(t, TypeValidation, typeForCode(New(http.StatusConflict, "CONFLICT", "x")))
	assert.Equal(t, TypeInternal, typeForCode(New(http.StatusBadGateway, "UPSTREAM", "x")))
	assert.Equal(t, TypeRunNotFound, typeForCode(New(http.StatusNotFound, "RUN_NOT_FOUND", "x")))
}
