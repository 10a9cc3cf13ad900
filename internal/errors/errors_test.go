package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad payload")
	assert.Equal(t, "INVALID_REQUEST: bad payload", err.Error())
}

func TestWriteError_APIError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)

	WriteError(w, r, New(http.StatusNotFound, "RUN_NOT_FOUND", "no such run"))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "RUN_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "no such run", resp.Error.Message)
}

func TestWriteError_WrapsUnknownErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)

	WriteError(w, r, errors.New("pgx: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Internal error text must not leak.
	assert.NotContains(t, w.Body.String(), "pgx")
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusUnprocessableEntity, "CALENDAR_MISMATCH", "calendars differ",
		map[string]any{"variable": "tmin"})
	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.NotNil(t, err.Details)
}

func TestProblemDetails_MarshalFlattensExtensions(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "field missing", "/api/runs").
		WithExtension("trace_id", "t-1").
		WithExtension("code", "VALIDATION_ERROR")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "/errors/validation", out["type"])
	assert.Equal(t, "t-1", out["trace_id"])
	assert.Equal(t, "VALIDATION_ERROR", out["code"])
	assert.Equal(t, float64(400), out["status"])
}
