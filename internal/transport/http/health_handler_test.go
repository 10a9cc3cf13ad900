package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/services"
)

type fakeHealthService struct {
	status *services.HealthStatus
}

func (f *fakeHealthService) Check(context.Context) *services.HealthStatus {
	return f.status
}

func healthStatus(status string) *services.HealthStatus {
	return &services.HealthStatus{
		Status:      status,
		CatalogSize: 16,
		Checks:      map[string]string{"database": "ok", "catalog": "ok"},
		Timestamp:   time.Now().UTC(),
	}
}

func TestHealthCheck_OK(t *testing.T) {
	handler := NewHealthHandler(&fakeHealthService{status: healthStatus("ok")}, discardLogger())

	rec := httptest.NewRecorder()
	handler.Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(16), body["catalog_size"])
}

func TestHealthCheck_DegradedAnswers503(t *testing.T) {
	degraded := healthStatus("degraded")
	degraded.Checks["database"] = "connection refused"
	handler := NewHealthHandler(&fakeHealthService{status: degraded}, discardLogger())

	rec := httptest.NewRecorder()
	handler.Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "connection refused", checks["database"])
}
