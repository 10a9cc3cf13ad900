package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climex/internal/config"
	"climex/internal/infrastructure"
	"climex/internal/services"
	ws "climex/internal/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	return cfg
}

// testApplication wires an application without a database. Repositories
// receive a nil pool, so only routes that stop short of the store may be
// exercised.
func testApplication(t *testing.T) *Application {
	t.Helper()

	cfg := testConfig()
	logger := discardLogger()
	hub := ws.NewHub(logger, nil)

	app := &Application{
		Config:        cfg,
		Hub:           hub,
		OTelProviders: &infrastructure.OTelProviders{},
		Logger:        logger,
	}
	app.ComputeService = services.NewComputeService(services.ComputeDeps{Progress: hub}, cfg, logger)
	app.ThresholdService = services.NewThresholdService(nil, nil, cfg, logger)
	app.HealthService = services.NewHealthService(okPinger{}, hub, infrastructure.ServiceVersion, logger)

	app.setupRouter()
	app.createServer()
	return app
}

func TestApplication_setupRouter(t *testing.T) {
	app := testApplication(t)
	require.NotNil(t, app.Router)

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	t.Run("healthz responds", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, infrastructure.ServiceVersion, body["version"])
	})

	t.Run("websocket endpoint rejects plain requests", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/ws")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("api routes are mounted", func(t *testing.T) {
		// Missing station parameter; a 404 would mean the route is absent.
		resp, err := http.Get(srv.URL + "/api/thresholds")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown route is 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/definitely-not-here")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("metrics absent without exporter", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestApplication_MetricsRoute(t *testing.T) {
	app := testApplication(t)
	app.OTelProviders.PrometheusHTTP = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# HELP up\n"))
	})
	app.setupRouter()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplication_HealthDegraded(t *testing.T) {
	app := testApplication(t)
	app.HealthService = services.NewHealthService(nil, app.Hub, infrastructure.ServiceVersion, app.Logger)
	app.setupRouter()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
}

func TestApplication_APIKeyGate(t *testing.T) {
	app := testApplication(t)
	app.Config.Security.APIKeyRequired = true
	app.setupRouter()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	t.Run("api rejects missing key", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/stations")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("healthz stays open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestApplication_createServer(t *testing.T) {
	app := testApplication(t)

	require.NotNil(t, app.Server)
	assert.Equal(t, app.Config.ListenAddr(), app.Server.Addr)
	assert.Equal(t, app.Config.Server.ReadTimeout, app.Server.ReadTimeout)
	assert.Equal(t, app.Config.Server.WriteTimeout, app.Server.WriteTimeout)
	assert.Equal(t, app.Config.Server.IdleTimeout, app.Server.IdleTimeout)
	assert.Same(t, app.Router, app.Server.Handler)
}

func TestApplication_StartStop(t *testing.T) {
	app := testApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))

	// Give the listener a moment to come up before tearing it down.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, app.Stop(context.Background()))

	select {
	case <-ctx.Done():
		t.Fatal("listener reported an error during startup")
	default:
	}
}
