package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jackc/pgx/v5/pgxpool"

	"climex/internal/config"
	"climex/internal/infrastructure"
	customMiddleware "climex/internal/middleware"
	"climex/internal/services"
	"climex/internal/store"
	handlers "climex/internal/transport/http"
	ws "climex/internal/websocket"
)

// Application wires configuration, storage, services, and the HTTP
// surface together. It owns every long-lived resource and is the only
// place that sees the full dependency graph.
type Application struct {
	Config           *config.Config
	Router           *chi.Mux
	Server           *http.Server
	Pool             *pgxpool.Pool
	Hub              *ws.Hub
	ComputeService   *services.ComputeService
	ThresholdService *services.ThresholdService
	HealthService    *services.HealthService
	Metrics          *infrastructure.BusinessMetrics
	OTelProviders    *infrastructure.OTelProviders
	Logger           *slog.Logger
}

// NewApplication builds the application from environment configuration.
// The context bounds the initial database connection attempt; pass
// context.Background() from main.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(infrastructure.LoggerConfig{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion),
		slog.String("environment", cfg.Telemetry.Environment))

	otelProviders, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    infrastructure.ServiceName,
		ServiceVersion: infrastructure.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	pool, err := connectPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHubWithOptions(logger, metrics, ws.HubOptions{
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		PingInterval: cfg.WebSocket.PingInterval,
	})

	app := &Application{
		Config:        cfg,
		Pool:          pool,
		Hub:           hub,
		Metrics:       metrics,
		OTelProviders: otelProviders,
		Logger:        logger,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// connectPool opens the pgx pool, verifies connectivity, and applies the
// schema. The schema migration is idempotent so repeated startups are
// safe.
func connectPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("database ready",
		slog.Int("max_conns", int(poolCfg.MaxConns)),
		slog.Int("min_conns", int(poolCfg.MinConns)))
	return pool, nil
}

func (a *Application) initializeServices() {
	stations := store.NewStationRepository(a.Pool)
	observations := store.NewObservationRepository(a.Pool)
	runs := store.NewRunRepository(a.Pool)

	a.ComputeService = services.NewComputeService(services.ComputeDeps{
		Stations:     stations,
		Observations: observations,
		Runs:         runs,
		Progress:     a.Hub,
		Metrics:      a.Metrics,
	}, a.Config, a.Logger)
	a.ThresholdService = services.NewThresholdService(stations, observations, a.Config, a.Logger)
	a.HealthService = services.NewHealthService(a.Pool, a.Hub, infrastructure.ServiceVersion, a.Logger)
}

// setupRouter assembles the chi router. The websocket route is
// registered before the middleware group: the upgrade must not pass
// through wrappers that replace the ResponseWriter.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := handlers.NewWSHandler(a.Hub, a.Config.WebSocket, a.Logger)
	r.HandleFunc("/ws", wsHandler.Handle)

	r.Group(func(r chi.Router) {
		otelMW := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger)
		r.Use(otelMW.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))
		if a.Config.Security.RateLimitRPS > 0 {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimitRPS,
				a.Config.Security.RateLimitBurst,
				a.Logger,
			).Handler)
		}

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/healthz", healthHandler.Check)

		a.setupAPIRoutes(r)
	})

	// Prometheus scrapes bypass logging and rate limiting.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the JSON API under /api. Key auth applies to the
// whole group; whether a missing key is rejected follows configuration.
func (a *Application) setupAPIRoutes(r chi.Router) {
	keys := store.NewAPIKeyRepository(a.Pool, a.Config.Security.BcryptCost)
	auth := customMiddleware.NewAPIKeyAuth(keys, a.Config.Security.APIKeyRequired, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))
		r.Use(auth.Handler)

		runsHandler := handlers.NewRunsHandler(a.ComputeService, a.Logger)
		r.Mount("/runs", runsHandler.Routes())

		stationsHandler := handlers.NewStationsHandler(a.ComputeService, a.Logger)
		r.Mount("/stations", stationsHandler.Routes())

		thresholdsHandler := handlers.NewThresholdsHandler(a.ThresholdService, a.Logger)
		r.Get("/thresholds", thresholdsHandler.GetThresholds)
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.ListenAddr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the hub and the HTTP listener. A listener failure
// cancels the supplied context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("addr", a.Server.Addr),
		slog.Bool("api_key_required", a.Config.Security.APIKeyRequired))

	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop shuts the application down in reverse dependency order: the
// listener first so no new work arrives, then the hub, the pool, and
// telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.Hub.Stop()
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt or a fatal
// listener error, then shuts down gracefully. Stop gets a fresh context
// because the run context is already cancelled on the error path.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
