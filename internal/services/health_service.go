package services

import (
	"context"
	"log/slog"
	"time"

	"climex/internal/indices"
)

// Pinger checks connectivity to a backing component. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected progress-stream clients.
// *websocket.Hub satisfies it.
type ClientCounter interface {
	ClientCount() int
}

// HealthStatus is an aggregate component health snapshot.
type HealthStatus struct {
	Status           string            `json:"status"`
	Version          string            `json:"version,omitempty"`
	UptimeSeconds    int64             `json:"uptime_seconds"`
	CatalogSize      int               `json:"catalog_size"`
	ConnectedClients int               `json:"connected_clients"`
	Checks           map[string]string `json:"checks"`
	Timestamp        time.Time         `json:"timestamp"`
}

// Healthy reports whether every check passed.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "ok"
}

// HealthService aggregates component checks for the health endpoint.
type HealthService struct {
	db      Pinger
	clients ClientCounter
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthService creates a HealthService. db and clients may be nil
// when the component is not wired (the corresponding check degrades).
func NewHealthService(db Pinger, clients ClientCounter, version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		db:      db,
		clients: clients,
		version: version,
		started: time.Now(),
		logger:  logger.With(slog.String("component", "health_service")),
	}
}

// Check runs every component check. The status is "ok" only when all of
// them pass; handlers map anything else to a 503.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	checks := make(map[string]string)
	status := "ok"

	if s.db == nil {
		checks["database"] = "not configured"
		status = "degraded"
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.db.Ping(pingCtx); err != nil {
			s.logger.Warn("database ping failed", slog.String("error", err.Error()))
			checks["database"] = err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}

	catalog := len(indices.Names())
	if catalog == 0 {
		checks["catalog"] = "empty index catalog"
		status = "degraded"
	} else {
		checks["catalog"] = "ok"
	}

	connected := 0
	if s.clients != nil {
		connected = s.clients.ClientCount()
	}

	return &HealthStatus{
		Status:           status,
		Version:          s.version,
		UptimeSeconds:    int64(time.Since(s.started).Seconds()),
		CatalogSize:      catalog,
		ConnectedClients: connected,
		Checks:           checks,
		Timestamp:        time.Now().UTC(),
	}
}
