package http

import (
	"context"

	"climex/internal/services"
)

// HealthServiceInterface defines the health check surface.
type HealthServiceInterface interface {
	Check(ctx context.Context) *services.HealthStatus
}
