package http

import (
	"context"

	"climex/internal/services"
	"climex/internal/store"
)

// ComputeServiceInterface defines the compute operations the runs and
// stations handlers need.
type ComputeServiceInterface interface {
	Submit(ctx context.Context, req services.ComputeRequest) (*store.Run, error)
	GetRun(ctx context.Context, id string) (*store.Run, []store.IndexResult, error)
	ListRuns(ctx context.Context, stationID string, limit int) ([]*store.Run, error)
	ListStations(ctx context.Context) ([]*store.Station, error)
	GetStation(ctx context.Context, id string) (*store.Station, error)
}
