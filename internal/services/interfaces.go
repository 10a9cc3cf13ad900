package services

import (
	"context"

	"climex/internal/store"
	"climex/internal/websocket"
)

// StationStore is the station lookup surface the services need.
type StationStore interface {
	GetByID(ctx context.Context, id string) (*store.Station, error)
	List(ctx context.Context) ([]*store.Station, error)
}

// ObservationStore loads daily observation series.
type ObservationStore interface {
	ListSeries(ctx context.Context, stationID, variable string) ([]store.Observation, error)
	Variables(ctx context.Context, stationID string) ([]string, error)
}

// RunStore records run lifecycle and results.
type RunStore interface {
	Create(ctx context.Context, run *store.Run) error
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, note string) error
	MarkFailed(ctx context.Context, id, message string) error
	GetByID(ctx context.Context, id string) (*store.Run, error)
	ListByStation(ctx context.Context, stationID string, limit int) ([]*store.Run, error)
	SaveResults(ctx context.Context, results []store.IndexResult) (int64, error)
	ListResults(ctx context.Context, runID string) ([]store.IndexResult, error)
}

// ProgressPublisher fans run progress events out to subscribers.
// *websocket.Hub satisfies it.
type ProgressPublisher interface {
	PublishRun(event websocket.RunEvent)
}
