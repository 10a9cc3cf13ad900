package http

import (
	"context"

	"climex/internal/climate"
	"climex/internal/services"
)

// ThresholdServiceInterface defines the threshold operations the
// thresholds handler needs.
type ThresholdServiceInterface interface {
	StationThresholds(ctx context.Context, stationID string, variables []string, base *climate.BaseRange) ([]*services.ThresholdSet, error)
}
