package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"climex/internal/climate"
	apierrors "climex/internal/errors"
)

// ThresholdsHandler handles percentile threshold endpoints.
type ThresholdsHandler struct {
	service ThresholdServiceInterface
	logger  *slog.Logger
}

// NewThresholdsHandler creates a thresholds handler.
func NewThresholdsHandler(service ThresholdServiceInterface, logger *slog.Logger) *ThresholdsHandler {
	return &ThresholdsHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "thresholds")),
	}
}

// GetThresholds handles GET /api/thresholds?station=...&variables=tmax,tmin
// with an optional base_start/base_end pair overriding the configured
// base period.
func (h *ThresholdsHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	stationID := query.Get("station")
	if stationID == "" {
		apierrors.WriteError(w, r, apierrors.New(
			http.StatusBadRequest, "VALIDATION_ERROR",
			"station query parameter is required"))
		return
	}

	var variables []string
	if raw := query.Get("variables"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				variables = append(variables, v)
			}
		}
	}

	base, apiErr := parseBaseQuery(query.Get("base_start"), query.Get("base_end"))
	if apiErr != nil {
		apierrors.WriteError(w, r, apiErr)
		return
	}

	sets, err := h.service.StationThresholds(ctx, stationID, variables, base)
	if err != nil {
		h.logger.WarnContext(ctx, "threshold request failed",
			slog.String("station_id", stationID),
			slog.String("error", err.Error()))
		apierrors.WriteError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, map[string]any{
		"success": true,
		"data":    sets,
		"count":   len(sets),
	})
}

// parseBaseQuery parses an optional base period from query parameters.
// Both parts must be given together.
func parseBaseQuery(startRaw, endRaw string) (*climate.BaseRange, *apierrors.APIError) {
	if startRaw == "" && endRaw == "" {
		return nil, nil
	}
	if startRaw == "" || endRaw == "" {
		return nil, apierrors.New(http.StatusBadRequest, "VALIDATION_ERROR",
			"base_start and base_end must be given together")
	}
	start, err := strconv.Atoi(startRaw)
	if err != nil {
		return nil, apierrors.New(http.StatusBadRequest, "VALIDATION_ERROR",
			"base_start must be a year")
	}
	end, err := strconv.Atoi(endRaw)
	if err != nil {
		return nil, apierrors.New(http.StatusBadRequest, "VALIDATION_ERROR",
			"base_end must be a year")
	}
	base := climate.BaseRange{StartYear: start, EndYear: end}
	if !base.IsValid() {
		return nil, apierrors.New(http.StatusBadRequest, "VALIDATION_ERROR",
			"base period is invalid")
	}
	return &base, nil
}
